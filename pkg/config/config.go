package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// RuntimeConfig holds derived runtime values that other packages may query
// at runtime (populated during startup after merging env+file).
type RuntimeConfig struct {
	BackendKeys map[string]struct{}
	SigningKeys map[string]struct{}
	JWTSecret   string
	JWTIssuer   string
}

var (
	runtimeMu  sync.RWMutex
	runtimeCfg *RuntimeConfig
)

// SetRuntime sets the canonical runtime config used by the running server.
func SetRuntime(rc *RuntimeConfig) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	runtimeCfg = rc
}

// GetSigningKeys returns a copy of configured signing keys.
func GetSigningKeys() map[string]struct{} {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	out := map[string]struct{}{}
	if runtimeCfg == nil || runtimeCfg.SigningKeys == nil {
		return out
	}
	for k := range runtimeCfg.SigningKeys {
		out[k] = struct{}{}
	}
	return out
}

// GetJWT returns the configured JWT secret and issuer, if any.
func GetJWT() (secret, issuer string) {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	if runtimeCfg == nil {
		return "", ""
	}
	return runtimeCfg.JWTSecret, runtimeCfg.JWTIssuer
}

// Effective is the result of merging config file, environment, and flags.
type Effective struct {
	Config Config
	Addr   string
	DBPath string
	// Source records which layer produced the address ("flags", "env",
	// "config" or "default"), mainly for the startup banner.
	Source string
}

// ParseCommandFlags registers and parses the server's command-line flags and
// reports which flags the user explicitly set.
func ParseCommandFlags() (addr, dbPath, cfgPath string, set map[string]bool) {
	a := flag.String("addr", ":8080", "listen address")
	d := flag.String("db", "./data", "pebble database path")
	c := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return *a, *d, *c, set
}

// ResolveConfigPath picks the config path: an explicit flag wins, then the
// SEALCHAT_CONFIG env var, then nothing.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet && flagVal != "" {
		return flagVal
	}
	if p := os.Getenv("SEALCHAT_CONFIG"); p != "" {
		return p
	}
	return flagVal
}

// LoadEffective loads the YAML config file (when path is non-empty) and
// applies environment overrides. Flags are applied by the caller since it
// knows which were explicitly set.
func LoadEffective(path string) (Effective, error) {
	var eff Effective
	eff.Source = "default"

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return eff, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &eff.Config); err != nil {
			return eff, fmt.Errorf("parse config %s: %w", path, err)
		}
		eff.Source = "config"
	}

	applyEnv(&eff)

	if eff.Addr == "" {
		eff.Addr = eff.Config.Addr()
	}
	if eff.DBPath == "" {
		eff.DBPath = eff.Config.Server.DBPath
	}
	return eff, nil
}

func applyEnv(eff *Effective) {
	if v := os.Getenv("SEALCHAT_ADDR"); v != "" {
		eff.Addr = v
		eff.Source = "env"
	}
	if v := os.Getenv("SEALCHAT_DB_PATH"); v != "" {
		eff.DBPath = v
	}
	if v := os.Getenv("SEALCHAT_LOG_LEVEL"); v != "" {
		eff.Config.Logging.Level = v
	}
	if v := os.Getenv("SEALCHAT_KEYS_DIR"); v != "" {
		eff.Config.Keys.Dir = v
	}
	if v := os.Getenv("SEALCHAT_JWT_SECRET"); v != "" {
		eff.Config.Security.JWT.Secret = v
	}
	if v := os.Getenv("SEALCHAT_BACKEND_KEYS"); v != "" {
		eff.Config.Security.APIKeys.Backend = splitList(v)
	}
	if v := os.Getenv("SEALCHAT_FRONTEND_KEYS"); v != "" {
		eff.Config.Security.APIKeys.Frontend = splitList(v)
	}
	if v := os.Getenv("SEALCHAT_ADMIN_KEYS"); v != "" {
		eff.Config.Security.APIKeys.Admin = splitList(v)
	}
	if v := os.Getenv("SEALCHAT_SILENCE_TTL"); v != "" {
		eff.Config.Presence.SilenceTTL = v
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
