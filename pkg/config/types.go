package config

import (
	"fmt"
	"time"
)

// Config is the main configuration struct.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Logging  LoggingConfig  `yaml:"logging"`
	Presence PresenceConfig `yaml:"presence"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	Keys     KeysConfig     `yaml:"keys"`
}

// ServerConfig holds http and storage settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	DBPath  string    `yaml:"db_path"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SecurityConfig holds security related settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
	APIKeys     struct {
		Backend  []string `yaml:"backend"`
		Frontend []string `yaml:"frontend"`
		Admin    []string `yaml:"admin"`
	} `yaml:"api_keys"`
	JWT struct {
		Secret string `yaml:"secret"`
		Issuer string `yaml:"issuer"`
	} `yaml:"jwt"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PresenceConfig holds ephemeral-signal tuning.
type PresenceConfig struct {
	// SilenceTTL is how long a silence annotation lives before the store
	// expires it. Default 6h.
	SilenceTTL string `yaml:"silence_ttl"`
	// TypingDebounce is the client-side inactivity window after which a
	// typing=false signal is emitted. Default 2s.
	TypingDebounce string `yaml:"typing_debounce"`
}

// SweeperConfig schedules the purge of expired TTL records.
type SweeperConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"`
}

// KeysConfig locates device-local identity key material.
type KeysConfig struct {
	Dir string `yaml:"dir"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	host := c.Server.Address
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// SilenceTTL parses the configured silence TTL, defaulting to six hours.
func (c *Config) SilenceTTL() time.Duration {
	if c.Presence.SilenceTTL == "" {
		return 6 * time.Hour
	}
	d, err := time.ParseDuration(c.Presence.SilenceTTL)
	if err != nil || d <= 0 {
		return 6 * time.Hour
	}
	return d
}

// TypingDebounce parses the typing debounce window, defaulting to two
// seconds.
func (c *Config) TypingDebounce() time.Duration {
	if c.Presence.TypingDebounce == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(c.Presence.TypingDebounce)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}
