package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"sealchat/internal/sweeper"
	"sealchat/pkg/chat"
	"sealchat/pkg/config"
	"sealchat/pkg/keys"
	"sealchat/pkg/logger"
	"sealchat/pkg/realtime"
	"sealchat/pkg/store"
)

// App wires the store, hub, engine and HTTP server together.
type App struct {
	eff       config.Effective
	version   string
	commit    string
	buildDate string

	hub    *realtime.Hub
	engine *chat.Engine
	keys   *keys.Store

	srv         *http.Server
	stopSweeper context.CancelFunc
}

// New validates the effective config, opens the store and builds the
// runtime pieces. The HTTP server is started by Run.
func New(eff config.Effective, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// runtime keys: backend keys double as user-signature signing keys
	runtimeCfg := &config.RuntimeConfig{
		BackendKeys: map[string]struct{}{},
		SigningKeys: map[string]struct{}{},
		JWTSecret:   eff.Config.Security.JWT.Secret,
		JWTIssuer:   eff.Config.Security.JWT.Issuer,
	}
	for _, k := range eff.Config.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	hub := realtime.NewHub()
	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		hub:       hub,
		engine:    chat.NewEngine(hub, eff.Config.SilenceTTL()),
		keys:      keys.NewStore(eff.Config.Keys.Dir, keys.StoreDirectory{}),
	}
	return a, nil
}

// Run starts the sweeper and HTTP server and blocks until the context is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	cancelSweeper, err := sweeper.Start(ctx, a.eff.Config)
	if err != nil {
		return err
	}
	a.stopSweeper = cancelSweeper

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (a *App) shutdown() {
	if a.stopSweeper != nil {
		a.stopSweeper()
	}
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			logger.Error("http_shutdown_failed", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
	logger.Info("shutdown_complete")
}

func validateConfig(eff config.Effective) error {
	if eff.DBPath == "" {
		return fmt.Errorf("db path is required (use --db or SEALCHAT_DB_PATH)")
	}
	if len(eff.Config.Security.APIKeys.Backend) == 0 && len(eff.Config.Security.APIKeys.Frontend) == 0 {
		return fmt.Errorf("no API keys configured; set security.api_keys in the config file or SEALCHAT_BACKEND_KEYS / SEALCHAT_FRONTEND_KEYS")
	}
	if ttl := eff.Config.Presence.SilenceTTL; ttl != "" {
		if _, err := time.ParseDuration(ttl); err != nil {
			return fmt.Errorf("invalid presence.silence_ttl %q: %w", ttl, err)
		}
	}
	return nil
}
