package main

import (
	"context"

	"github.com/joho/godotenv"

	"sealchat/internal/app"
	"sealchat/pkg/config"
	"sealchat/pkg/logger"
	"sealchat/pkg/shutdown"
)

// build metadata, set via ldflags during release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")

	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	eff, err := config.LoadEffective(cfgPath)
	if err != nil {
		logger.Init("info")
		shutdown.Abort("failed to load config", err, dbVal, 0)
	}

	// flags explicitly set win over env and config file
	if setFlags["addr"] {
		eff.Addr = addrVal
		eff.Source = "flags"
	}
	if setFlags["db"] {
		eff.DBPath = dbVal
	}
	if eff.DBPath == "" {
		eff.DBPath = dbVal
	}

	logger.Init(eff.Config.Logging.Level)

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("startup failed", err, eff.DBPath, 0)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server exited", err, eff.DBPath, 0)
	}
}
