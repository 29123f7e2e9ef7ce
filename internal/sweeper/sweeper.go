// Package sweeper runs the periodic pass that removes expired silence
// records from the store. Expiry is enforced lazily on read regardless,
// so the sweeper only bounds how long dead records occupy disk. It never
// publishes events: natural expiry is silent, and clients prune their own
// copies on the expiresAt they already hold.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"sealchat/pkg/config"
	"sealchat/pkg/logger"
	"sealchat/pkg/store"
)

const defaultCron = "*/10 * * * *"

// Start launches the sweep scheduler when enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.Config) (context.CancelFunc, error) {
	if !cfg.Sweeper.Enabled {
		logger.Info("sweeper_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Sweeper.Cron
	if cronExpr == "" {
		cronExpr = defaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweeper_invalid_cron", "cron", cronExpr)
		return nil, fmt.Errorf("invalid sweeper cron expression: %s", cronExpr)
	}

	logger.Info("sweeper_enabled", "cron", cronExpr)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr)
	return cancel, nil
}

// runScheduler computes the next tick for the cron expression via gronx
// and sleeps until then. Full cron syntax is supported.
func runScheduler(ctx context.Context, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweeper_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			RunOnce()
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		}
	}
}

// RunOnce performs a single sweep. Exposed for admin triggers and tests.
func RunOnce() {
	start := time.Now()
	n, err := store.PurgeExpired(start)
	if err != nil {
		logger.Error("sweep_failed", "error", err)
		return
	}
	if n > 0 {
		logger.Info("sweep_complete", "purged", n, "duration_ms", time.Since(start).Milliseconds())
	}
}
