package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"formbuilder.io/formbuilder/internal/pkg/logger"
)

// Start starts the River client. From then on form_sync repairs unsynced
// support records and audit_cleanup prunes the audit log on schedule.
func (a *Application) Start(ctx context.Context) error {
	if a.DB == nil || a.DB.RiverClient == nil {
		return nil
	}
	if err := a.DB.RiverClient.Start(ctx); err != nil {
		return fmt.Errorf("start river client: %w", err)
	}
	logger.Info("River client started", zap.Int("modules", len(a.Modules)))
	return nil
}

// Shutdown stops the service in dependency order:
//
//  1. River, so no new resync batch or audit prune starts. A running
//     batch finishes its fan-out on the sync pool.
//  2. Modules.
//  3. The worker pools, after they drain. Lifecycle events already queued on
//     the general pool still reach the audit log.
//  4. The database, once nothing can write to it.
//
// ctx bounds the River stop and the drain; the remaining steps always run.
func (a *Application) Shutdown(ctx context.Context) {
	if a.DB != nil && a.DB.RiverClient != nil {
		if err := a.DB.RiverClient.Stop(ctx); err != nil {
			logger.Error("failed to stop river client", zap.Error(err))
		} else {
			logger.Info("River client stopped")
		}
	}

	for _, mod := range a.Modules {
		if mod == nil {
			continue
		}
		if err := mod.Shutdown(ctx); err != nil {
			logger.Warn("module shutdown returned error",
				zap.String("module", mod.Name()),
				zap.Error(err),
			)
		}
	}

	if a.Pools != nil {
		if err := a.Pools.Drain(ctx); err != nil {
			logger.Warn("worker pools not drained, pending events are dropped",
				zap.Any("pools", a.Pools.Stats()),
				zap.Error(err),
			)
		}
		a.Pools.Shutdown()
	}
	if a.DB != nil {
		a.DB.Close()
	}
	logger.Info("Form service stopped")
}
