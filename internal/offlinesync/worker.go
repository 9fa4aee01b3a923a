package offlinesync

import (
	"context"
	"time"

	"github.com/Project-Zedd/rotc-system-final/internal/settings"

	"go.uber.org/zap"
)

// RunDrainWorker periodically replays queued batches into the ledger. The
// poll interval follows the offline sync interval setting and is re-read on
// every tick, so an admin change takes effect without a restart.
func RunDrainWorker(ctx context.Context, svc Service, settingsSvc settings.Service, logger *zap.Logger) {
	log := logger.Named("offlinesync.worker")

	interval := drainInterval(ctx, settingsSvc)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("sync drain worker started", zap.Duration("poll_interval", interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("sync drain worker stopped")
			return
		case <-ticker.C:
			result := svc.ProcessPending(ctx)
			if result.Processed > 0 || len(result.Failed) > 0 {
				log.Info("sync drain pass finished",
					zap.Int("processed", result.Processed),
					zap.Int("failed", len(result.Failed)),
				)
			}

			if next := drainInterval(ctx, settingsSvc); next != interval {
				interval = next
				ticker.Reset(interval)
				log.Info("sync drain interval changed", zap.Duration("poll_interval", interval))
			}
		}
	}
}

func drainInterval(ctx context.Context, settingsSvc settings.Service) time.Duration {
	minutes, err := settingsSvc.GetOfflineSyncIntervalMinutes(ctx)
	if err != nil || minutes <= 0 {
		minutes = settings.DefaultOfflineSyncIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}
