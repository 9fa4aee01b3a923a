package jobs

import (
	"context"
	"time"

	"github.com/Project-Zedd/rotc-system-final/internal/attendance"
	"github.com/Project-Zedd/rotc-system-final/internal/duplicate"
	"github.com/Project-Zedd/rotc-system-final/internal/offlinesync"

	"go.uber.org/zap"
)

const (
	sweepInterval     = time.Minute
	retentionInterval = time.Hour
	staleThreshold    = 10 * time.Minute
	retentionAge      = 30 * 24 * time.Hour

	// Ledger rows are kept far longer than queue bookkeeping; two years
	// covers any semester dispute.
	ledgerRetentionAge = 2 * 365 * 24 * time.Hour
)

// Scheduler drives the recurring maintenance work: the daily cutoff, the
// duplicate auto-approve sweep, stale claim recovery, and retention cleanup.
type Scheduler struct {
	cutoff     *DailyCutoff
	ledger     attendance.Service
	duplicates duplicate.Service
	sync       offlinesync.Service
	logger     *zap.Logger

	lastCutoffDay string
}

func NewScheduler(cutoff *DailyCutoff, ledger attendance.Service, duplicates duplicate.Service, syncSvc offlinesync.Service) *Scheduler {
	return &Scheduler{
		cutoff:     cutoff,
		ledger:     ledger,
		duplicates: duplicates,
		sync:       syncSvc,
		logger:     zap.L().Named("jobs.scheduler"),
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()
	retention := time.NewTicker(retentionInterval)
	defer retention.Stop()

	s.logger.Info("scheduler started",
		zap.Duration("sweep_interval", sweepInterval),
		zap.Duration("retention_interval", retentionInterval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-sweep.C:
			s.tick(ctx, time.Now())
		case <-retention.C:
			s.retention(ctx)
		}
	}
}

// tick fires the cutoff at most once per day, once the clock passes it.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	day := now.Format("2006-01-02")
	cutoffAt := time.Date(now.Year(), now.Month(), now.Day(), CutoffHour, CutoffMinute, 0, 0, now.Location())
	if !now.Before(cutoffAt) && s.lastCutoffDay != day {
		if err := s.cutoff.Run(ctx, now); err != nil {
			s.logger.Error("daily cutoff failed", zap.Error(err))
		} else {
			s.lastCutoffDay = day
		}
	}

	if _, err := s.duplicates.AutoApprove(ctx); err != nil {
		s.logger.Error("duplicate auto-approve sweep failed", zap.Error(err))
	}

	if _, err := s.sync.RecoverStale(ctx, staleThreshold); err != nil {
		s.logger.Error("stale sync recovery failed", zap.Error(err))
	}
}

func (s *Scheduler) retention(ctx context.Context) {
	if count, err := s.sync.CleanOldSyncItems(ctx, retentionAge); err != nil {
		s.logger.Error("sync retention cleanup failed", zap.Error(err))
	} else if count > 0 {
		s.logger.Info("old sync items removed", zap.Int64("count", count))
	}

	if count, err := s.duplicates.CleanOldReviewed(ctx, retentionAge); err != nil {
		s.logger.Error("duplicate retention cleanup failed", zap.Error(err))
	} else if count > 0 {
		s.logger.Info("old reviewed links removed", zap.Int64("count", count))
	}

	if _, err := s.ledger.CleanOldAttendance(ctx, ledgerRetentionAge); err != nil {
		s.logger.Error("attendance retention cleanup failed", zap.Error(err))
	}
}
