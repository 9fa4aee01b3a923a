package jobs

import (
	"context"
	"time"

	"github.com/Project-Zedd/rotc-system-final/internal/attendance"
	"github.com/Project-Zedd/rotc-system-final/internal/notification"
	"github.com/Project-Zedd/rotc-system-final/internal/settings"

	"go.uber.org/zap"
)

// The cutoff fires at 12:15 local time. Morning formation is long over by
// then; whoever still has an open record did not show up.
const (
	CutoffHour   = 12
	CutoffMinute = 15
)

// DailyCutoff closes the attendance day: scanners go dark, open records
// become absences, and admins get notified.
type DailyCutoff struct {
	settings settings.Service
	ledger   attendance.Service
	notifier notification.Notifier
	logger   *zap.Logger
}

func NewDailyCutoff(settingsSvc settings.Service, ledger attendance.Service, notifier notification.Notifier) *DailyCutoff {
	return &DailyCutoff{
		settings: settingsSvc,
		ledger:   ledger,
		notifier: notifier,
		logger:   zap.L().Named("jobs.cutoff"),
	}
}

// Run executes the cutoff for the day containing now. Safe to re-run: the
// absence update skips rows that are already absent, and disabling a
// disabled scanner changes nothing.
func (j *DailyCutoff) Run(ctx context.Context, now time.Time) error {
	if err := j.settings.SetScannerState(ctx, false, nil); err != nil {
		return err
	}
	if err := j.settings.SetEveningEnabled(ctx, false, nil); err != nil {
		return err
	}

	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), CutoffHour, CutoffMinute, 0, 0, now.Location())

	cadetIDs, err := j.ledger.MarkAbsentCadets(ctx, date, cutoff)
	if err != nil {
		return err
	}

	// Notifications are best effort; a full outbox must not undo the cutoff.
	if j.notifier != nil {
		if err := j.notifier.NotifyScannerState(ctx, false, "daily cutoff"); err != nil {
			j.logger.Error("stage scanner state notification failed", zap.Error(err))
		}
		if len(cadetIDs) > 0 {
			if err := j.notifier.NotifyAbsentCadets(ctx, date, cadetIDs); err != nil {
				j.logger.Error("stage absence notification failed", zap.Error(err))
			}
		}
	}

	j.logger.Info("daily cutoff completed",
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("marked_absent", len(cadetIDs)),
	)
	return nil
}
