package duplicate

import (
	"context"
	"time"

	"github.com/Project-Zedd/rotc-system-final/internal/attendance"
	"github.com/Project-Zedd/rotc-system-final/internal/settings"

	"github.com/google/uuid"
)

// Verdict is the outcome of checking one incoming scan against the ledger.
type Verdict struct {
	IsDuplicate           bool
	OriginalID            uuid.UUID
	TimeDifferenceSeconds int
}

// Ledger is the read surface the detector needs from the attendance service.
type Ledger interface {
	CheckDuplicateScan(ctx context.Context, cadetID uuid.UUID, timestamp time.Time, windowSeconds int) ([]attendance.AttendanceRecord, error)
}

// Detector flags incoming scans that collide with an existing record inside
// the configured window. It never writes attendance rows itself.
type Detector struct {
	settings settings.Service
}

func NewDetector(settingsSvc settings.Service) *Detector {
	return &Detector{settings: settingsSvc}
}

func (d *Detector) WindowSeconds(ctx context.Context) int {
	seconds, err := d.settings.GetDuplicateScanWindowSeconds(ctx)
	if err != nil {
		return settings.DefaultDuplicateScanWindowSeconds
	}
	return seconds
}

// Detect checks timestamp against the ledger through the given handle, so the
// sync processor can pass a transaction-bound ledger and see rows inserted
// earlier in the same batch. A window of zero disables detection entirely.
// When several existing records fall inside the window, the newest one is the
// canonical original.
func (d *Detector) Detect(ctx context.Context, ledger Ledger, cadetID uuid.UUID, timestamp time.Time, windowSeconds int) (Verdict, error) {
	if windowSeconds <= 0 {
		return Verdict{}, nil
	}

	rows, err := ledger.CheckDuplicateScan(ctx, cadetID, timestamp, windowSeconds)
	if err != nil {
		return Verdict{}, err
	}
	if len(rows) == 0 {
		return Verdict{}, nil
	}

	original := rows[0]
	diff := timestamp.Sub(original.TimeIn)
	if diff < 0 {
		diff = -diff
	}
	return Verdict{
		IsDuplicate:           true,
		OriginalID:            original.ID,
		TimeDifferenceSeconds: int(diff / time.Second),
	}, nil
}
