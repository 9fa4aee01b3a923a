package jobs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/Project-Zedd/rotc-system-final/internal/attendance"
	"github.com/Project-Zedd/rotc-system-final/internal/duplicate"
	"github.com/Project-Zedd/rotc-system-final/internal/notification"
	"github.com/Project-Zedd/rotc-system-final/internal/offlinesync"
	"github.com/Project-Zedd/rotc-system-final/internal/settings"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type settingsStore map[string]string

func (s settingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}
func (s settingsStore) Set(ctx context.Context, key, value string, updatedBy *uuid.UUID) error {
	s[key] = value
	return nil
}
func (s settingsStore) GetAll(ctx context.Context) (map[string]string, error) {
	return s, nil
}

type fakeLedger struct {
	markAbsentFn func(ctx context.Context, date, cutoff time.Time) ([]uuid.UUID, error)
}

func (f *fakeLedger) WithTx(tx *sql.Tx) attendance.Service { return f }
func (f *fakeLedger) CreateAttendance(ctx context.Context, input attendance.CreateAttendanceInput) (*attendance.AttendanceRecord, error) {
	return nil, nil
}
func (f *fakeLedger) GetTodayAttendance(ctx context.Context, cadetID uuid.UUID) (*attendance.AttendanceRecord, error) {
	return nil, nil
}
func (f *fakeLedger) UpdateTimeOut(ctx context.Context, recordID uuid.UUID, timeOut time.Time, status string) (*attendance.AttendanceRecord, error) {
	return nil, nil
}
func (f *fakeLedger) MarkAbsentCadets(ctx context.Context, date time.Time, cutoff time.Time) ([]uuid.UUID, error) {
	return f.markAbsentFn(ctx, date, cutoff)
}
func (f *fakeLedger) CheckDuplicateScan(ctx context.Context, cadetID uuid.UUID, ts time.Time, windowSeconds int) ([]attendance.AttendanceRecord, error) {
	return nil, nil
}
func (f *fakeLedger) Scan(ctx context.Context, req attendance.ScanRequest) (attendance.AttendanceResponse, error) {
	return attendance.AttendanceResponse{}, nil
}
func (f *fakeLedger) ManualEntry(ctx context.Context, req attendance.ManualEntryRequest) (attendance.AttendanceResponse, error) {
	return attendance.AttendanceResponse{}, nil
}
func (f *fakeLedger) GetLogs(ctx context.Context, filter attendance.LogFilter, page, limit int) ([]attendance.AttendanceResponse, int64, error) {
	return nil, 0, nil
}
func (f *fakeLedger) GetCadetStats(ctx context.Context, cadetID uuid.UUID, semester *int) ([]attendance.CadetSemesterStats, error) {
	return nil, nil
}
func (f *fakeLedger) CleanOldAttendance(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

type fakeNotifier struct {
	absentDates  []time.Time
	absentCounts []int
	scannerOff   int
}

func (f *fakeNotifier) WithTx(tx *sql.Tx) notification.Notifier { return f }
func (f *fakeNotifier) NotifyAbsentCadets(ctx context.Context, date time.Time, cadetIDs []uuid.UUID) error {
	f.absentDates = append(f.absentDates, date)
	f.absentCounts = append(f.absentCounts, len(cadetIDs))
	return nil
}
func (f *fakeNotifier) NotifyScannerState(ctx context.Context, enabled bool, reason string) error {
	if !enabled {
		f.scannerOff++
	}
	return nil
}
func (f *fakeNotifier) NotifySyncCompleted(ctx context.Context, itemID uuid.UUID, deviceID string, created, duplicates, failed int) error {
	return nil
}

func TestDailyCutoff_ClosesTheDay(t *testing.T) {
	store := settingsStore{settings.KeyScannerState: "on", settings.KeyEveningEnabled: "on"}
	settingsSvc := settings.NewService(store, nil)

	var gotDate, gotCutoff time.Time
	ledger := &fakeLedger{
		markAbsentFn: func(ctx context.Context, date, cutoff time.Time) ([]uuid.UUID, error) {
			gotDate, gotCutoff = date, cutoff
			return []uuid.UUID{uuid.New(), uuid.New()}, nil
		},
	}
	notifier := &fakeNotifier{}

	job := NewDailyCutoff(settingsSvc, ledger, notifier)
	now := time.Date(2026, 2, 10, 12, 15, 3, 0, time.UTC)
	assert.NoError(t, job.Run(context.Background(), now))

	assert.Equal(t, "off", store[settings.KeyScannerState])
	assert.Equal(t, "off", store[settings.KeyEveningEnabled])
	assert.Equal(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), gotDate)
	assert.Equal(t, time.Date(2026, 2, 10, 12, 15, 0, 0, time.UTC), gotCutoff)
	assert.Equal(t, 1, notifier.scannerOff)
	assert.Equal(t, []int{2}, notifier.absentCounts)
}

func TestDailyCutoff_RerunWithNoOpenRecordsStaysQuiet(t *testing.T) {
	settingsSvc := settings.NewService(settingsStore{}, nil)
	ledger := &fakeLedger{
		markAbsentFn: func(ctx context.Context, date, cutoff time.Time) ([]uuid.UUID, error) {
			return nil, nil
		},
	}
	notifier := &fakeNotifier{}

	job := NewDailyCutoff(settingsSvc, ledger, notifier)
	now := time.Date(2026, 2, 10, 12, 20, 0, 0, time.UTC)
	assert.NoError(t, job.Run(context.Background(), now))
	assert.NoError(t, job.Run(context.Background(), now))

	// Scanner-off notices repeat; absence notices do not.
	assert.Empty(t, notifier.absentCounts)
	assert.Equal(t, 2, notifier.scannerOff)
}

type fakeDuplicates struct {
	autoApproves int
}

func (f *fakeDuplicates) ListPending(ctx context.Context, page, limit int) ([]duplicate.DuplicateLinkResponse, int64, error) {
	return nil, 0, nil
}
func (f *fakeDuplicates) Review(ctx context.Context, linkID uuid.UUID, decision string, reviewedBy *uuid.UUID) error {
	return nil
}
func (f *fakeDuplicates) BulkReview(ctx context.Context, linkIDs []uuid.UUID, decision string, reviewedBy *uuid.UUID) duplicate.BulkReviewResult {
	return duplicate.BulkReviewResult{}
}
func (f *fakeDuplicates) AutoApprove(ctx context.Context) (int64, error) {
	f.autoApproves++
	return 0, nil
}
func (f *fakeDuplicates) CleanOldReviewed(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}
func (f *fakeDuplicates) Statistics(ctx context.Context) (duplicate.ReviewStatistics, error) {
	return duplicate.ReviewStatistics{}, nil
}

type fakeSync struct {
	recoveries []time.Duration
}

func (f *fakeSync) Enqueue(ctx context.Context, req offlinesync.EnqueueRequest) (offlinesync.SyncItemResponse, error) {
	return offlinesync.SyncItemResponse{}, nil
}
func (f *fakeSync) GetItem(ctx context.Context, id uuid.UUID) (offlinesync.SyncItemResponse, error) {
	return offlinesync.SyncItemResponse{}, nil
}
func (f *fakeSync) ProcessSyncItem(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeSync) ProcessPending(ctx context.Context) offlinesync.BatchResult {
	return offlinesync.BatchResult{}
}
func (f *fakeSync) ProcessDevice(ctx context.Context, deviceID string) offlinesync.BatchResult {
	return offlinesync.BatchResult{}
}
func (f *fakeSync) RetryFailed(ctx context.Context, deviceID string) (int64, error) { return 0, nil }
func (f *fakeSync) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.recoveries = append(f.recoveries, olderThan)
	return 0, nil
}
func (f *fakeSync) CleanOldSyncItems(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}
func (f *fakeSync) Statistics(ctx context.Context) (offlinesync.QueueStatistics, error) {
	return offlinesync.QueueStatistics{}, nil
}
func (f *fakeSync) DeviceStatus(ctx context.Context, deviceID string) (offlinesync.DeviceSyncStatus, error) {
	return offlinesync.DeviceSyncStatus{}, nil
}
func (f *fakeSync) History(ctx context.Context, deviceID string, page, limit int) ([]offlinesync.SyncItemResponse, int64, error) {
	return nil, 0, nil
}

func TestScheduler_CutoffFiresOncePerDay(t *testing.T) {
	settingsSvc := settings.NewService(settingsStore{}, nil)

	cutoffRuns := 0
	ledger := &fakeLedger{
		markAbsentFn: func(ctx context.Context, date, cutoff time.Time) ([]uuid.UUID, error) {
			cutoffRuns++
			return nil, nil
		},
	}
	dupes := &fakeDuplicates{}
	syncSvc := &fakeSync{}

	sched := NewScheduler(NewDailyCutoff(settingsSvc, ledger, nil), ledger, dupes, syncSvc)

	before := time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC)
	after := time.Date(2026, 2, 10, 12, 16, 0, 0, time.UTC)
	nextDay := time.Date(2026, 2, 11, 12, 16, 0, 0, time.UTC)

	sched.tick(context.Background(), before)
	assert.Equal(t, 0, cutoffRuns)

	sched.tick(context.Background(), after)
	sched.tick(context.Background(), after.Add(time.Minute))
	assert.Equal(t, 1, cutoffRuns)

	sched.tick(context.Background(), nextDay)
	assert.Equal(t, 2, cutoffRuns)

	// Sweeps run on every tick regardless of the cutoff.
	assert.Equal(t, 4, dupes.autoApproves)
	assert.Len(t, syncSvc.recoveries, 4)
	assert.Equal(t, staleThreshold, syncSvc.recoveries[0])
}
