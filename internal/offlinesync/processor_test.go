package offlinesync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Project-Zedd/rotc-system-final/internal/attendance"
	"github.com/Project-Zedd/rotc-system-final/internal/cadet"
	"github.com/Project-Zedd/rotc-system-final/internal/duplicate"
	syncerrors "github.com/Project-Zedd/rotc-system-final/internal/offlinesync/errors"
	"github.com/Project-Zedd/rotc-system-final/internal/settings"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/crypto"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeQueue struct {
	enqueueFn     func(ctx context.Context, deviceID, payload string) (*SyncQueueItem, error)
	getByIDFn     func(ctx context.Context, id uuid.UUID) (*SyncQueueItem, error)
	listPendingFn func(ctx context.Context, limit int) ([]SyncQueueItem, error)
	claimFn       func(ctx context.Context, id uuid.UUID) (bool, error)
	completeFn    func(ctx context.Context, id uuid.UUID, results []byte) error
	failFn        func(ctx context.Context, id uuid.UUID, reason string) error
	retryFn       func(ctx context.Context, deviceID string) (int64, error)
}

func (f *fakeQueue) WithTx(tx *sql.Tx) QueueRepository { return f }
func (f *fakeQueue) Enqueue(ctx context.Context, deviceID, payload string) (*SyncQueueItem, error) {
	return f.enqueueFn(ctx, deviceID, payload)
}
func (f *fakeQueue) GetByID(ctx context.Context, id uuid.UUID) (*SyncQueueItem, error) {
	return f.getByIDFn(ctx, id)
}
func (f *fakeQueue) ListPending(ctx context.Context, limit int) ([]SyncQueueItem, error) {
	return f.listPendingFn(ctx, limit)
}
func (f *fakeQueue) ListPendingByDevice(ctx context.Context, deviceID string, limit int) ([]SyncQueueItem, error) {
	return nil, nil
}
func (f *fakeQueue) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	return f.claimFn(ctx, id)
}
func (f *fakeQueue) Complete(ctx context.Context, id uuid.UUID, results []byte) error {
	return f.completeFn(ctx, id, results)
}
func (f *fakeQueue) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	return f.failFn(ctx, id, reason)
}
func (f *fakeQueue) RetryFailed(ctx context.Context, deviceID string) (int64, error) {
	if f.retryFn != nil {
		return f.retryFn(ctx, deviceID)
	}
	return 0, nil
}
func (f *fakeQueue) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}
func (f *fakeQueue) DeleteCompletedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}
func (f *fakeQueue) CountByStatus(ctx context.Context) (map[string]int64, error) { return nil, nil }
func (f *fakeQueue) DeviceBreakdown(ctx context.Context) ([]DeviceSyncStatus, error) {
	return nil, nil
}
func (f *fakeQueue) DeviceStatus(ctx context.Context, deviceID string) (*DeviceSyncStatus, error) {
	return nil, nil
}
func (f *fakeQueue) History(ctx context.Context, deviceID string, page, limit int) ([]SyncQueueItem, int64, error) {
	return nil, 0, nil
}

type fakeLedger struct {
	createFn func(ctx context.Context, input attendance.CreateAttendanceInput) (*attendance.AttendanceRecord, error)
	checkFn  func(ctx context.Context, cadetID uuid.UUID, ts time.Time, windowSeconds int) ([]attendance.AttendanceRecord, error)
}

func (f *fakeLedger) WithTx(tx *sql.Tx) attendance.Service { return f }
func (f *fakeLedger) CreateAttendance(ctx context.Context, input attendance.CreateAttendanceInput) (*attendance.AttendanceRecord, error) {
	return f.createFn(ctx, input)
}
func (f *fakeLedger) GetTodayAttendance(ctx context.Context, cadetID uuid.UUID) (*attendance.AttendanceRecord, error) {
	return nil, nil
}
func (f *fakeLedger) UpdateTimeOut(ctx context.Context, recordID uuid.UUID, timeOut time.Time, status string) (*attendance.AttendanceRecord, error) {
	return nil, nil
}
func (f *fakeLedger) MarkAbsentCadets(ctx context.Context, date time.Time, cutoff time.Time) ([]uuid.UUID, error) {
	return nil, nil
}
func (f *fakeLedger) CheckDuplicateScan(ctx context.Context, cadetID uuid.UUID, ts time.Time, windowSeconds int) ([]attendance.AttendanceRecord, error) {
	return f.checkFn(ctx, cadetID, ts, windowSeconds)
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

type fakeCadets struct {
	roster map[string]*cadet.Cadet
}

func (f *fakeCadets) FindByID(ctx context.Context, id uuid.UUID) (*cadet.Cadet, error) {
	return nil, nil
}
func (f *fakeCadets) FindByStudentNumber(ctx context.Context, studentNumber string) (*cadet.Cadet, error) {
	return f.roster[studentNumber], nil
}

type fakeLinks struct {
	created []*duplicate.DuplicateLink
}

func (f *fakeLinks) WithTx(tx *sql.Tx) duplicate.Repository { return f }
func (f *fakeLinks) Create(ctx context.Context, link *duplicate.DuplicateLink) error {
	f.created = append(f.created, link)
	return nil
}
func (f *fakeLinks) FindPendingByID(ctx context.Context, id uuid.UUID) (*duplicate.DuplicateLink, error) {
	return nil, nil
}
func (f *fakeLinks) ListPending(ctx context.Context, page, limit int) ([]duplicate.DuplicateLink, int64, error) {
	return nil, 0, nil
}
func (f *fakeLinks) SetReview(ctx context.Context, id uuid.UUID, decision string, reviewedBy *uuid.UUID) error {
	return nil
}
func (f *fakeLinks) AutoApprove(ctx context.Context, thresholdSeconds int) (int64, error) {
	return 0, nil
}
func (f *fakeLinks) DeleteAttendanceRecord(ctx context.Context, attendanceID uuid.UUID) error {
	return nil
}
func (f *fakeLinks) ClearDuplicateFlag(ctx context.Context, attendanceID uuid.UUID) error {
	return nil
}
func (f *fakeLinks) DeleteReviewedOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}
func (f *fakeLinks) CountByReviewStatus(ctx context.Context) (map[string]int64, error) {
	return nil, nil
}

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

type processorFixture struct {
	svc    Service
	queue  *fakeQueue
	ledger *fakeLedger
	links  *fakeLinks
	cipher *crypto.Cipher
	mock   sqlmock.Sqlmock
}

func newProcessorFixture(t *testing.T, queue *fakeQueue, ledger *fakeLedger, roster map[string]*cadet.Cadet) *processorFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cipher, err := crypto.New("processor-test-secret")
	assert.NoError(t, err)

	settingsSvc := settings.NewService(settingsStore{}, nil)
	links := &fakeLinks{}

	svc := NewService(db, queue, ledger, &fakeCadets{roster: roster}, links, duplicate.NewDetector(settingsSvc), cipher, settingsSvc, nil)
	return &processorFixture{svc: svc, queue: queue, ledger: ledger, links: links, cipher: cipher, mock: mock}
}

func encryptEvents(t *testing.T, cipher *crypto.Cipher, events []ScanEvent) string {
	t.Helper()
	raw, err := json.Marshal(events)
	assert.NoError(t, err)
	enc, err := cipher.Encrypt(raw)
	assert.NoError(t, err)
	return enc
}

func pendingItem(id uuid.UUID, payload string) *SyncQueueItem {
	return &SyncQueueItem{
		ID:               id,
		DeviceID:         "scanner-01",
		EncryptedPayload: payload,
		SyncStatus:       SyncStatusPending,
		CreatedAt:        time.Now().UTC(),
	}
}

func TestProcessSyncItem_AppliesBatch(t *testing.T) {
	itemID := uuid.New()
	cadetID := uuid.New()

	ledger := &fakeLedger{
		checkFn: func(ctx context.Context, cid uuid.UUID, ts time.Time, w int) ([]attendance.AttendanceRecord, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, input attendance.CreateAttendanceInput) (*attendance.AttendanceRecord, error) {
			return &attendance.AttendanceRecord{ID: uuid.New(), CadetID: input.CadetID, Status: input.Status}, nil
		},
	}

	var completedResults []byte
	queue := &fakeQueue{
		claimFn: func(ctx context.Context, id uuid.UUID) (bool, error) { return true, nil },
		completeFn: func(ctx context.Context, id uuid.UUID, results []byte) error {
			completedResults = results
			return nil
		},
		failFn: func(ctx context.Context, id uuid.UUID, reason string) error {
			t.Fatalf("unexpected fail: %s", reason)
			return nil
		},
	}

	f := newProcessorFixture(t, queue, ledger, map[string]*cadet.Cadet{
		"2021-00123": {ID: cadetID, StudentNumber: "2021-00123"},
	})

	payload := encryptEvents(t, f.cipher, []ScanEvent{
		{StudentNumber: "2021-00123", Timestamp: "2026-02-10T07:10:00Z"},
		{StudentNumber: "2021-00123", Timestamp: "2026-02-10T08:05:00Z"},
	})
	queue.getByIDFn = func(ctx context.Context, id uuid.UUID) (*SyncQueueItem, error) {
		return pendingItem(id, payload), nil
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	err := f.svc.ProcessSyncItem(context.Background(), itemID)
	assert.NoError(t, err)

	var results []EventResult
	assert.NoError(t, json.Unmarshal(completedResults, &results))
	assert.Len(t, results, 2)
	assert.Equal(t, OutcomeCreated, results[0].Outcome)
	assert.Equal(t, OutcomeCreated, results[1].Outcome)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestProcessSyncItem_LateStatusAfterCutoff(t *testing.T) {
	cadetID := uuid.New()

	var statuses []string
	ledger := &fakeLedger{
		checkFn: func(ctx context.Context, cid uuid.UUID, ts time.Time, w int) ([]attendance.AttendanceRecord, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, input attendance.CreateAttendanceInput) (*attendance.AttendanceRecord, error) {
			statuses = append(statuses, input.Status)
			return &attendance.AttendanceRecord{ID: uuid.New()}, nil
		},
	}
	queue := &fakeQueue{
		claimFn:    func(ctx context.Context, id uuid.UUID) (bool, error) { return true, nil },
		completeFn: func(ctx context.Context, id uuid.UUID, results []byte) error { return nil },
	}

	f := newProcessorFixture(t, queue, ledger, map[string]*cadet.Cadet{
		"2021-00123": {ID: cadetID},
	})

	// Default cutoff is 07:31. One scan before, one after.
	payload := encryptEvents(t, f.cipher, []ScanEvent{
		{StudentNumber: "2021-00123", Timestamp: "2026-02-10T07:30:59Z"},
		{StudentNumber: "2021-00123", Timestamp: "2026-02-10T07:31:00Z"},
	})
	queue.getByIDFn = func(ctx context.Context, id uuid.UUID) (*SyncQueueItem, error) {
		return pendingItem(id, payload), nil
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	assert.NoError(t, f.svc.ProcessSyncItem(context.Background(), uuid.New()))
	assert.Equal(t, []string{attendance.StatusPresent, attendance.StatusLate}, statuses)
}

func TestProcessSyncItem_PartialFailureStillCompletes(t *testing.T) {
	cadetID := uuid.New()

	ledger := &fakeLedger{
		checkFn: func(ctx context.Context, cid uuid.UUID, ts time.Time, w int) ([]attendance.AttendanceRecord, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, input attendance.CreateAttendanceInput) (*attendance.AttendanceRecord, error) {
			return &attendance.AttendanceRecord{ID: uuid.New()}, nil
		},
	}

	var completedResults []byte
	queue := &fakeQueue{
		claimFn: func(ctx context.Context, id uuid.UUID) (bool, error) { return true, nil },
		completeFn: func(ctx context.Context, id uuid.UUID, results []byte) error {
			completedResults = results
			return nil
		},
	}

	f := newProcessorFixture(t, queue, ledger, map[string]*cadet.Cadet{
		"2021-00123": {ID: cadetID},
	})

	payload := encryptEvents(t, f.cipher, []ScanEvent{
		{StudentNumber: "2021-00123", Timestamp: "not-a-timestamp"},
		{StudentNumber: "9999-99999", Timestamp: "2026-02-10T07:10:00Z"},
		{StudentNumber: "2021-00123", Timestamp: "2026-02-10T07:10:00Z"},
	})
	queue.getByIDFn = func(ctx context.Context, id uuid.UUID) (*SyncQueueItem, error) {
		return pendingItem(id, payload), nil
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	assert.NoError(t, f.svc.ProcessSyncItem(context.Background(), uuid.New()))

	var results []EventResult
	assert.NoError(t, json.Unmarshal(completedResults, &results))
	assert.Len(t, results, 3)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.Equal(t, "timestamp is invalid", results[0].Error)
	assert.Equal(t, OutcomeFailed, results[1].Outcome)
	assert.Equal(t, "cadet not found", results[1].Error)
	assert.Equal(t, OutcomeCreated, results[2].Outcome)
}

func TestProcessSyncItem_DuplicateGetsLinked(t *testing.T) {
	cadetID := uuid.New()
	originalID := uuid.New()

	ledger := &fakeLedger{
		checkFn: func(ctx context.Context, cid uuid.UUID, ts time.Time, w int) ([]attendance.AttendanceRecord, error) {
			return []attendance.AttendanceRecord{
				{ID: originalID, CadetID: cid, TimeIn: ts.Add(-3 * time.Second)},
			}, nil
		},
		createFn: func(ctx context.Context, input attendance.CreateAttendanceInput) (*attendance.AttendanceRecord, error) {
			assert.True(t, input.IsDuplicate)
			assert.Equal(t, originalID, *input.DuplicateOf)
			return &attendance.AttendanceRecord{ID: uuid.New(), IsDuplicate: true}, nil
		},
	}

	var completedResults []byte
	queue := &fakeQueue{
		claimFn: func(ctx context.Context, id uuid.UUID) (bool, error) { return true, nil },
		completeFn: func(ctx context.Context, id uuid.UUID, results []byte) error {
			completedResults = results
			return nil
		},
	}

	f := newProcessorFixture(t, queue, ledger, map[string]*cadet.Cadet{
		"2021-00123": {ID: cadetID},
	})

	payload := encryptEvents(t, f.cipher, []ScanEvent{
		{StudentNumber: "2021-00123", Timestamp: "2026-02-10T07:10:03Z"},
	})
	queue.getByIDFn = func(ctx context.Context, id uuid.UUID) (*SyncQueueItem, error) {
		return pendingItem(id, payload), nil
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	assert.NoError(t, f.svc.ProcessSyncItem(context.Background(), uuid.New()))

	assert.Len(t, f.links.created, 1)
	assert.Equal(t, originalID, f.links.created[0].OriginalScanID)
	assert.Equal(t, 3, f.links.created[0].TimeDifferenceSeconds)

	var results []EventResult
	assert.NoError(t, json.Unmarshal(completedResults, &results))
	assert.Equal(t, OutcomeDuplicate, results[0].Outcome)
	assert.Equal(t, originalID.String(), results[0].OriginalID)
}

func TestProcessSyncItem_DecryptFailureIsTerminal(t *testing.T) {
	var failedReason string
	queue := &fakeQueue{
		claimFn: func(ctx context.Context, id uuid.UUID) (bool, error) { return true, nil },
		failFn: func(ctx context.Context, id uuid.UUID, reason string) error {
			failedReason = reason
			return nil
		},
	}
	queue.getByIDFn = func(ctx context.Context, id uuid.UUID) (*SyncQueueItem, error) {
		return pendingItem(id, "not-real-ciphertext"), nil
	}

	f := newProcessorFixture(t, queue, &fakeLedger{}, nil)

	err := f.svc.ProcessSyncItem(context.Background(), uuid.New())
	assert.ErrorIs(t, err, syncerrors.ErrDecryptionFailed)
	assert.NotEmpty(t, failedReason)
}

func TestProcessSyncItem_ClaimConflicts(t *testing.T) {
	cases := []struct {
		name    string
		item    *SyncQueueItem
		wantErr error
	}{
		{"missing item", nil, syncerrors.ErrItemNotFound},
		{"already processing", &SyncQueueItem{SyncStatus: SyncStatusProcessing}, syncerrors.ErrAlreadyProcessing},
		{"already completed", &SyncQueueItem{SyncStatus: SyncStatusCompleted}, syncerrors.ErrAlreadyProcessed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			queue := &fakeQueue{
				claimFn: func(ctx context.Context, id uuid.UUID) (bool, error) { return false, nil },
				getByIDFn: func(ctx context.Context, id uuid.UUID) (*SyncQueueItem, error) {
					return tc.item, nil
				},
			}
			f := newProcessorFixture(t, queue, &fakeLedger{}, nil)

			err := f.svc.ProcessSyncItem(context.Background(), uuid.New())
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestProcessSyncItem_StorageErrorRollsBackAndFails(t *testing.T) {
	cadetID := uuid.New()

	ledger := &fakeLedger{
		checkFn: func(ctx context.Context, cid uuid.UUID, ts time.Time, w int) ([]attendance.AttendanceRecord, error) {
			return nil, nil
		},
		createFn: func(ctx context.Context, input attendance.CreateAttendanceInput) (*attendance.AttendanceRecord, error) {
			return nil, errors.New("connection reset")
		},
	}

	var failed bool
	queue := &fakeQueue{
		claimFn: func(ctx context.Context, id uuid.UUID) (bool, error) { return true, nil },
		completeFn: func(ctx context.Context, id uuid.UUID, results []byte) error {
			t.Fatal("complete must not be called on storage error")
			return nil
		},
		failFn: func(ctx context.Context, id uuid.UUID, reason string) error {
			failed = true
			return nil
		},
	}

	f := newProcessorFixture(t, queue, ledger, map[string]*cadet.Cadet{
		"2021-00123": {ID: cadetID},
	})

	payload := encryptEvents(t, f.cipher, []ScanEvent{
		{StudentNumber: "2021-00123", Timestamp: "2026-02-10T07:10:00Z"},
	})
	queue.getByIDFn = func(ctx context.Context, id uuid.UUID) (*SyncQueueItem, error) {
		return pendingItem(id, payload), nil
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	err := f.svc.ProcessSyncItem(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.True(t, failed)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestEnqueue_RejectsEmptyPayload(t *testing.T) {
	f := newProcessorFixture(t, &fakeQueue{}, &fakeLedger{}, nil)

	_, err := f.svc.Enqueue(context.Background(), EnqueueRequest{DeviceID: "scanner-01"})
	assert.ErrorIs(t, err, syncerrors.ErrEmptyPayload)
}

func TestProcessSyncItem_ExpiredDeadlineStillMarksFailed(t *testing.T) {
	var (
		failCalls int
		failCtx   context.Context
		failedID  uuid.UUID
	)
	queue := &fakeQueue{
		claimFn: func(ctx context.Context, id uuid.UUID) (bool, error) { return true, nil },
		failFn: func(ctx context.Context, id uuid.UUID, reason string) error {
			failCalls++
			failCtx = ctx
			failedID = id
			return nil
		},
	}
	f := newProcessorFixture(t, queue, &fakeLedger{}, nil)

	payload := encryptEvents(t, f.cipher, []ScanEvent{
		{StudentNumber: "2021-00123", Timestamp: "2026-02-10T07:10:00Z"},
	})
	itemID := uuid.New()
	queue.getByIDFn = func(ctx context.Context, id uuid.UUID) (*SyncQueueItem, error) {
		return pendingItem(id, payload), nil
	}

	// The per-item deadline has already fired; BeginTx refuses the dead
	// context before the batch touches the database.
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := f.svc.ProcessSyncItem(ctx, itemID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The failure write must still land, on a live context, or the item
	// would sit in processing until the stale sweep finds it.
	assert.Equal(t, 1, failCalls)
	assert.Equal(t, itemID, failedID)
	assert.NoError(t, failCtx.Err())
}

func TestRetryFailed_PassesDeviceScope(t *testing.T) {
	var gotDevice string
	queue := &fakeQueue{
		retryFn: func(ctx context.Context, deviceID string) (int64, error) {
			gotDevice = deviceID
			return 5, nil
		},
	}
	f := newProcessorFixture(t, queue, &fakeLedger{}, nil)

	count, err := f.svc.RetryFailed(context.Background(), "scanner-03")
	assert.NoError(t, err)
	assert.Equal(t, int64(5), count)
	assert.Equal(t, "scanner-03", gotDevice)
}
