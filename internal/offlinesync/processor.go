package offlinesync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Project-Zedd/rotc-system-final/internal/attendance"
	"github.com/Project-Zedd/rotc-system-final/internal/cadet"
	"github.com/Project-Zedd/rotc-system-final/internal/duplicate"
	"github.com/Project-Zedd/rotc-system-final/internal/notification"
	syncerrors "github.com/Project-Zedd/rotc-system-final/internal/offlinesync/errors"
	"github.com/Project-Zedd/rotc-system-final/internal/settings"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/apperror"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/crypto"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	batchLimit     = 100
	perItemTimeout = 30 * time.Second
)

//go:generate mockgen -source=processor.go -destination=mock/processor_mock.go -package=mock
type Service interface {
	Enqueue(ctx context.Context, req EnqueueRequest) (SyncItemResponse, error)
	GetItem(ctx context.Context, id uuid.UUID) (SyncItemResponse, error)
	ProcessSyncItem(ctx context.Context, id uuid.UUID) error
	ProcessPending(ctx context.Context) BatchResult
	ProcessDevice(ctx context.Context, deviceID string) BatchResult
	RetryFailed(ctx context.Context, deviceID string) (int64, error)
	RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error)
	CleanOldSyncItems(ctx context.Context, olderThan time.Duration) (int64, error)
	Statistics(ctx context.Context) (QueueStatistics, error)
	DeviceStatus(ctx context.Context, deviceID string) (DeviceSyncStatus, error)
	History(ctx context.Context, deviceID string, page, limit int) ([]SyncItemResponse, int64, error)
}

type service struct {
	db       *sql.DB
	queue    QueueRepository
	ledger   attendance.Service
	cadets   cadet.Repository
	links    duplicate.Repository
	detector *duplicate.Detector
	cipher   *crypto.Cipher
	settings settings.Service
	notifier notification.Notifier
	logger   *zap.Logger
}

func NewService(
	db *sql.DB,
	queue QueueRepository,
	ledger attendance.Service,
	cadets cadet.Repository,
	links duplicate.Repository,
	detector *duplicate.Detector,
	cipher *crypto.Cipher,
	settingsSvc settings.Service,
	notifier notification.Notifier,
) Service {
	return &service{
		db:       db,
		queue:    queue,
		ledger:   ledger,
		cadets:   cadets,
		links:    links,
		detector: detector,
		cipher:   cipher,
		settings: settingsSvc,
		notifier: notifier,
		logger:   zap.L().Named("offlinesync"),
	}
}

func (s *service) Enqueue(ctx context.Context, req EnqueueRequest) (SyncItemResponse, error) {
	if req.EncryptedData == "" {
		return SyncItemResponse{}, syncerrors.ErrEmptyPayload
	}

	item, err := s.queue.Enqueue(ctx, req.DeviceID, req.EncryptedData)
	if err != nil {
		return SyncItemResponse{}, apperror.Storage(err)
	}

	s.logger.Info("sync batch queued",
		zap.String("item_id", item.ID.String()),
		zap.String("device_id", item.DeviceID),
	)
	return mapItemToResponse(*item), nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (SyncItemResponse, error) {
	item, err := s.queue.GetByID(ctx, id)
	if err != nil {
		return SyncItemResponse{}, apperror.Storage(err)
	}
	if item == nil {
		return SyncItemResponse{}, syncerrors.ErrItemNotFound
	}
	return mapItemToResponse(*item), nil
}

// ProcessSyncItem replays one queued batch into the attendance ledger. All
// records of a batch land in a single transaction together with the item's
// completion, so a crash mid-batch leaves no half-applied state. Events that
// fail validation are reported in the results document without voiding the
// rest of the batch.
func (s *service) ProcessSyncItem(ctx context.Context, id uuid.UUID) error {
	claimed, err := s.queue.Claim(ctx, id)
	if err != nil {
		return apperror.Storage(err)
	}
	if !claimed {
		item, err := s.queue.GetByID(ctx, id)
		if err != nil {
			return apperror.Storage(err)
		}
		if item == nil {
			return syncerrors.ErrItemNotFound
		}
		if item.SyncStatus == SyncStatusProcessing {
			return syncerrors.ErrAlreadyProcessing
		}
		return syncerrors.ErrAlreadyProcessed
	}

	item, err := s.queue.GetByID(ctx, id)
	if err != nil {
		return apperror.Storage(err)
	}
	if item == nil {
		return syncerrors.ErrItemNotFound
	}

	events, err := s.openPayload(item.EncryptedPayload)
	if err != nil {
		// Retrying cannot fix a payload that will not open. Terminal.
		s.failItem(ctx, id, err.Error())
		return err
	}

	results, err := s.applyBatch(ctx, item, events)
	if err != nil {
		s.failItem(ctx, id, err.Error())
		return apperror.Storage(err)
	}

	s.logger.Info("sync batch processed",
		zap.String("item_id", id.String()),
		zap.String("device_id", item.DeviceID),
		zap.Int("events", len(results)),
	)
	return nil
}

// failItem records a terminal failure on the item. It detaches from ctx's
// deadline: the usual reason we are here is that the per-item deadline just
// fired, and the bookkeeping write must still land or the item sits in
// processing until the stale sweep finds it.
func (s *service) failItem(ctx context.Context, id uuid.UUID, reason string) {
	if err := s.queue.Fail(context.WithoutCancel(ctx), id, reason); err != nil {
		s.logger.Error("mark sync item failed errored",
			zap.String("item_id", id.String()),
			zap.Error(err),
		)
	}
}

func (s *service) openPayload(encrypted string) ([]ScanEvent, error) {
	plaintext, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		return nil, syncerrors.ErrDecryptionFailed
	}

	var events []ScanEvent
	if err := json.Unmarshal(plaintext, &events); err != nil {
		return nil, syncerrors.ErrMalformedPayload
	}
	if len(events) == 0 {
		return nil, syncerrors.ErrMalformedPayload
	}
	return events, nil
}

func (s *service) applyBatch(ctx context.Context, item *SyncQueueItem, events []ScanEvent) ([]EventResult, error) {
	window := s.detector.WindowSeconds(ctx)
	cutoffHHMM, err := s.settings.GetPresentCutoffTime(ctx)
	if err != nil {
		cutoffHHMM = settings.DefaultPresentCutoffTime
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ledger := s.ledger.WithTx(tx)
	links := s.links.WithTx(tx)

	results := make([]EventResult, 0, len(events))
	for i, ev := range events {
		result, err := s.applyEvent(ctx, ledger, links, item, i, ev, window, cutoffHHMM)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	doc, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}
	if err := s.queue.WithTx(tx).Complete(ctx, item.ID, doc); err != nil {
		return nil, err
	}

	// The completion notice rides the same transaction as the records it
	// reports on.
	if s.notifier != nil {
		var created, duplicates, failed int
		for _, r := range results {
			switch r.Outcome {
			case OutcomeCreated:
				created++
			case OutcomeDuplicate:
				duplicates++
			default:
				failed++
			}
		}
		if err := s.notifier.WithTx(tx).NotifySyncCompleted(ctx, item.ID, item.DeviceID, created, duplicates, failed); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *service) applyEvent(
	ctx context.Context,
	ledger attendance.Service,
	links duplicate.Repository,
	item *SyncQueueItem,
	index int,
	ev ScanEvent,
	windowSeconds int,
	cutoffHHMM string,
) (EventResult, error) {
	result := EventResult{Index: index, StudentNumber: ev.StudentNumber}

	if ev.StudentNumber == "" {
		result.Outcome = OutcomeFailed
		result.Error = "student_number is required"
		return result, nil
	}
	ts, err := time.Parse(time.RFC3339, ev.Timestamp)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Error = "timestamp is invalid"
		return result, nil
	}
	ts = ts.UTC()

	c, err := s.cadets.FindByStudentNumber(ctx, ev.StudentNumber)
	if err != nil {
		return result, err
	}
	if c == nil {
		result.Outcome = OutcomeFailed
		result.Error = "cadet not found"
		return result, nil
	}

	verdict, err := s.detector.Detect(ctx, ledger, c.ID, ts, windowSeconds)
	if err != nil {
		return result, err
	}

	input := attendance.CreateAttendanceInput{
		CadetID:     c.ID,
		Date:        time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
		TimeIn:      ts,
		Status:      statusAt(ts, cutoffHHMM),
		EventName:   ev.EventName,
		Location:    ev.Location,
		IsDuplicate: verdict.IsDuplicate,
		SyncStatus:  attendance.SyncStatusSynced,
		DeviceID:    &item.DeviceID,
	}
	if verdict.IsDuplicate {
		originalID := verdict.OriginalID
		input.DuplicateOf = &originalID
	}

	rec, err := ledger.CreateAttendance(ctx, input)
	if err != nil {
		return result, err
	}
	result.AttendanceID = rec.ID.String()

	if verdict.IsDuplicate {
		link := &duplicate.DuplicateLink{
			OriginalScanID:        verdict.OriginalID,
			DuplicateScanID:       rec.ID,
			TimeDifferenceSeconds: verdict.TimeDifferenceSeconds,
		}
		if err := links.Create(ctx, link); err != nil {
			return result, err
		}
		result.Outcome = OutcomeDuplicate
		result.OriginalID = verdict.OriginalID.String()
		return result, nil
	}

	result.Outcome = OutcomeCreated
	return result, nil
}

func statusAt(ts time.Time, cutoffHHMM string) string {
	var hour, minute int
	if _, err := fmt.Sscanf(cutoffHHMM, "%d:%d", &hour, &minute); err != nil {
		hour, minute = 7, 31
	}
	cutoff := time.Date(ts.Year(), ts.Month(), ts.Day(), hour, minute, 0, 0, ts.Location())
	if ts.Before(cutoff) {
		return attendance.StatusPresent
	}
	return attendance.StatusLate
}

func (s *service) ProcessPending(ctx context.Context) BatchResult {
	items, err := s.queue.ListPending(ctx, batchLimit)
	if err != nil {
		s.logger.Error("list pending sync items failed", zap.Error(err))
		return BatchResult{}
	}
	return s.processItems(ctx, items)
}

func (s *service) ProcessDevice(ctx context.Context, deviceID string) BatchResult {
	items, err := s.queue.ListPendingByDevice(ctx, deviceID, batchLimit)
	if err != nil {
		s.logger.Error("list pending sync items failed",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return BatchResult{}
	}
	return s.processItems(ctx, items)
}

// processItems runs items FIFO, each under its own claim and timeout. One
// item's failure never touches its siblings.
func (s *service) processItems(ctx context.Context, items []SyncQueueItem) BatchResult {
	result := BatchResult{}
	for _, item := range items {
		itemCtx, cancel := context.WithTimeout(ctx, perItemTimeout)
		err := s.ProcessSyncItem(itemCtx, item.ID)
		cancel()
		if err != nil {
			s.logger.Error("process sync item failed",
				zap.String("item_id", item.ID.String()),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, item.ID.String())
			continue
		}
		result.Processed++
	}
	return result
}

// RetryFailed requeues failed items, all of them or just one device's when
// deviceID is non-empty.
func (s *service) RetryFailed(ctx context.Context, deviceID string) (int64, error) {
	count, err := s.queue.RetryFailed(ctx, deviceID)
	if err != nil {
		return 0, apperror.Storage(err)
	}
	if count > 0 {
		fields := []zap.Field{zap.Int64("count", count)}
		if deviceID != "" {
			fields = append(fields, zap.String("device_id", deviceID))
		}
		s.logger.Info("requeued failed sync items", fields...)
	}
	return count, nil
}

func (s *service) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	count, err := s.queue.RecoverStale(ctx, olderThan)
	if err != nil {
		return 0, apperror.Storage(err)
	}
	if count > 0 {
		s.logger.Warn("recovered stale sync items",
			zap.Int64("count", count),
			zap.Duration("older_than", olderThan),
		)
	}
	return count, nil
}

func (s *service) CleanOldSyncItems(ctx context.Context, olderThan time.Duration) (int64, error) {
	before := time.Now().UTC().Add(-olderThan)
	count, err := s.queue.DeleteCompletedBefore(ctx, before)
	if err != nil {
		return 0, apperror.Storage(err)
	}
	return count, nil
}

func (s *service) Statistics(ctx context.Context) (QueueStatistics, error) {
	counts, err := s.queue.CountByStatus(ctx)
	if err != nil {
		return QueueStatistics{}, apperror.Storage(err)
	}
	devices, err := s.queue.DeviceBreakdown(ctx)
	if err != nil {
		return QueueStatistics{}, apperror.Storage(err)
	}
	stats := QueueStatistics{
		Pending:    counts[SyncStatusPending],
		Processing: counts[SyncStatusProcessing],
		Completed:  counts[SyncStatusCompleted],
		Failed:     counts[SyncStatusFailed],
		Devices:    devices,
	}
	stats.Total = stats.Pending + stats.Processing + stats.Completed + stats.Failed
	return stats, nil
}

func (s *service) DeviceStatus(ctx context.Context, deviceID string) (DeviceSyncStatus, error) {
	status, err := s.queue.DeviceStatus(ctx, deviceID)
	if err != nil {
		return DeviceSyncStatus{}, apperror.Storage(err)
	}
	return *status, nil
}

func (s *service) History(ctx context.Context, deviceID string, page, limit int) ([]SyncItemResponse, int64, error) {
	items, total, err := s.queue.History(ctx, deviceID, page, limit)
	if err != nil {
		return nil, 0, apperror.Storage(err)
	}
	res := make([]SyncItemResponse, len(items))
	for i, item := range items {
		res[i] = mapItemToResponse(item)
	}
	return res, total, nil
}
