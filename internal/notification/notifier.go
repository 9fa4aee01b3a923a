// Package notification turns domain happenings into outbox rows. A producer
// worker drains the outbox to Kafka, so notifications survive crashes and
// never block the caller.
package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Project-Zedd/rotc-system-final/internal/events"
	"github.com/Project-Zedd/rotc-system-final/internal/messaging/kafka"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=notifier.go -destination=mock/notifier_mock.go -package=mock
type Notifier interface {
	// WithTx stages notifications inside a caller-owned transaction, so the
	// outbox row commits or rolls back with the change it announces.
	WithTx(tx *sql.Tx) Notifier

	NotifyAbsentCadets(ctx context.Context, date time.Time, cadetIDs []uuid.UUID) error
	NotifyScannerState(ctx context.Context, enabled bool, reason string) error
	NotifySyncCompleted(ctx context.Context, itemID uuid.UUID, deviceID string, created, duplicates, failed int) error
}

type outboxNotifier struct {
	outbox kafka.OutboxRepository
	logger *zap.Logger
}

func NewOutboxNotifier(outbox kafka.OutboxRepository) Notifier {
	return &outboxNotifier{
		outbox: outbox,
		logger: zap.L().Named("notification"),
	}
}

func (n *outboxNotifier) WithTx(tx *sql.Tx) Notifier {
	return &outboxNotifier{outbox: n.outbox.WithTx(tx), logger: n.logger}
}

func (n *outboxNotifier) stage(ctx context.Context, eventType, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := kafka.OutboxEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		Topic:     topic,
		Payload:   body,
		Status:    kafka.OutboxStatusPending,
	}
	if err := kafka.ValidateOutboxEvent(event); err != nil {
		return err
	}
	return n.outbox.Create(ctx, event)
}

func (n *outboxNotifier) NotifyAbsentCadets(ctx context.Context, date time.Time, cadetIDs []uuid.UUID) error {
	ids := make([]string, len(cadetIDs))
	for i, id := range cadetIDs {
		ids[i] = id.String()
	}

	return n.stage(ctx, "absent_cadets_marked", events.AttendanceAlertsTopic, events.AbsentCadetsMarkedEvent{
		EventType:   "absent_cadets_marked",
		Date:        date.Format("2006-01-02"),
		CadetIDs:    ids,
		AbsentCount: len(ids),
		OccurredAt:  time.Now().UTC(),
	})
}

func (n *outboxNotifier) NotifyScannerState(ctx context.Context, enabled bool, reason string) error {
	return n.stage(ctx, "scanner_state_changed", events.ScannerEventsTopic, events.ScannerStateChangedEvent{
		EventType:  "scanner_state_changed",
		Enabled:    enabled,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
}

func (n *outboxNotifier) NotifySyncCompleted(ctx context.Context, itemID uuid.UUID, deviceID string, created, duplicates, failed int) error {
	return n.stage(ctx, "sync_batch_completed", events.SyncEventsTopic, events.SyncBatchCompletedEvent{
		EventType:  "sync_batch_completed",
		ItemID:     itemID.String(),
		DeviceID:   deviceID,
		Created:    created,
		Duplicates: duplicates,
		Failed:     failed,
		OccurredAt: time.Now().UTC(),
	})
}
