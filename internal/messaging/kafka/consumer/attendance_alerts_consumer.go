package consumer

import (
	"context"
	"encoding/json"

	"github.com/Project-Zedd/rotc-system-final/internal/bootstrap"
	"github.com/Project-Zedd/rotc-system-final/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ConsumeAttendanceAlerts records absence alerts on the audit trail. The
// delivery channels themselves (SMS gateways and the like) sit outside this
// service and subscribe to the same topic.
func ConsumeAttendanceAlerts(
	ctx context.Context,
	reader *kafkago.Reader,
	auditLogger bootstrap.AuditLogger,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.attendance_alerts")
	log.Info("attendance alerts consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("attendance alerts consumer stopped")
				return
			}
			log.Error("fetch attendance alert failed", zap.Error(err))
			continue
		}

		var event events.AbsentCadetsMarkedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode absent_cadets_marked event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		auditLogger.Log(ctx, bootstrap.AuditLog{
			Action:  "ABSENT_CADETS_MARKED",
			Message: "Daily cutoff marked cadets absent",
			Meta: map[string]any{
				"date":         event.Date,
				"absent_count": event.AbsentCount,
			},
		})

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit attendance alert failed", zap.Error(err))
			continue
		}

		log.Info("attendance alert recorded",
			zap.String("date", event.Date),
			zap.Int("absent_count", event.AbsentCount),
		)
	}
}
