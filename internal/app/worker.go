package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Project-Zedd/rotc-system-final/internal/attendance"
	"github.com/Project-Zedd/rotc-system-final/internal/cadet"
	"github.com/Project-Zedd/rotc-system-final/internal/duplicate"
	"github.com/Project-Zedd/rotc-system-final/internal/jobs"
	"github.com/Project-Zedd/rotc-system-final/internal/messaging/kafka"
	"github.com/Project-Zedd/rotc-system-final/internal/messaging/kafka/producer"
	"github.com/Project-Zedd/rotc-system-final/internal/notification"
	"github.com/Project-Zedd/rotc-system-final/internal/offlinesync"
	"github.com/Project-Zedd/rotc-system-final/internal/settings"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/connection"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/crypto"

	"go.uber.org/zap"
)

// RunWorker hosts the background side of the system: the notification outbox
// producer, the sync queue drain, and the maintenance scheduler.
func RunWorker() error {
	logger := zap.L().Named("app.worker")

	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	kafkaBroker := os.Getenv("KAFKA_BROKER")
	if kafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	kafkaWriter, err := connection.ConnectKafkaWithRetry(kafkaBroker, 5)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	cipher, err := crypto.New(os.Getenv("ENCRYPTION_KEY"))
	if err != nil {
		return fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}

	cadetRepo := cadet.NewRepository(gormDB)
	attendanceRepo := attendance.NewRepository(gormDB)
	duplicateRepo := duplicate.NewRepository(gormDB)
	settingsRepo := settings.NewRepository(gormDB)
	queueRepo := offlinesync.NewQueueRepository(sqlDB)
	outboxRepo := kafka.NewOutboxRepository(sqlDB)

	settingsService := settings.NewService(settingsRepo, redisClient)
	attendanceService := attendance.NewService(sqlDB, attendanceRepo, cadetRepo, settingsService)
	duplicateService := duplicate.NewService(sqlDB, duplicateRepo, settingsService)
	detector := duplicate.NewDetector(settingsService)
	notifier := notification.NewOutboxNotifier(outboxRepo)
	syncService := offlinesync.NewService(
		sqlDB, queueRepo, attendanceService, cadetRepo,
		duplicateRepo, detector, cipher, settingsService, notifier,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go producer.ProcessOutboxEvents(
		ctx,
		outboxRepo,
		kafkaWriter,
		logger,
		3*time.Second,
	)

	go offlinesync.RunDrainWorker(ctx, syncService, settingsService, logger)

	cutoff := jobs.NewDailyCutoff(settingsService, attendanceService, notifier)
	scheduler := jobs.NewScheduler(cutoff, attendanceService, duplicateService, syncService)
	go scheduler.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()

	return nil
}
