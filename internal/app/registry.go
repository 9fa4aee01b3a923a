package app

import (
	"database/sql"
	"net/http"

	"github.com/Project-Zedd/rotc-system-final/internal/attendance"
	"github.com/Project-Zedd/rotc-system-final/internal/cadet"
	"github.com/Project-Zedd/rotc-system-final/internal/duplicate"
	"github.com/Project-Zedd/rotc-system-final/internal/messaging/kafka"
	"github.com/Project-Zedd/rotc-system-final/internal/notification"
	"github.com/Project-Zedd/rotc-system-final/internal/offlinesync"
	"github.com/Project-Zedd/rotc-system-final/internal/settings"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/crypto"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	cipher *crypto.Cipher,
) error {
	// --- Repositories ---
	cadetRepo := cadet.NewRepository(gormDB)
	attendanceRepo := attendance.NewRepository(gormDB)
	duplicateRepo := duplicate.NewRepository(gormDB)
	settingsRepo := settings.NewRepository(gormDB)
	queueRepo := offlinesync.NewQueueRepository(db)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Services ---
	settingsService := settings.NewService(settingsRepo, rdb)
	attendanceService := attendance.NewService(db, attendanceRepo, cadetRepo, settingsService)
	duplicateService := duplicate.NewService(db, duplicateRepo, settingsService)
	detector := duplicate.NewDetector(settingsService)
	notifier := notification.NewOutboxNotifier(outboxRepo)
	syncService := offlinesync.NewService(
		db, queueRepo, attendanceService, cadetRepo,
		duplicateRepo, detector, cipher, settingsService, notifier,
	)

	// --- Handlers ---
	attendanceHandler := attendance.NewHandler(attendanceService)
	duplicateHandler := duplicate.NewHandler(duplicateService)
	settingsHandler := settings.NewHandler(settingsService)
	syncHandler := offlinesync.NewHandler(syncService, rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		attendance.RegisterRoutes(api, attendanceHandler)
		duplicate.RegisterRoutes(api, duplicateHandler)
		settings.RegisterRoutes(api, settingsHandler)
		offlinesync.RegisterRoutes(api, syncHandler, rdb)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return nil
}
