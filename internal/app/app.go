package app

import (
	"fmt"
	"os"

	"github.com/Project-Zedd/rotc-system-final/internal/database"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/connection"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/crypto"

	"github.com/gin-gonic/gin"
)

func BuildApp(router *gin.Engine) error {
	// 1. Setup Infrastructure
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

	if err := database.Migrate(sqlDB); err != nil {
		return err
	}

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return err
	}

	cipher, err := crypto.New(os.Getenv("ENCRYPTION_KEY"))
	if err != nil {
		return fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}

	// Register Modules & Routes
	return registerModules(router, sqlDB, gormDB, redisClient, cipher)
}
