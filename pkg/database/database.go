package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Logger = zap.NewNop()
	DB     *gorm.DB
)

// InitDB opens DB for the "sqlite" or "postgres" backend.
func InitDB(backend, dsn string) error {
	var dialector gorm.Dialector
	switch backend {
	case "sqlite":
		if dsn == "" {
			dsn = "data/profiles.db"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		if dsn == "" {
			return fmt.Errorf("DATABASE_DSN is required for the postgres backend")
		}
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database backend %q", backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		Logger.Error("Failed to connect database", zap.String("backend", backend), zap.Error(err))
		return fmt.Errorf("open %s: %w", backend, err)
	}

	DB = db
	Logger.Info("Connected with database", zap.String("backend", backend))
	return nil
}

func CloseDB() {
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err != nil {
		Logger.Error("Error getting database handle", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		Logger.Error("Error closing database connection", zap.Error(err))
		return
	}
	Logger.Info("Database connection closed")
}
