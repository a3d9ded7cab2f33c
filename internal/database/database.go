package database

import (
	"fmt"
	"log/slog"

	"github.com/hugh/go-warden/internal/database/models"
	"github.com/hugh/go-warden/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.SSLMode == "disable" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormLogger,
		// Duplicate-key conflicts from the open-alert unique index must be
		// recognizable as gorm.ErrDuplicatedKey for the upsert retry path.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Info("connected to database", "host", cfg.Host, "database", cfg.Name)

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Alert{}); err != nil {
		return err
	}

	// At most one open alert per (provider, resource_id, policy_id). Resolved
	// and ignored rows keep their history, so the constraint is scoped to the
	// open status. The partial index syntax works on both postgres and sqlite.
	return db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open_dedup
		 ON alerts (provider, resource_id, policy_id) WHERE status = 'open'`,
	).Error
}
