package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"krishi-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Open(dsn string, debug bool) (*gorm.DB, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("could not connect to postgres: %w", err)
	}
	return db, nil
}

func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.CropListing{},
		&models.Quotation{},
		&models.AuditLog{},
		&models.Counter{},
	)
	if err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	// newest-first list pages filtered by status
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_crop_listings_status_created ON crop_listings(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_quotations_status_created ON quotations(status, created_at DESC)",
	}
	for _, s := range stmts {
		if err := db.WithContext(ctx).Exec(s).Error; err != nil {
			slog.Warn("index creation failed", slog.String("statement", s), slog.Any("error", err))
		}
	}

	slog.Info("postgres migration finished")
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
