package database

import (
	"fmt"

	"lovepage-app/internal/domain/billing"
	"lovepage-app/internal/domain/pages"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table owned by the service layer, in migration order.
func Models() []any {
	return []any{
		&pages.Page{},
		&pages.PublishUsage{},
		&billing.PendingPublish{},
		&billing.Entitlement{},
	}
}

// Open connects to PostgreSQL. The caller owns the returned handle.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates all tables and their unique indexes.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
