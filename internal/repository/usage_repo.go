package repository

import (
	"context"
	"time"

	"lovepage-app/internal/domain/pages"

	"gorm.io/gorm"
)

type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// The ceiling check and the increment happen in one statement; when the
// WHERE fails no row is returned and nothing is written.
const incrementWithCeilingSQL = `
INSERT INTO publish_usage (client_id, publish_count, created_at, updated_at)
VALUES (?, 1, ?, ?)
ON CONFLICT (client_id) DO UPDATE
SET publish_count = publish_usage.publish_count + 1, updated_at = excluded.updated_at
WHERE publish_usage.publish_count < ?
RETURNING publish_count`

// IncrementWithCeiling atomically bumps the client's counter if it is below
// limit. It returns the new count and true, or false when the ceiling was hit.
func (r *UsageRepository) IncrementWithCeiling(ctx context.Context, clientID string, limit int) (int, bool, error) {
	if limit <= 0 {
		return 0, false, nil
	}
	now := time.Now().UTC()
	var rows []struct {
		PublishCount int `gorm:"column:publish_count"`
	}
	if err := r.db.WithContext(ctx).Raw(incrementWithCeilingSQL, clientID, now, now, limit).Scan(&rows).Error; err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].PublishCount, true, nil
}

// Count returns the stored publish count, 0 for unknown clients.
func (r *UsageRepository) Count(ctx context.Context, clientID string) (int, error) {
	var u pages.PublishUsage
	err := r.db.WithContext(ctx).Where("client_id = ?", clientID).First(&u).Error
	if err != nil {
		if err = notFound(err); err == ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return u.PublishCount, nil
}
