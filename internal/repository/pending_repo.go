package repository

import (
	"context"
	"time"

	"lovepage-app/internal/domain/billing"

	"gorm.io/gorm"
)

type PendingRepository struct {
	db *gorm.DB
}

func NewPendingRepository(db *gorm.DB) *PendingRepository {
	return &PendingRepository{db: db}
}

func (r *PendingRepository) Create(ctx context.Context, p *billing.PendingPublish) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PendingRepository) Get(ctx context.Context, sessionID string) (*billing.PendingPublish, error) {
	var p billing.PendingPublish
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// MarkPaid stamps paid_at once; later calls leave the first stamp in place.
func (r *PendingRepository) MarkPaid(ctx context.Context, sessionID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&billing.PendingPublish{}).
		Where("session_id = ? AND paid_at IS NULL", sessionID).
		Update("paid_at", at).Error
}

const (
	DefaultPendingLimit = 100
	MaxPendingLimit     = 500
)

func (r *PendingRepository) unreconciled(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("pending_publishes").
		Joins("LEFT JOIN pages ON pages.entitlement_session_id = pending_publishes.session_id").
		Where("pages.id IS NULL")
}

// ListUnreconciled returns pending publishes that have no page yet, oldest
// first. limit is clamped to (0, MaxPendingLimit].
func (r *PendingRepository) ListUnreconciled(ctx context.Context, limit int) ([]billing.PendingPublish, error) {
	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	if limit > MaxPendingLimit {
		limit = MaxPendingLimit
	}
	var out []billing.PendingPublish
	err := r.unreconciled(ctx).
		Select("pending_publishes.*").
		Order("pending_publishes.created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountUnreconciled counts pending publishes that have no page yet.
func (r *PendingRepository) CountUnreconciled(ctx context.Context) (int64, error) {
	var n int64
	err := r.unreconciled(ctx).Count(&n).Error
	return n, err
}
