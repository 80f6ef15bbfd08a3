package repository

import (
	"context"

	"lovepage-app/internal/domain/billing"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EntitlementRepository struct {
	db *gorm.DB
}

func NewEntitlementRepository(db *gorm.DB) *EntitlementRepository {
	return &EntitlementRepository{db: db}
}

// Upsert creates the entitlement or refreshes plan/status/email on conflict.
func (r *EntitlementRepository) Upsert(ctx context.Context, e *billing.Entitlement) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan", "status", "customer_email", "updated_at"}),
	}).Create(e).Error
}

func (r *EntitlementRepository) Get(ctx context.Context, sessionID string) (*billing.Entitlement, error) {
	var e billing.Entitlement
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&e).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (r *EntitlementRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&billing.Entitlement{}).Count(&n).Error
	return n, err
}
