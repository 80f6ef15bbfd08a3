package repository

import (
	"context"

	"lovepage-app/internal/domain/pages"

	"gorm.io/gorm"
)

type PageRepository struct {
	db *gorm.DB
}

func NewPageRepository(db *gorm.DB) *PageRepository {
	return &PageRepository{db: db}
}

// Create inserts p. Slug and session back-reference collisions surface as
// unique violations (see IsUniqueViolation).
func (r *PageRepository) Create(ctx context.Context, p *pages.Page) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PageRepository) FindBySlug(ctx context.Context, slug string) (*pages.Page, error) {
	var p pages.Page
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// FindBySession returns the page published for a payment session.
func (r *PageRepository) FindBySession(ctx context.Context, sessionID string) (*pages.Page, error) {
	var p pages.Page
	if err := r.db.WithContext(ctx).Where("entitlement_session_id = ?", sessionID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

type PageCounts struct {
	Total int64 `json:"total"`
	Paid  int64 `json:"paid"`
	Free  int64 `json:"free"`
}

func (r *PageRepository) Counts(ctx context.Context) (PageCounts, error) {
	var out PageCounts
	db := r.db.WithContext(ctx).Model(&pages.Page{})
	if err := db.Count(&out.Total).Error; err != nil {
		return out, err
	}
	if err := r.db.WithContext(ctx).Model(&pages.Page{}).
		Where("entitlement_session_id IS NOT NULL").
		Count(&out.Paid).Error; err != nil {
		return out, err
	}
	out.Free = out.Total - out.Paid
	return out, nil
}
