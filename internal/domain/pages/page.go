package pages

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusPublished = "published"
)

// Page is a published artifact. It is written exactly once per slug.
type Page struct {
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"`

	Slug       string `gorm:"type:varchar(32);not null;uniqueIndex:idx_pages_slug" json:"slug"`
	TemplateID string `gorm:"type:varchar(64);not null;index" json:"template_id"`
	Plan       string `gorm:"type:varchar(32);not null;default:'free'" json:"plan"`
	Status     string `gorm:"type:varchar(20);not null;default:'published'" json:"status"`

	Document json.RawMessage `gorm:"type:jsonb;not null" json:"doc"`

	// Set for paid pages only. Unique so a payment session can never back
	// more than one page.
	EntitlementSessionID *string `gorm:"type:varchar(255);uniqueIndex:idx_pages_entitlement_session_id" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Page) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// IsPaid reports whether the page was published through checkout.
func (p *Page) IsPaid() bool {
	return p.EntitlementSessionID != nil && *p.EntitlementSessionID != ""
}

// PublishUsage counts free publishes per pseudo-anonymous client.
type PublishUsage struct {
	ClientID     string `gorm:"type:varchar(128);primaryKey" json:"client_id"`
	PublishCount int    `gorm:"not null;default:0" json:"publish_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PublishUsage) TableName() string {
	return "publish_usage"
}
