package billing

import (
	"encoding/json"
	"time"
)

// PendingPublish holds an already coerced document while checkout is
// outstanding. The page back-reference, not this row, is the idempotency
// guard, so the row may be read many times before a page exists.
type PendingPublish struct {
	SessionID  string          `gorm:"type:varchar(255);primaryKey" json:"session_id"`
	TemplateID string          `gorm:"type:varchar(64);not null" json:"template_id"`
	Plan       string          `gorm:"type:varchar(32);not null" json:"plan"`
	Document   json.RawMessage `gorm:"type:jsonb;not null" json:"doc"`
	ClientID   *string         `gorm:"type:varchar(128);index" json:"-"`

	PaidAt *time.Time `json:"paid_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PendingPublish) TableName() string {
	return "pending_publishes"
}
