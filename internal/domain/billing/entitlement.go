package billing

import "time"

const (
	EntitlementActive = "active"
)

// Entitlement records a paid plan grant. Upserted on payment confirmation,
// never deleted.
type Entitlement struct {
	SessionID     string  `gorm:"type:varchar(255);primaryKey" json:"session_id"`
	Plan          string  `gorm:"type:varchar(32);not null" json:"plan"`
	Status        string  `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CustomerEmail *string `gorm:"type:varchar(320)" json:"customer_email,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
