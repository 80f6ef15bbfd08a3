package payments

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by a Provider when the session id is unknown
// to the payment processor.
var ErrSessionNotFound = errors.New("checkout session not found")

// PaymentStatusPaid is the only status that unlocks a paid publish.
const PaymentStatusPaid = "paid"

type CheckoutRequest struct {
	PriceID    string
	SuccessURL string
	CancelURL  string
	// ClientReference ends up on the session for support lookups.
	ClientReference string
	Metadata        map[string]string
}

type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	CustomerEmail string
	Metadata      map[string]string
}

// Provider is the payment processor. Implementations translate their own
// errors; ErrSessionNotFound must be returned for unknown sessions.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}
