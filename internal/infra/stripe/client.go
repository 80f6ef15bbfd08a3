package stripe

import (
	"context"
	"errors"
	"fmt"

	"lovepage-app/internal/service/payments"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
)

// Client implements payments.Provider on top of the Stripe API. It holds its
// own API handle instead of mutating the stripe package key.
type Client struct {
	api *client.API
}

func New(secretKey string) (*Client, error) {
	if secretKey == "" {
		return nil, errors.New("STRIPE_SECRET_KEY not configured")
	}
	return &Client{api: client.New(secretKey, nil)}, nil
}

// NewWithBackends is used by tests to point the client at a fake API server.
func NewWithBackends(secretKey string, backends *stripego.Backends) *Client {
	return &Client{api: client.New(secretKey, backends)}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	params := &stripego.CheckoutSessionParams{
		Mode:       stripego.String(string(stripego.CheckoutSessionModePayment)),
		SuccessURL: stripego.String(req.SuccessURL),
		CancelURL:  stripego.String(req.CancelURL),
		LineItems: []*stripego.CheckoutSessionLineItemParams{
			{Price: stripego.String(req.PriceID), Quantity: stripego.Int64(1)},
		},
	}
	params.Context = ctx
	if req.ClientReference != "" {
		params.ClientReferenceID = stripego.String(req.ClientReference)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, translate(err)
	}
	return toSession(s), nil
}

func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*payments.CheckoutSession, error) {
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx

	s, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, translate(err)
	}
	return toSession(s), nil
}

func toSession(s *stripego.CheckoutSession) *payments.CheckoutSession {
	out := &payments.CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: NormalizePaymentStatus(string(s.PaymentStatus)),
		CustomerEmail: s.CustomerEmail,
		Metadata:      s.Metadata,
	}
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	return out
}

// translate keeps Stripe's message out of anything user facing; only the
// error code and request id survive.
func translate(err error) error {
	var se *stripego.Error
	if errors.As(err, &se) {
		if se.Code == stripego.ErrorCodeResourceMissing {
			return payments.ErrSessionNotFound
		}
		return fmt.Errorf("stripe %s (status %d, request %s): %w", se.Code, se.HTTPStatusCode, se.RequestID, err)
	}
	return fmt.Errorf("stripe: %w", err)
}
