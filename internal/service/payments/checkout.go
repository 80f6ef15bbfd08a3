package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"lovepage-app/internal/domain/billing"
	"lovepage-app/internal/domain/builder"
	"lovepage-app/internal/domain/plans"
	"lovepage-app/internal/infra/logging"

	"github.com/rs/zerolog"
)

type PendingCreator interface {
	Create(ctx context.Context, p *billing.PendingPublish) error
}

type Checkout struct {
	provider Provider
	pending  PendingCreator
	appURL   string
	log      zerolog.Logger
}

func NewCheckout(provider Provider, pending PendingCreator, appURL string, log zerolog.Logger) *Checkout {
	return &Checkout{
		provider: provider,
		pending:  pending,
		appURL:   strings.TrimRight(appURL, "/"),
		log:      log,
	}
}

type StartRequest struct {
	TemplateID string
	Document   builder.Document
	Plan       plans.Plan
	ClientID   string
}

// Start opens a checkout session and escrows the document under its id.
// No page exists until the session is reconciled.
func (c *Checkout) Start(ctx context.Context, req StartRequest) (*CheckoutSession, error) {
	if c.provider == nil {
		return nil, errors.New("payment provider not configured")
	}
	if req.Plan.StripePriceID == "" {
		return nil, fmt.Errorf("plan %q has no price", req.Plan.Key)
	}

	body, err := json.Marshal(req.Document)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	session, err := c.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		PriceID:         req.Plan.StripePriceID,
		SuccessURL:      c.appURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       c.appURL + "/builder/" + req.TemplateID + "?checkout=canceled",
		ClientReference: req.ClientID,
		Metadata: map[string]string{
			"template_id": req.TemplateID,
			"plan":        req.Plan.Key,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	row := &billing.PendingPublish{
		SessionID:  session.ID,
		TemplateID: req.TemplateID,
		Plan:       req.Plan.Key,
		Document:   body,
	}
	if req.ClientID != "" {
		cid := req.ClientID
		row.ClientID = &cid
	}
	if err := c.pending.Create(ctx, row); err != nil {
		return nil, fmt.Errorf("store pending publish: %w", err)
	}

	c.log.Info().
		Str("session", logging.Mask(session.ID)).
		Str("template", req.TemplateID).
		Str("plan", req.Plan.Key).
		Msg("checkout started")
	return session, nil
}
