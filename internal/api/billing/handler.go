package billing

import (
	"context"
	"encoding/json"
	"net/http"

	"lovepage-app/internal/domain/identity"
	"lovepage-app/internal/domain/plans"
	"lovepage-app/internal/domain/templates"
	"lovepage-app/internal/infra/logging"
	"lovepage-app/internal/service/payments"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type CheckoutStarter interface {
	Start(ctx context.Context, req payments.StartRequest) (*payments.CheckoutSession, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, sessionID string) (payments.Result, error)
}

type Handler struct {
	Templates  *templates.Registry
	Plans      *plans.Catalog
	Checkout   CheckoutStarter
	Reconciler Confirmer
	Log        zerolog.Logger
}

type checkoutRequest struct {
	TemplateID string          `json:"templateId"`
	Doc        json.RawMessage `json:"doc"`
	Plan       string          `json:"plan"`
	ClientID   string          `json:"clientId"`
}

// POST /api/checkout
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	var body checkoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": "Request body must be a JSON object"})
		return
	}

	tmpl, ok := h.Templates.Lookup(body.TemplateID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_template", "message": "Unknown template"})
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(body.Doc, &raw); err != nil || raw == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_doc", "message": "doc must be a JSON object"})
		return
	}

	planKey := body.Plan
	if planKey == "" {
		planKey = plans.KeyPremium
	}
	plan, err := h.Plans.Checkout(planKey)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_plan", "message": "Plan cannot be purchased"})
		return
	}

	res := tmpl.Coerce(raw, plan.MaxPhotos)
	session, err := h.Checkout.Start(c.Request.Context(), payments.StartRequest{
		TemplateID: tmpl.ID,
		Document:   res.Document,
		Plan:       plan,
		ClientID:   identity.Resolve(c.Request, body.ClientID),
	})
	if err != nil {
		h.Log.Error().Err(err).Str("template", tmpl.ID).Msg("checkout failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "checkout_failed", "message": "Could not start checkout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": session.ID, "url": session.URL})
}

type ConfirmResponse struct {
	Verified bool   `json:"verified"`
	Slug     string `json:"slug,omitempty"`
	Error    string `json:"error,omitempty"`
}

// POST /api/payments/confirm
//
// Verification outcomes are ordinary 200 responses. Only a body that is not
// JSON at all gets a 400.
func (h *Handler) ConfirmPayment(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil || !json.Valid(data) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": "Malformed JSON"})
		return
	}

	var body map[string]any
	_ = json.Unmarshal(data, &body)
	sessionID, _ := body["session_id"].(string)

	res, err := h.Reconciler.Confirm(c.Request.Context(), sessionID)
	if err != nil {
		code := payments.FailureCode(err)
		if code == "" {
			code = payments.CodePublishFailed
		}
		h.Log.Info().Str("session", logging.Mask(sessionID)).Str("code", code).Msg("payment not confirmed")
		c.JSON(http.StatusOK, ConfirmResponse{Verified: false, Error: code})
		return
	}
	c.JSON(http.StatusOK, ConfirmResponse{Verified: true, Slug: res.Slug})
}
