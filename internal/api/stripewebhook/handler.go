package stripewebhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"lovepage-app/internal/infra/logging"
	"lovepage-app/internal/service/payments"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
)

type Confirmer interface {
	Confirm(ctx context.Context, sessionID string) (payments.Result, error)
}

type Handler struct {
	Secret     string
	Reconciler Confirmer
	Log        zerolog.Logger
}

// POST /webhook
func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.Secret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhook_disabled", "message": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readStripeBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "invalid_body", "message": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.Secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.Log.Warn().Err(err).Msg("stripe signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature", "message": "Signature verification failed"})
		return
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": "Failed to parse session"})
			return
		}
		h.handleCheckoutSessionCompleted(c, session.ID)

	default:
		// Acknowledge unknown events to avoid retries
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

// Business outcomes are acknowledged so Stripe stops retrying; upstream
// failures get a 500 so the event is redelivered.
func (h *Handler) handleCheckoutSessionCompleted(c *gin.Context, sessionID string) {
	log := h.Log.With().Str("session", logging.Mask(sessionID)).Logger()

	res, err := h.Reconciler.Confirm(c.Request.Context(), sessionID)
	if err == nil {
		log.Info().Str("slug", res.Slug).Bool("replayed", res.Replayed).Msg("webhook reconciled checkout")
		c.JSON(http.StatusOK, gin.H{"status": "received", "slug": res.Slug})
		return
	}

	code := payments.FailureCode(err)
	switch code {
	case payments.CodePaymentError, payments.CodePublishFailed, "":
		log.Error().Err(err).Msg("webhook reconcile failed, asking for redelivery")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconcile_failed"})
	default:
		log.Warn().Str("code", code).Msg("webhook checkout not reconciled")
		c.JSON(http.StatusOK, gin.H{"status": "received", "error": code})
	}
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
