package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"lovepage-app/internal/domain/billing"
	"lovepage-app/internal/infra/logging"
	"lovepage-app/internal/repository"
	"lovepage-app/internal/service/payments"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const TokenTTL = 12 * time.Hour

type Stats interface {
	Counts(ctx context.Context) (repository.PageCounts, error)
}

type EntitlementCounter interface {
	Count(ctx context.Context) (int64, error)
}

type PendingLister interface {
	ListUnreconciled(ctx context.Context, limit int) ([]billing.PendingPublish, error)
	CountUnreconciled(ctx context.Context) (int64, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, sessionID string) (payments.Result, error)
}

type Handler struct {
	Pages        Stats
	Entitlements EntitlementCounter
	Pending      PendingLister
	Reconciler   Confirmer

	JWTSecret    []byte
	PasswordHash string
	Log          zerolog.Logger

	now func() time.Time
}

type AdminPending struct {
	SessionID  string     `json:"session_id"`
	TemplateID string     `json:"template_id"`
	Plan       string     `json:"plan"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type AdminStats struct {
	TotalPages   int64 `json:"total_pages"`
	PaidPages    int64 `json:"paid_pages"`
	FreePages    int64 `json:"free_pages"`
	Entitlements int64 `json:"entitlements"`
	Unreconciled int64 `json:"unreconciled_pending"`
}

// POST /admin/login
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": "password is required"})
		return
	}
	if h.PasswordHash == "" || len(h.JWTSecret) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin_disabled", "message": "Admin login is not configured"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.PasswordHash), []byte(input.Password)); err != nil {
		h.Log.Warn().Str("ip", c.ClientIP()).Msg("admin login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials", "message": "Invalid credentials"})
		return
	}

	now := h.clock()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin",
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(TokenTTL).Unix(),
	})
	signed, err := token.SignedString(h.JWTSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_error", "message": "Could not create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": signed, "expires_at": now.Add(TokenTTL)})
}

// GET /admin/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	counts, err := h.Pages.Counts(ctx)
	if err != nil {
		h.Log.Error().Err(err).Msg("dashboard page counts failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats_error", "message": "Failed to load stats"})
		return
	}
	ents, err := h.Entitlements.Count(ctx)
	if err != nil {
		h.Log.Error().Err(err).Msg("dashboard entitlement count failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats_error", "message": "Failed to load stats"})
		return
	}
	unreconciled, err := h.Pending.CountUnreconciled(ctx)
	if err != nil {
		h.Log.Error().Err(err).Msg("dashboard pending count failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats_error", "message": "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, AdminStats{
		TotalPages:   counts.Total,
		PaidPages:    counts.Paid,
		FreePages:    counts.Free,
		Entitlements: ents,
		Unreconciled: unreconciled,
	})
}

// GET /admin/pending?limit=N
func (h *Handler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(repository.DefaultPendingLimit)))
	if limit > repository.MaxPendingLimit {
		limit = repository.MaxPendingLimit
	}
	rows, err := h.Pending.ListUnreconciled(c.Request.Context(), limit)
	if err != nil {
		h.Log.Error().Err(err).Msg("pending list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pending_error", "message": "Failed to load pending publishes"})
		return
	}

	out := make([]AdminPending, 0, len(rows))
	for _, p := range rows {
		out = append(out, AdminPending{
			SessionID:  p.SessionID,
			TemplateID: p.TemplateID,
			Plan:       p.Plan,
			PaidAt:     p.PaidAt,
			CreatedAt:  p.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"pending": out})
}

// POST /admin/pending/:sessionId/retry
func (h *Handler) RetryPending(c *gin.Context) {
	sessionID := c.Param("sessionId")
	res, err := h.Reconciler.Confirm(c.Request.Context(), sessionID)
	if err != nil {
		code := payments.FailureCode(err)
		h.Log.Warn().Err(err).Str("session", logging.Mask(sessionID)).Msg("admin retry did not reconcile")
		c.JSON(http.StatusOK, gin.H{"verified": false, "error": code})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true, "slug": res.Slug, "replayed": res.Replayed})
}

func (h *Handler) clock() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}
