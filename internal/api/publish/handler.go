package publishapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"lovepage-app/internal/domain/builder"
	"lovepage-app/internal/domain/identity"
	"lovepage-app/internal/domain/pages"
	"lovepage-app/internal/domain/plans"
	"lovepage-app/internal/domain/templates"
	"lovepage-app/internal/infra/logging"
	"lovepage-app/internal/repository"
	"lovepage-app/internal/service/publish"
	"lovepage-app/internal/service/usage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Gate interface {
	TryConsumePublish(ctx context.Context, clientID string, limit int) (usage.Decision, error)
	GetUsage(ctx context.Context, clientID string) (int, error)
}

type Writer interface {
	Publish(ctx context.Context, templateID string, doc builder.Document, opts publish.Options) (*pages.Page, error)
}

type Handler struct {
	Templates *templates.Registry
	Plans     *plans.Catalog
	Gate      Gate
	Writer    Writer

	// FreePublishLimit is the per-client ceiling for free publishes.
	FreePublishLimit int
	PublicBaseURL    string
	SecureCookies    bool

	Log zerolog.Logger
}

type publishRequest struct {
	TemplateID string          `json:"templateId"`
	Doc        json.RawMessage `json:"doc"`
	ClientID   string          `json:"clientId"`
}

type PublishResponse struct {
	Slug         string `json:"slug"`
	URL          string `json:"url"`
	PublishCount int    `json:"publishCount"`
}

// Publish handles POST /api/publish, the free tier path.
func (h *Handler) Publish(c *gin.Context) {
	var body publishRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body", "message": "Request body must be a JSON object"})
		return
	}

	tmpl, ok := h.Templates.Lookup(body.TemplateID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_template", "message": "Unknown template"})
		return
	}

	raw, ok := decodeDoc(body.Doc)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_doc", "message": "doc must be a JSON object"})
		return
	}
	res := tmpl.Coerce(raw, h.Plans.MaxPhotos(plans.KeyFree))

	clientID := identity.Resolve(c.Request, body.ClientID)
	if clientID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_client_id", "message": "No client identity on request"})
		return
	}
	if identity.FromRequest(c.Request) == "" {
		http.SetCookie(c.Writer, identity.Cookie(clientID, h.SecureCookies))
	}
	log := h.Log.With().Str("client", logging.Mask(clientID)).Logger()

	decision, err := h.Gate.TryConsumePublish(c.Request.Context(), clientID, h.FreePublishLimit)
	if err != nil {
		log.Error().Err(err).Msg("usage gate failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "usage_error", "message": "Could not check publish quota"})
		return
	}
	if !decision.Allowed {
		c.JSON(http.StatusForbidden, gin.H{
			"error":        "publish_limit_reached",
			"message":      "Free publish limit reached",
			"limit":        h.FreePublishLimit,
			"publishCount": decision.PublishCount,
		})
		return
	}

	page, err := h.Writer.Publish(c.Request.Context(), tmpl.ID, res.Document, publish.Options{Plan: plans.KeyFree})
	if err != nil {
		log.Error().Err(err).Msg("free publish failed")
		resp := gin.H{"error": "publish_failed", "message": "Could not publish page"}
		if code := failureCode(err); code != "" {
			resp["code"] = code
		}
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	if len(res.Corrections) > 0 {
		log.Debug().Int("corrections", len(res.Corrections)).Str("slug", page.Slug).Msg("document repaired on publish")
	}
	c.JSON(http.StatusOK, PublishResponse{
		Slug:         page.Slug,
		URL:          pages.BuildPublicURL(h.PublicBaseURL, page.Slug),
		PublishCount: decision.PublishCount,
	})
}

// Usage handles GET /api/usage. Only the cookie identifies the client here.
func (h *Handler) Usage(c *gin.Context) {
	clientID := identity.FromRequest(c.Request)
	if clientID == "" {
		c.JSON(http.StatusOK, gin.H{"publishCount": 0, "limit": h.FreePublishLimit})
		return
	}
	n, err := h.Gate.GetUsage(c.Request.Context(), clientID)
	if err != nil {
		h.Log.Error().Err(err).Str("client", logging.Mask(clientID)).Msg("usage lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "usage_error", "message": "Could not read usage"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publishCount": n, "limit": h.FreePublishLimit})
}

func decodeDoc(data json.RawMessage) (map[string]any, bool) {
	if len(data) == 0 {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func failureCode(err error) string {
	if errors.Is(err, publish.ErrSlugExhausted) {
		return "slug_exhausted"
	}
	return repository.ErrorCode(err)
}
