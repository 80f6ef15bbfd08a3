package siteapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"lovepage-app/internal/domain/pages"
	"lovepage-app/internal/domain/templates"
	"lovepage-app/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type PageFinder interface {
	FindBySlug(ctx context.Context, slug string) (*pages.Page, error)
}

// PageCache may be nil-backed; a miss just falls through to the store.
type PageCache interface {
	Get(ctx context.Context, slug string) ([]byte, bool)
	Set(ctx context.Context, slug string, body []byte)
}

type Handler struct {
	Templates *templates.Registry
	Pages     PageFinder
	Cache     PageCache
	Log       zerolog.Logger
}

// GET /api/templates
func (h *Handler) ListTemplates(c *gin.Context) {
	all := h.Templates.All()
	out := GetTemplatesResponse{Templates: make([]TemplateDTO, 0, len(all))}
	for _, t := range all {
		out.Templates = append(out.Templates, toTemplateDTO(t))
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/templates/:id
func (h *Handler) GetTemplate(c *gin.Context) {
	tmpl, ok := h.Templates.Lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "template_not_found", "message": "Template not found"})
		return
	}
	c.JSON(http.StatusOK, GetTemplateResponse{
		Template: toTemplateDTO(tmpl),
		Defaults: tmpl.DefaultDocument(),
	})
}

// GET /api/pages/:slug
func (h *Handler) GetPage(c *gin.Context) {
	slug := c.Param("slug")
	if !pages.ValidSlug(slug) {
		c.JSON(http.StatusNotFound, gin.H{"error": "page_not_found", "message": "Page not found"})
		return
	}

	ctx := c.Request.Context()
	if h.Cache != nil {
		if body, ok := h.Cache.Get(ctx, slug); ok {
			c.Header("X-Cache", "hit")
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			return
		}
	}

	page, err := h.Pages.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "page_not_found", "message": "Page not found"})
			return
		}
		h.Log.Error().Err(err).Str("slug", slug).Msg("page lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "page_error", "message": "Failed to load page"})
		return
	}

	body, err := json.Marshal(PageDTO{
		Slug:       page.Slug,
		TemplateID: page.TemplateID,
		Plan:       page.Plan,
		Doc:        page.Document,
		CreatedAt:  page.CreatedAt,
	})
	if err != nil {
		h.Log.Error().Err(err).Str("slug", slug).Msg("page encode failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "page_error", "message": "Failed to load page"})
		return
	}
	if h.Cache != nil {
		h.Cache.Set(ctx, slug, body)
	}
	c.Header("X-Cache", "miss")
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
