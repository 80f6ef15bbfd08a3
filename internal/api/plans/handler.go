package plans

import (
	"net/http"

	"lovepage-app/internal/domain/plans"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Catalog *plans.Catalog
}

// GET /api/plans
func (h *Handler) ListPlans(c *gin.Context) {
	out := []plans.Plan{h.Catalog.Free()}
	if p, ok := h.Catalog.Get(plans.KeyPremium); ok {
		out = append(out, p)
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}
