package identityapi

import (
	"net/http"

	"lovepage-app/internal/domain/identity"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	SecureCookies bool
}

// GetOrCreate handles GET /api/identity.
func (h *Handler) GetOrCreate(c *gin.Context) {
	id, created, ok := identity.GetOrCreate(c.Writer, c.Request, h.SecureCookies)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "identity_unavailable", "message": "Could not persist a client identity"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"clientId": id, "created": created})
}
