package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ingestdesk/internal/api/middleware"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/service"
)

// CacheHandler exposes cache maintenance for the current user.
type CacheHandler struct {
	resources *service.ResourceService
}

// NewCacheHandler creates a new cache handler.
func NewCacheHandler(resources *service.ResourceService) *CacheHandler {
	return &CacheHandler{resources: resources}
}

// Invalidate handles DELETE /api/v1/cache/:kind.
func (h *CacheHandler) Invalidate(c *gin.Context) {
	kind, err := domain.ParseResourceKind(c.Param("kind"))
	if err != nil {
		badRequest(c, "kind", err)
		return
	}

	cleared, err := h.resources.Invalidate(c.Request.Context(), kind, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"kind":    kind,
		"cleared": cleared,
	})
}

// Health handles GET /api/v1/cache/:kind/health.
func (h *CacheHandler) Health(c *gin.Context) {
	kind, err := domain.ParseResourceKind(c.Param("kind"))
	if err != nil {
		badRequest(c, "kind", err)
		return
	}

	stats, err := h.resources.Health(c.Request.Context(), kind, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
