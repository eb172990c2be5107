package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ingestdesk/internal/api/middleware"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/service"
)

// ResourceHandler serves one upstream resource kind through the cache.
type ResourceHandler struct {
	resources *service.ResourceService
	kind      domain.ResourceKind
}

// NewResourceHandler creates a handler for kind.
func NewResourceHandler(resources *service.ResourceService, kind domain.ResourceKind) *ResourceHandler {
	return &ResourceHandler{resources: resources, kind: kind}
}

func forceRefresh(c *gin.Context) bool {
	force, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	return force
}

// List handles GET /api/v1/{kind}[?refresh=true].
func (h *ResourceHandler) List(c *gin.Context) {
	result, err := h.resources.List(c.Request.Context(), h.kind, middleware.UserID(c), middleware.Credentials(c), forceRefresh(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get handles GET /api/v1/{kind}/:id.
func (h *ResourceHandler) Get(c *gin.Context) {
	item, err := h.resources.Get(c.Request.Context(), h.kind, middleware.UserID(c), middleware.Credentials(c), c.Param("id"), forceRefresh(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}
