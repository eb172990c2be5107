package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ingestdesk/internal/api/middleware"
	"github.com/timmy/ingestdesk/internal/service"
)

// StorageHandler handles per-user object storage endpoints.
type StorageHandler struct {
	storage *service.StorageService
}

// NewStorageHandler creates a new storage handler.
func NewStorageHandler(storage *service.StorageService) *StorageHandler {
	return &StorageHandler{storage: storage}
}

// SaveCredentials handles PUT /api/v1/storage/credentials. The secret key is
// never echoed back.
func (h *StorageHandler) SaveCredentials(c *gin.Context) {
	var req service.SaveCredentialsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}

	cred, err := h.storage.SaveCredentials(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cred)
}

// ListObjects handles GET /api/v1/storage/objects[?prefix=&limit=].
func (h *StorageHandler) ListObjects(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		respondError(c, err)
		return
	}

	objects, err := h.storage.ListObjects(c.Request.Context(), middleware.UserID(c), c.Query("prefix"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": objects, "prefix": c.Query("prefix")})
}

// Ping handles GET /api/v1/storage/ping.
func (h *StorageHandler) Ping(c *gin.Context) {
	if err := h.storage.Ping(c.Request.Context(), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
