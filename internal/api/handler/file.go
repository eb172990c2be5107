package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/service"
)

// FileHandler handles per-file ingestion state endpoints.
type FileHandler struct {
	files *service.FileService
}

// NewFileHandler creates a new file handler.
func NewFileHandler(files *service.FileService) *FileHandler {
	return &FileHandler{files: files}
}

// ReasonRequest carries the error or quarantine reason of a transition.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// Add handles POST /api/v1/imports/:importId/files.
func (h *FileHandler) Add(c *gin.Context) {
	var req service.AddFileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}

	file, err := h.files.Add(c.Request.Context(), c.Param("importId"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

// List handles GET /api/v1/imports/:importId/files[?status=&limit=&offset=].
func (h *FileHandler) List(c *gin.Context) {
	var status *domain.FileStatus
	if raw := c.Query("status"); raw != "" {
		s, err := fileStatusParam(raw)
		if err != nil {
			badRequest(c, "status", err)
			return
		}
		status = &s
	}
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	files, err := h.files.List(c.Request.Context(), c.Param("importId"), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": files, "limit": limit, "offset": offset})
}

// FindByHash handles GET /api/v1/files?hash=<64 hex>.
func (h *FileHandler) FindByHash(c *gin.Context) {
	files, err := h.files.FindByHash(c.Request.Context(), c.Query("hash"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": files})
}

// Get handles GET /api/v1/files/:id.
func (h *FileHandler) Get(c *gin.Context) {
	file, err := h.files.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

// Stats handles GET /api/v1/imports/:importId/stats.
func (h *FileHandler) Stats(c *gin.Context) {
	stats, err := h.files.QueueStats(c.Request.Context(), c.Param("importId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type transitionFunc func(ctx context.Context, id string) (*domain.ImportFile, error)

func (h *FileHandler) transition(fn transitionFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := fn(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, file)
	}
}

func (h *FileHandler) transitionWithReason(fn func(ctx context.Context, id, reason string) (*domain.ImportFile, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReasonRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "body", err)
				return
			}
		}
		file, err := fn(c.Request.Context(), c.Param("id"), req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, file)
	}
}

// MarkQueued handles POST /api/v1/files/:id/queued.
func (h *FileHandler) MarkQueued() gin.HandlerFunc { return h.transition(h.files.MarkQueued) }

// MarkProcessing handles POST /api/v1/files/:id/processing.
func (h *FileHandler) MarkProcessing() gin.HandlerFunc { return h.transition(h.files.MarkProcessing) }

// MarkIngested handles POST /api/v1/files/:id/ingested.
func (h *FileHandler) MarkIngested() gin.HandlerFunc { return h.transition(h.files.MarkIngested) }

// MarkSkippedDedup handles POST /api/v1/files/:id/skipped.
func (h *FileHandler) MarkSkippedDedup() gin.HandlerFunc {
	return h.transition(h.files.MarkSkippedDedup)
}

// MarkFailed handles POST /api/v1/files/:id/failed with {"reason": "..."}.
func (h *FileHandler) MarkFailed() gin.HandlerFunc {
	return h.transitionWithReason(h.files.MarkFailed)
}

// MarkQuarantined handles POST /api/v1/files/:id/quarantined with {"reason": "..."}.
func (h *FileHandler) MarkQuarantined() gin.HandlerFunc {
	return h.transitionWithReason(h.files.MarkQuarantined)
}
