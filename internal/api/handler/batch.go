package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/service"
)

// BatchHandler handles import batch endpoints.
type BatchHandler struct {
	batches *service.BatchService
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(batches *service.BatchService) *BatchHandler {
	return &BatchHandler{batches: batches}
}

// ListBatchesResponse wraps a page of batches.
type ListBatchesResponse struct {
	Items  []domain.Batch `json:"items"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// pagination reads limit and offset query parameters.
func pagination(c *gin.Context) (int, int, bool) {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		respondError(c, err)
		return 0, 0, false
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respondError(c, err)
		return 0, 0, false
	}
	return limit, offset, true
}

// Create handles POST /api/v1/batches.
func (h *BatchHandler) Create(c *gin.Context) {
	var req service.CreateBatchInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}

	batch, err := h.batches.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, batch)
}

// List handles GET /api/v1/batches[?status=RUNNING&limit=&offset=].
func (h *BatchHandler) List(c *gin.Context) {
	var status *domain.RunStatus
	if raw := c.Query("status"); raw != "" {
		s, err := runStatusParam(raw)
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

	batches, err := h.batches.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListBatchesResponse{Items: batches, Limit: limit, Offset: offset})
}

// Get handles GET /api/v1/batches/:id.
func (h *BatchHandler) Get(c *gin.Context) {
	batch, err := h.batches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// UpdateStatus handles PATCH /api/v1/batches/:id/status.
func (h *BatchHandler) UpdateStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status", err)
		return
	}
	status, err := runStatusParam(req.Status)
	if err != nil {
		badRequest(c, "status", err)
		return
	}

	batch, err := h.batches.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// UpdateCounts handles PATCH /api/v1/batches/:id/counts.
func (h *BatchHandler) UpdateCounts(c *gin.Context) {
	var req service.UpdateCountsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}

	batch, err := h.batches.UpdateCounts(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

// Delete handles DELETE /api/v1/batches/:id. In-progress batches are refused
// with 409.
func (h *BatchHandler) Delete(c *gin.Context) {
	if err := h.batches.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
