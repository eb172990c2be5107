package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ingestdesk/internal/service"
)

// AttemptHandler handles import attempt endpoints.
type AttemptHandler struct {
	attempts *service.AttemptService
}

// NewAttemptHandler creates a new attempt handler.
func NewAttemptHandler(attempts *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

// FinishRequest is the body of POST /api/v1/attempts/:id/finish.
type FinishRequest struct {
	Status       string     `json:"status" binding:"required"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	ErrorSummary string     `json:"error_summary,omitempty"`
}

// Start handles POST /api/v1/imports/:importId/attempts.
func (h *AttemptHandler) Start(c *gin.Context) {
	attempt, err := h.attempts.Start(c.Request.Context(), c.Param("importId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

// List handles GET /api/v1/imports/:importId/attempts.
func (h *AttemptHandler) List(c *gin.Context) {
	attempts, err := h.attempts.List(c.Request.Context(), c.Param("importId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": attempts})
}

// Get handles GET /api/v1/attempts/:id.
func (h *AttemptHandler) Get(c *gin.Context) {
	attempt, err := h.attempts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// MarkRunning handles POST /api/v1/attempts/:id/running.
func (h *AttemptHandler) MarkRunning(c *gin.Context) {
	attempt, err := h.attempts.MarkRunning(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// Finish handles POST /api/v1/attempts/:id/finish.
func (h *AttemptHandler) Finish(c *gin.Context) {
	var req FinishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	status, err := runStatusParam(req.Status)
	if err != nil {
		badRequest(c, "status", err)
		return
	}

	attempt, err := h.attempts.Finish(c.Request.Context(), c.Param("id"), service.FinishAttemptInput{
		Status:       status,
		EndedAt:      req.EndedAt,
		ErrorSummary: req.ErrorSummary,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}
