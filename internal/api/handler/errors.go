package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/logger"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// respondError writes err with the status its code maps to. Internal errors
// are logged and their details withheld.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	body := ErrorResponse{Code: string(apperr.CodeOf(err))}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		body.Field = appErr.Field
		body.Error = appErr.Message
	}
	if status >= 500 {
		c.Error(err)
		logger.FromContext(c.Request.Context()).WithError(err).Error("Request failed")
		if body.Code == string(apperr.CodeInternal) {
			body.Error = "internal error"
		}
	}
	if body.Error == "" {
		body.Error = err.Error()
	}
	c.JSON(status, body)
}

// badRequest responds 400 for a malformed request body or parameter.
func badRequest(c *gin.Context, field string, err error) {
	respondError(c, apperr.Validation(field, "%v", err))
}

// queryInt parses an integer query parameter, returning def when absent.
func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(name, "must be an integer")
	}
	return v, nil
}
