package handler

import (
	"strconv"

	"github.com/timmy/ingestdesk/internal/domain"
)

// StatusRequest names a target status by name or code, e.g.
// {"status": "RUNNING"} or {"status": "1"}.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func runStatusParam(raw string) (domain.RunStatus, error) {
	if v, err := strconv.Atoi(raw); err == nil {
		return domain.ParseRunStatus(v)
	}
	return domain.RunStatusByName(raw)
}

func fileStatusParam(raw string) (domain.FileStatus, error) {
	if v, err := strconv.Atoi(raw); err == nil {
		return domain.ParseFileStatus(v)
	}
	return domain.FileStatusByName(raw)
}
