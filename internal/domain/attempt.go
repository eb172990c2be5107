package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxErrorSummaryLength bounds ImportAttempt.ErrorSummary.
const MaxErrorSummaryLength = 1024

// ImportAttempt is one timed run of an import.
type ImportAttempt struct {
	ID           string     `gorm:"type:text;primaryKey" json:"id"`
	ImportID     string     `gorm:"type:text;not null;index:idx_import_attempts_import" json:"import_id"`
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Status       RunStatus  `gorm:"type:smallint;not null;default:0" json:"status"`
	ErrorSummary string     `gorm:"type:varchar(1024)" json:"error_summary,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ImportAttempt.
func (ImportAttempt) TableName() string {
	return "import_attempts"
}

// IsInProgress reports PENDING or RUNNING.
func (a *ImportAttempt) IsInProgress() bool { return a.Status.IsInProgress() }

// IsCompleted reports COMPLETED.
func (a *ImportAttempt) IsCompleted() bool { return a.Status.IsCompleted() }

// IsFailed reports FAILED.
func (a *ImportAttempt) IsFailed() bool { return a.Status.IsFailed() }

// IsCancelled reports CANCELLED.
func (a *ImportAttempt) IsCancelled() bool { return a.Status.IsCancelled() }

// Duration returns EndedAt - StartedAt. ok is false while the attempt has
// not finished.
func (a *ImportAttempt) Duration() (d time.Duration, ok bool) {
	if a.StartedAt.IsZero() || a.EndedAt == nil {
		return 0, false
	}
	return a.EndedAt.Sub(a.StartedAt), true
}

// FormatDuration renders d as "1h 2m 5s", dropping leading zero units.
// Sub-second precision is truncated.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60

	parts := make([]string, 0, 3)
	if h > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	if h > 0 || m > 0 {
		parts = append(parts, fmt.Sprintf("%dm", m))
	}
	parts = append(parts, fmt.Sprintf("%ds", s))
	return strings.Join(parts, " ")
}
