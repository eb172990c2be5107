package domain

import "time"

const (
	// MaxFilePathLength bounds ImportFile.Path.
	MaxFilePathLength = 1024
	// MaxFileErrorLength bounds ImportFile.LastError.
	MaxFileErrorLength = 2048
)

// ImportFile is one file's ingestion state within an import.
type ImportFile struct {
	ID           string      `gorm:"type:text;primaryKey" json:"id"`
	ImportID     string      `gorm:"type:text;not null;index:idx_import_files_import_status,priority:1" json:"import_id"`
	Path         string      `gorm:"type:varchar(1024);not null" json:"path"`
	SizeBytes    *int64      `json:"size_bytes,omitempty"`
	ContentHash  ContentHash `gorm:"not null;index:idx_import_files_hash" json:"content_hash"`
	Status       FileStatus  `gorm:"type:smallint;not null;default:0;index:idx_import_files_import_status,priority:2" json:"status"`
	IngestedAt   *time.Time  `json:"ingested_at,omitempty"`
	AttemptCount int         `gorm:"not null;default:0" json:"attempt_count"`
	LastError    string      `gorm:"type:varchar(2048)" json:"last_error,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// TableName returns the database table name for ImportFile.
func (ImportFile) TableName() string {
	return "import_files"
}

// QueueStats counts an import's files by status.
type QueueStats struct {
	ImportID     string `json:"import_id"`
	Pending      int64  `json:"pending"`
	Queued       int64  `json:"queued"`
	Processing   int64  `json:"processing"`
	Ingested     int64  `json:"ingested"`
	Failed       int64  `json:"failed"`
	SkippedDedup int64  `json:"skipped_dedup"`
	Quarantined  int64  `json:"quarantined"`
	Total        int64  `json:"total"`
}

// Add records n files in status s.
func (q *QueueStats) Add(s FileStatus, n int64) {
	switch s {
	case FileStatusPending:
		q.Pending += n
	case FileStatusQueued:
		q.Queued += n
	case FileStatusProcessing:
		q.Processing += n
	case FileStatusIngested:
		q.Ingested += n
	case FileStatusFailed:
		q.Failed += n
	case FileStatusSkippedDedup:
		q.SkippedDedup += n
	case FileStatusQuarantined:
		q.Quarantined += n
	default:
		return
	}
	q.Total += n
}

// InQueue is the number of files still pending, queued or processing.
func (q QueueStats) InQueue() int64 {
	return q.Pending + q.Queued + q.Processing
}

// Done is the number of files in a completed terminal state.
func (q QueueStats) Done() int64 {
	return q.Ingested + q.SkippedDedup + q.Quarantined
}
