package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Batch is a unit of files imported together.
type Batch struct {
	ID              string            `gorm:"type:text;primaryKey" json:"id"`
	SourceSystem    string            `gorm:"type:text;not null" json:"source_system"`
	CreatedBy       string            `gorm:"type:text;not null" json:"created_by"`
	ManifestHash    *ContentHash      `json:"manifest_hash,omitempty"`
	Status          RunStatus         `gorm:"type:smallint;not null;default:0;index:idx_import_batches_status" json:"status"`
	ExpectedFiles   *int              `json:"expected_files,omitempty"`
	DiscoveredFiles int               `gorm:"not null;default:0" json:"discovered_files"`
	IngestedFiles   int               `gorm:"not null;default:0" json:"ingested_files"`
	Metadata        datatypes.JSONMap `json:"metadata"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TableName returns the database table name for Batch.
func (Batch) TableName() string {
	return "import_batches"
}

// CompletionPercentage returns round(100 * ingested / expected), or 0 when
// the expected count is unknown or zero.
func (b *Batch) CompletionPercentage() int {
	if b.ExpectedFiles == nil || *b.ExpectedFiles <= 0 {
		return 0
	}
	expected := *b.ExpectedFiles
	return (200*b.IngestedFiles + expected) / (2 * expected)
}

// IsInProgress reports PENDING or RUNNING.
func (b *Batch) IsInProgress() bool { return b.Status.IsInProgress() }

// IsCompleted reports COMPLETED.
func (b *Batch) IsCompleted() bool { return b.Status.IsCompleted() }

// IsFailed reports FAILED.
func (b *Batch) IsFailed() bool { return b.Status.IsFailed() }

// IsCancelled reports CANCELLED.
func (b *Batch) IsCancelled() bool { return b.Status.IsCancelled() }
