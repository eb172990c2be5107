package repository

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/domain"
	"gorm.io/gorm"
)

// FileRepository handles import file persistence.
// Status transitions are single UPDATE statements with no guard on the
// current status.
type FileRepository struct {
	db *gorm.DB
}

// NewFileRepository creates a new FileRepository.
func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Create inserts a new file record.
func (r *FileRepository) Create(ctx context.Context, file *domain.ImportFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

// GetByID retrieves a file by its ID.
func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.ImportFile, error) {
	var file domain.ImportFile
	err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("file %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// ListByImport returns an import's files ordered by path, optionally
// filtered by status.
func (r *FileRepository) ListByImport(ctx context.Context, importID string, status *domain.FileStatus, limit, offset int) ([]domain.ImportFile, error) {
	var files []domain.ImportFile
	query := r.db.WithContext(ctx).Where("import_id = ?", importID).Order("path ASC").Order("id ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// FindByContentHash returns files with the given hash, across imports.
func (r *FileRepository) FindByContentHash(ctx context.Context, hash domain.ContentHash) ([]domain.ImportFile, error) {
	var files []domain.ImportFile
	if err := r.db.WithContext(ctx).Where("content_hash = ?", hash).Order("created_at ASC").Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// MarkQueued sets QUEUED.
func (r *FileRepository) MarkQueued(ctx context.Context, id string) error {
	return r.transition(ctx, id, map[string]interface{}{"status": domain.FileStatusQueued})
}

// MarkProcessing sets PROCESSING.
func (r *FileRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.transition(ctx, id, map[string]interface{}{"status": domain.FileStatusProcessing})
}

// MarkIngested sets INGESTED and the completion time.
func (r *FileRepository) MarkIngested(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":      domain.FileStatusIngested,
		"ingested_at": at,
	})
}

// MarkFailed sets FAILED, bumps attempt_count and records the error.
func (r *FileRepository) MarkFailed(ctx context.Context, id, lastError string) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":        domain.FileStatusFailed,
		"attempt_count": gorm.Expr("attempt_count + ?", 1),
		"last_error":    lastError,
	})
}

// MarkSkippedDedup sets SKIPPED_DEDUP, stamps the completion time and clears
// any previous error.
func (r *FileRepository) MarkSkippedDedup(ctx context.Context, id string, at time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":      domain.FileStatusSkippedDedup,
		"ingested_at": at,
		"last_error":  "",
	})
}

// MarkQuarantined sets QUARANTINED, stamps the completion time and keeps the
// reason in last_error.
func (r *FileRepository) MarkQuarantined(ctx context.Context, id, reason string, at time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":      domain.FileStatusQuarantined,
		"ingested_at": at,
		"last_error":  reason,
	})
}

func (r *FileRepository) transition(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&domain.ImportFile{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("file %q not found", id)
	}
	return nil
}

type statusCount struct {
	Status domain.FileStatus
	Count  int64
}

// CountByStatus aggregates an import's files by status in one query.
// Returns:
//   - domain.QueueStats: per-status counts; all zero for an unknown import.
//   - error: non-nil if the query fails.
func (r *FileRepository) CountByStatus(ctx context.Context, importID string) (domain.QueueStats, error) {
	stats := domain.QueueStats{ImportID: importID}

	var rows []statusCount
	if err := r.db.WithContext(ctx).Model(&domain.ImportFile{}).
		Select("status, COUNT(*) AS count").
		Where("import_id = ?", importID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return stats, err
	}

	for _, row := range rows {
		stats.Add(row.Status, row.Count)
	}
	return stats, nil
}
