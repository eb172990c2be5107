package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/domain"
	"gorm.io/gorm"
)

// BatchRepository handles import batch persistence.
type BatchRepository struct {
	db *gorm.DB
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts a new batch.
func (r *BatchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

// GetByID retrieves a batch by its ID.
// Returns a NOT_FOUND app error when no such batch exists.
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	var batch domain.Batch
	err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("batch %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// List returns batches newest first, optionally filtered by status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: when non-nil, only batches in this status.
//   - limit: max rows; <= 0 means no limit.
//   - offset: rows to skip.
// Returns:
//   - []domain.Batch: matching batches.
//   - error: non-nil if the query fails.
func (r *BatchRepository) List(ctx context.Context, status *domain.RunStatus, limit, offset int) ([]domain.Batch, error) {
	var batches []domain.Batch
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id ASC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// UpdateStatus sets the batch status.
func (r *BatchRepository) UpdateStatus(ctx context.Context, id string, status domain.RunStatus) error {
	return r.updates(ctx, id, map[string]interface{}{"status": status})
}

// UpdateCounts sets the discovered and ingested counters, and the expected
// count when expected is non-nil.
func (r *BatchRepository) UpdateCounts(ctx context.Context, id string, discovered, ingested int, expected *int) error {
	fields := map[string]interface{}{
		"discovered_files": discovered,
		"ingested_files":   ingested,
	}
	if expected != nil {
		fields["expected_files"] = *expected
	}
	return r.updates(ctx, id, fields)
}

func (r *BatchRepository) updates(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&domain.Batch{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("batch %q not found", id)
	}
	return nil
}

// Delete removes a batch that is no longer in progress. The status check and
// the delete are one statement, so a batch that starts running concurrently
// is never removed.
// Returns:
//   - error: CONFLICT while the batch is PENDING or RUNNING, NOT_FOUND when absent.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status NOT IN ?", id, []domain.RunStatus{domain.RunStatusPending, domain.RunStatusRunning}).
		Delete(&domain.Batch{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete batch: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Batch{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.Conflict("batch %q is still in progress", id)
	}
	return apperr.NotFound("batch %q not found", id)
}
