package repository

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/domain"
	"gorm.io/gorm"
)

var inProgressRunStatuses = []domain.RunStatus{domain.RunStatusPending, domain.RunStatusRunning}

// AttemptRepository handles import attempt persistence.
type AttemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// Create inserts a new attempt.
func (r *AttemptRepository) Create(ctx context.Context, attempt *domain.ImportAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

// GetByID retrieves an attempt by its ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id string) (*domain.ImportAttempt, error) {
	var attempt domain.ImportAttempt
	err := r.db.WithContext(ctx).First(&attempt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("attempt %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// ListByImport returns an import's attempts, oldest first.
func (r *AttemptRepository) ListByImport(ctx context.Context, importID string) ([]domain.ImportAttempt, error) {
	var attempts []domain.ImportAttempt
	if err := r.db.WithContext(ctx).
		Where("import_id = ?", importID).
		Order("started_at ASC").
		Order("id ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

// MarkRunning moves a PENDING attempt to RUNNING. Marking an already running
// attempt is a no-op; a terminated attempt is a conflict.
func (r *AttemptRepository) MarkRunning(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&domain.ImportAttempt{}).
		Where("id = ? AND status IN ?", id, inProgressRunStatuses).
		Update("status", domain.RunStatusRunning)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.notInProgress(ctx, id)
	}
	return nil
}

// Finish terminates an in-progress attempt. The update only matches while
// the attempt is PENDING or RUNNING, so two concurrent finishes cannot both
// succeed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: attempt ID.
//   - status: terminal status.
//   - endedAt: end time, already validated against started_at.
//   - summary: error summary, already truncated.
// Returns:
//   - error: CONFLICT if already terminated, NOT_FOUND if absent.
func (r *AttemptRepository) Finish(ctx context.Context, id string, status domain.RunStatus, endedAt time.Time, summary string) error {
	res := r.db.WithContext(ctx).Model(&domain.ImportAttempt{}).
		Where("id = ? AND status IN ?", id, inProgressRunStatuses).
		Updates(map[string]interface{}{
			"status":        status,
			"ended_at":      endedAt,
			"error_summary": summary,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.notInProgress(ctx, id)
	}
	return nil
}

func (r *AttemptRepository) notInProgress(ctx context.Context, id string) error {
	attempt, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return apperr.Conflict("attempt %q already %s", id, attempt.Status)
}
