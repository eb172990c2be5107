package repository

import (
	"context"
	"errors"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CredentialRepository stores per-user object storage credentials.
type CredentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Upsert creates or replaces the user's credential.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *domain.StorageCredential) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"endpoint", "region", "bucket", "access_key", "sealed_secret_key", "use_ssl", "updated_at",
		}),
	}).Create(cred).Error
}

// GetByUser returns the user's credential with the secret still sealed.
func (r *CredentialRepository) GetByUser(ctx context.Context, userID string) (*domain.StorageCredential, error) {
	var cred domain.StorageCredential
	err := r.db.WithContext(ctx).First(&cred, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("no storage credentials for user %q", userID)
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// Delete removes the user's credential.
func (r *CredentialRepository) Delete(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.StorageCredential{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("no storage credentials for user %q", userID)
	}
	return nil
}
