package service

import (
	"context"
	"strings"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/clock"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/logger"
	"github.com/timmy/ingestdesk/internal/repository"
	"github.com/timmy/ingestdesk/internal/secret"
	"github.com/timmy/ingestdesk/internal/storage"
)

// SaveCredentialsInput is a user's object storage connection.
type SaveCredentialsInput struct {
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	UseSSL    bool   `json:"use_ssl"`
}

// StorageService manages per-user storage credentials and browses their
// buckets through cached clients.
type StorageService struct {
	repo      *repository.CredentialRepository
	sealer    *secret.Sealer
	clients   *storage.ClientCache
	clock     clock.Clock
	listLimit int
}

// NewStorageService creates a new StorageService.
func NewStorageService(repo *repository.CredentialRepository, sealer *secret.Sealer, clients *storage.ClientCache, clk clock.Clock, listLimit int) *StorageService {
	if listLimit <= 0 {
		listLimit = 1000
	}
	return &StorageService{repo: repo, sealer: sealer, clients: clients, clock: clk, listLimit: listLimit}
}

// SaveCredentials seals and stores the user's credential and drops any
// client built from the previous one.
func (s *StorageService) SaveCredentials(ctx context.Context, userID string, in SaveCredentialsInput) (*domain.StorageCredential, error) {
	required := []struct{ field, value string }{
		{"endpoint", in.Endpoint},
		{"bucket", in.Bucket},
		{"access_key", in.AccessKey},
		{"secret_key", in.SecretKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return nil, apperr.Validation(r.field, "is required")
		}
	}

	sealed, err := s.sealer.Seal(in.SecretKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to seal secret key", err)
	}

	now := s.clock.Now()
	cred := &domain.StorageCredential{
		UserID:          userID,
		Endpoint:        strings.TrimSpace(in.Endpoint),
		Region:          strings.TrimSpace(in.Region),
		Bucket:          strings.TrimSpace(in.Bucket),
		AccessKey:       strings.TrimSpace(in.AccessKey),
		SealedSecretKey: sealed,
		UseSSL:          in.UseSSL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Upsert(ctx, cred); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to save storage credentials", err)
	}
	s.clients.Invalidate(userID)

	logger.CtxInfo(ctx, "Saved storage credentials for bucket %s", cred.Bucket)
	return cred, nil
}

// ListObjects lists objects under prefix in the user's bucket.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owning user.
//   - prefix: key prefix, may be empty.
//   - limit: max objects; <= 0 or above the configured cap uses the cap.
// Returns:
//   - []storage.ObjectInfo: matching objects.
//   - error: NOT_FOUND without credentials, UPSTREAM_UNAVAILABLE on storage errors.
func (s *StorageService) ListObjects(ctx context.Context, userID, prefix string, limit int) ([]storage.ObjectInfo, error) {
	client, err := s.client(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.listLimit {
		limit = s.listLimit
	}

	objects, err := client.List(ctx, prefix, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeUpstream, "failed to list objects", err)
	}
	return objects, nil
}

// Ping checks that the user's bucket is reachable.
func (s *StorageService) Ping(ctx context.Context, userID string) error {
	client, err := s.client(ctx, userID)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		return apperr.Wrap(apperr.CodeUpstream, "storage is not reachable", err)
	}
	return nil
}

func (s *StorageService) client(ctx context.Context, userID string) (storage.ObjectStorage, error) {
	cred, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cred.SecretKey, err = s.sealer.Open(cred.SealedSecretKey)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to open secret key", err)
	}

	client, err := s.clients.Get(userID, cred)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to create storage client", err)
	}
	return client, nil
}
