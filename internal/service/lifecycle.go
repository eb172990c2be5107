package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/clock"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/logger"
	"github.com/timmy/ingestdesk/internal/metrics"
	"github.com/timmy/ingestdesk/internal/repository"
)

// CreateBatchInput is the caller-supplied part of a new batch.
type CreateBatchInput struct {
	SourceSystem  string                 `json:"source_system"`
	CreatedBy     string                 `json:"created_by"`
	ManifestHash  string                 `json:"manifest_hash,omitempty"`
	ExpectedFiles *int                   `json:"expected_files,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateCountsInput carries new batch counters.
type UpdateCountsInput struct {
	DiscoveredFiles int  `json:"discovered_files"`
	IngestedFiles   int  `json:"ingested_files"`
	ExpectedFiles   *int `json:"expected_files,omitempty"`
}

// BatchService manages import batches.
type BatchService struct {
	repo  *repository.BatchRepository
	clock clock.Clock
	ids   clock.IDGenerator
}

// NewBatchService creates a new BatchService.
func NewBatchService(repo *repository.BatchRepository, clk clock.Clock, ids clock.IDGenerator) *BatchService {
	return &BatchService{repo: repo, clock: clk, ids: ids}
}

// Create validates input and stores a PENDING batch.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - in: batch fields supplied by the caller.
// Returns:
//   - *domain.Batch: the stored batch.
//   - error: VALIDATION_ERROR for bad input, or a storage error.
func (s *BatchService) Create(ctx context.Context, in CreateBatchInput) (*domain.Batch, error) {
	if strings.TrimSpace(in.SourceSystem) == "" {
		return nil, apperr.Validation("source_system", "is required")
	}
	if strings.TrimSpace(in.CreatedBy) == "" {
		return nil, apperr.Validation("created_by", "is required")
	}
	if in.ExpectedFiles != nil && *in.ExpectedFiles < 0 {
		return nil, apperr.Validation("expected_files", "must not be negative")
	}

	now := s.clock.Now()
	batch := &domain.Batch{
		ID:            s.ids.New(),
		SourceSystem:  in.SourceSystem,
		CreatedBy:     in.CreatedBy,
		Status:        domain.RunStatusPending,
		ExpectedFiles: in.ExpectedFiles,
		Metadata:      in.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.ManifestHash != "" {
		hash, err := domain.ParseContentHash(in.ManifestHash)
		if err != nil {
			return nil, apperr.Validation("manifest_hash", "%v", err)
		}
		batch.ManifestHash = &hash
	}

	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to create batch", err)
	}

	logger.CtxInfo(ctx, "Created batch %s from %s", batch.ID, batch.SourceSystem)
	return batch, nil
}

// Get returns a batch by id.
func (s *BatchService) Get(ctx context.Context, id string) (*domain.Batch, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns batches newest first.
func (s *BatchService) List(ctx context.Context, status *domain.RunStatus, limit, offset int) ([]domain.Batch, error) {
	if status != nil && !status.Valid() {
		return nil, apperr.Validation("status", "unknown status %d", int(*status))
	}
	return s.repo.List(ctx, status, limit, offset)
}

// UpdateStatus sets a batch's status.
func (s *BatchService) UpdateStatus(ctx context.Context, id string, status domain.RunStatus) (*domain.Batch, error) {
	if !status.Valid() {
		return nil, apperr.Validation("status", "unknown status %d", int(status))
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateCounts sets a batch's file counters. Counts must be non-negative.
func (s *BatchService) UpdateCounts(ctx context.Context, id string, in UpdateCountsInput) (*domain.Batch, error) {
	if in.DiscoveredFiles < 0 {
		return nil, apperr.Validation("discovered_files", "must not be negative")
	}
	if in.IngestedFiles < 0 {
		return nil, apperr.Validation("ingested_files", "must not be negative")
	}
	if in.ExpectedFiles != nil && *in.ExpectedFiles < 0 {
		return nil, apperr.Validation("expected_files", "must not be negative")
	}
	if err := s.repo.UpdateCounts(ctx, id, in.DiscoveredFiles, in.IngestedFiles, in.ExpectedFiles); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete removes a batch that is not in progress.
func (s *BatchService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// FinishAttemptInput terminates an attempt. EndedAt defaults to now.
type FinishAttemptInput struct {
	Status       domain.RunStatus `json:"status"`
	EndedAt      *time.Time       `json:"ended_at,omitempty"`
	ErrorSummary string           `json:"error_summary,omitempty"`
}

// AttemptService manages import attempts.
type AttemptService struct {
	repo  *repository.AttemptRepository
	clock clock.Clock
	ids   clock.IDGenerator
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(repo *repository.AttemptRepository, clk clock.Clock, ids clock.IDGenerator) *AttemptService {
	return &AttemptService{repo: repo, clock: clk, ids: ids}
}

// Start records a new PENDING attempt starting now.
func (s *AttemptService) Start(ctx context.Context, importID string) (*domain.ImportAttempt, error) {
	if strings.TrimSpace(importID) == "" {
		return nil, apperr.Validation("import_id", "is required")
	}

	now := s.clock.Now()
	attempt := &domain.ImportAttempt{
		ID:        s.ids.New(),
		ImportID:  importID,
		StartedAt: now,
		Status:    domain.RunStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, attempt); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to start attempt", err)
	}
	return attempt, nil
}

// Get returns an attempt by id.
func (s *AttemptService) Get(ctx context.Context, id string) (*domain.ImportAttempt, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns an import's attempts, oldest first.
func (s *AttemptService) List(ctx context.Context, importID string) ([]domain.ImportAttempt, error) {
	return s.repo.ListByImport(ctx, importID)
}

// MarkRunning moves an attempt to RUNNING.
func (s *AttemptService) MarkRunning(ctx context.Context, id string) (*domain.ImportAttempt, error) {
	if err := s.repo.MarkRunning(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Finish terminates an attempt exactly once.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: attempt ID.
//   - in: terminal status, optional end time and error summary.
// Returns:
//   - *domain.ImportAttempt: the finished attempt.
//   - error: VALIDATION_ERROR for a non-terminal status or an end not after
//     the start, CONFLICT when already finished, NOT_FOUND when absent.
func (s *AttemptService) Finish(ctx context.Context, id string, in FinishAttemptInput) (*domain.ImportAttempt, error) {
	if !in.Status.IsTerminal() {
		return nil, apperr.Validation("status", "must be COMPLETED, FAILED or CANCELLED, got %s", in.Status)
	}

	attempt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if attempt.Status.IsTerminal() {
		return nil, apperr.Conflict("attempt %q already %s", id, attempt.Status)
	}

	endedAt := s.clock.Now()
	if in.EndedAt != nil {
		endedAt = in.EndedAt.UTC()
	}
	if !endedAt.After(attempt.StartedAt) {
		return nil, apperr.Validation("ended_at", "must be after started_at %s", attempt.StartedAt.Format(time.RFC3339Nano))
	}

	summary := truncate(in.ErrorSummary, domain.MaxErrorSummaryLength)
	if err := s.repo.Finish(ctx, id, in.Status, endedAt, summary); err != nil {
		return nil, err
	}

	attempt.Status = in.Status
	attempt.EndedAt = &endedAt
	attempt.ErrorSummary = summary
	if d, ok := attempt.Duration(); ok {
		logger.With(logger.Fields{
			logger.FieldImportID: attempt.ImportID,
			logger.FieldStatus:   in.Status.String(),
		}).WithDuration(d.Milliseconds()).Info(ctx, "Attempt %s finished after %s", id, domain.FormatDuration(d))
	}
	return attempt, nil
}

// AddFileInput describes a file to track.
type AddFileInput struct {
	Path        string `json:"path"`
	SizeBytes   *int64 `json:"size_bytes,omitempty"`
	ContentHash string `json:"content_hash"`
}

// FileService manages per-file ingestion state and queue statistics.
type FileService struct {
	repo  *repository.FileRepository
	clock clock.Clock
	ids   clock.IDGenerator
}

// NewFileService creates a new FileService.
func NewFileService(repo *repository.FileRepository, clk clock.Clock, ids clock.IDGenerator) *FileService {
	return &FileService{repo: repo, clock: clk, ids: ids}
}

// Add validates and stores a PENDING file.
// Path must be 1..1024 characters, size non-negative when given, and the
// content hash exactly 64 hex characters.
func (s *FileService) Add(ctx context.Context, importID string, in AddFileInput) (*domain.ImportFile, error) {
	if strings.TrimSpace(importID) == "" {
		return nil, apperr.Validation("import_id", "is required")
	}
	if n := utf8.RuneCountInString(in.Path); n == 0 || n > domain.MaxFilePathLength {
		return nil, apperr.Validation("path", "length must be between 1 and %d, got %d", domain.MaxFilePathLength, n)
	}
	if in.SizeBytes != nil && *in.SizeBytes < 0 {
		return nil, apperr.Validation("size_bytes", "must not be negative")
	}
	hash, err := domain.ParseContentHash(in.ContentHash)
	if err != nil {
		return nil, apperr.Validation("content_hash", "%v", err)
	}

	now := s.clock.Now()
	file := &domain.ImportFile{
		ID:          s.ids.New(),
		ImportID:    importID,
		Path:        in.Path,
		SizeBytes:   in.SizeBytes,
		ContentHash: hash,
		Status:      domain.FileStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, file); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to add file", err)
	}
	metrics.FileTransitions.WithLabelValues(domain.FileStatusPending.String()).Inc()
	return file, nil
}

// Get returns a file by id.
func (s *FileService) Get(ctx context.Context, id string) (*domain.ImportFile, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns an import's files, optionally filtered by status.
func (s *FileService) List(ctx context.Context, importID string, status *domain.FileStatus, limit, offset int) ([]domain.ImportFile, error) {
	if status != nil && !status.Valid() {
		return nil, apperr.Validation("status", "unknown status %d", int(*status))
	}
	return s.repo.ListByImport(ctx, importID, status, limit, offset)
}

// MarkQueued sets QUEUED.
func (s *FileService) MarkQueued(ctx context.Context, id string) (*domain.ImportFile, error) {
	return s.after(ctx, id, domain.FileStatusQueued, s.repo.MarkQueued(ctx, id))
}

// MarkProcessing sets PROCESSING.
func (s *FileService) MarkProcessing(ctx context.Context, id string) (*domain.ImportFile, error) {
	return s.after(ctx, id, domain.FileStatusProcessing, s.repo.MarkProcessing(ctx, id))
}

// MarkIngested sets INGESTED at now.
func (s *FileService) MarkIngested(ctx context.Context, id string) (*domain.ImportFile, error) {
	return s.after(ctx, id, domain.FileStatusIngested, s.repo.MarkIngested(ctx, id, s.clock.Now()))
}

// MarkFailed sets FAILED, counts the attempt and records the error. The file
// stays retryable.
func (s *FileService) MarkFailed(ctx context.Context, id, lastError string) (*domain.ImportFile, error) {
	msg := truncate(lastError, domain.MaxFileErrorLength)
	return s.after(ctx, id, domain.FileStatusFailed, s.repo.MarkFailed(ctx, id, msg))
}

// MarkSkippedDedup sets SKIPPED_DEDUP at now.
func (s *FileService) MarkSkippedDedup(ctx context.Context, id string) (*domain.ImportFile, error) {
	return s.after(ctx, id, domain.FileStatusSkippedDedup, s.repo.MarkSkippedDedup(ctx, id, s.clock.Now()))
}

// MarkQuarantined sets QUARANTINED at now with reason.
func (s *FileService) MarkQuarantined(ctx context.Context, id, reason string) (*domain.ImportFile, error) {
	msg := truncate(reason, domain.MaxFileErrorLength)
	return s.after(ctx, id, domain.FileStatusQuarantined, s.repo.MarkQuarantined(ctx, id, msg, s.clock.Now()))
}

func (s *FileService) after(ctx context.Context, id string, status domain.FileStatus, err error) (*domain.ImportFile, error) {
	if err != nil {
		return nil, err
	}
	metrics.FileTransitions.WithLabelValues(status.String()).Inc()
	return s.repo.GetByID(ctx, id)
}

// FindByHash returns every tracked file with the given content hash, across
// imports, oldest first. Used to spot duplicates before ingesting.
func (s *FileService) FindByHash(ctx context.Context, contentHash string) ([]domain.ImportFile, error) {
	hash, err := domain.ParseContentHash(contentHash)
	if err != nil {
		return nil, apperr.Validation("hash", "%v", err)
	}
	files, err := s.repo.FindByContentHash(ctx, hash)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to look up files by hash", err)
	}
	return files, nil
}

// QueueStats counts an import's files by status.
func (s *FileService) QueueStats(ctx context.Context, importID string) (domain.QueueStats, error) {
	if strings.TrimSpace(importID) == "" {
		return domain.QueueStats{}, apperr.Validation("import_id", "is required")
	}
	return s.repo.CountByStatus(ctx, importID)
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
