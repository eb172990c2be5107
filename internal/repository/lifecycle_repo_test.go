package repository

import (
	"context"
	"testing"
	"time"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/testutil"
)

func mustHash(t *testing.T, data string) domain.ContentHash {
	t.Helper()
	h, err := domain.ParseContentHash(testutil.SHA256Hex([]byte(data)))
	if err != nil {
		t.Fatalf("ParseContentHash() error = %v", err)
	}
	return h
}

func TestBatchRepository_DeleteGuard(t *testing.T) {
	db := testutil.NewTestDB(t, Models...)
	repo := NewBatchRepository(db)
	ctx := context.Background()

	tests := []struct {
		status   domain.RunStatus
		wantCode apperr.Code
	}{
		{domain.RunStatusPending, apperr.CodeConflict},
		{domain.RunStatusRunning, apperr.CodeConflict},
		{domain.RunStatusCompleted, ""},
		{domain.RunStatusFailed, ""},
		{domain.RunStatusCancelled, ""},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			b := &domain.Batch{ID: "b-" + tt.status.String(), SourceSystem: "s3", CreatedBy: "u1", Status: tt.status}
			if err := repo.Create(ctx, b); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			err := repo.Delete(ctx, b.ID)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Delete() error = %v", err)
				}
				if _, err := repo.GetByID(ctx, b.ID); !apperr.Is(err, apperr.CodeNotFound) {
					t.Errorf("GetByID() after delete error = %v, want NOT_FOUND", err)
				}
				return
			}
			if !apperr.Is(err, tt.wantCode) {
				t.Errorf("Delete() error = %v, want %s", err, tt.wantCode)
			}
		})
	}

	if err := repo.Delete(ctx, "missing"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("Delete(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestBatchRepository_UpdateAndList(t *testing.T) {
	db := testutil.NewTestDB(t, Models...)
	repo := NewBatchRepository(db)
	ctx := context.Background()

	hash := mustHash(t, "manifest")
	b := &domain.Batch{ID: "b1", SourceSystem: "s3", CreatedBy: "u1", ManifestHash: &hash}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	expected := 4
	if err := repo.UpdateCounts(ctx, "b1", 4, 3, &expected); err != nil {
		t.Fatalf("UpdateCounts() error = %v", err)
	}
	if err := repo.UpdateStatus(ctx, "b1", domain.RunStatusRunning); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "b1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != domain.RunStatusRunning || got.IngestedFiles != 3 || got.CompletionPercentage() != 75 {
		t.Errorf("GetByID() = %+v, want RUNNING 3/4", got)
	}
	if got.ManifestHash == nil || *got.ManifestHash != hash {
		t.Errorf("ManifestHash = %v, want %v", got.ManifestHash, hash)
	}

	running := domain.RunStatusRunning
	list, err := repo.List(ctx, &running, 10, 0)
	if err != nil || len(list) != 1 {
		t.Errorf("List(RUNNING) = %d, %v, want 1", len(list), err)
	}

	if err := repo.UpdateStatus(ctx, "missing", domain.RunStatusFailed); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("UpdateStatus(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestAttemptRepository_FinishOnce(t *testing.T) {
	db := testutil.NewTestDB(t, Models...)
	repo := NewAttemptRepository(db)
	ctx := context.Background()
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	a := &domain.ImportAttempt{ID: "a1", ImportID: "imp", StartedAt: start}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.MarkRunning(ctx, "a1"); err != nil {
		t.Fatalf("MarkRunning() error = %v", err)
	}
	if err := repo.Finish(ctx, "a1", domain.RunStatusCompleted, start.Add(time.Minute), ""); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	err := repo.Finish(ctx, "a1", domain.RunStatusFailed, start.Add(2*time.Minute), "late")
	if !apperr.Is(err, apperr.CodeConflict) {
		t.Errorf("second Finish() error = %v, want CONFLICT", err)
	}
	if err := repo.MarkRunning(ctx, "a1"); !apperr.Is(err, apperr.CodeConflict) {
		t.Errorf("MarkRunning() after finish error = %v, want CONFLICT", err)
	}
	if err := repo.Finish(ctx, "missing", domain.RunStatusCompleted, start, ""); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("Finish(missing) error = %v, want NOT_FOUND", err)
	}

	got, _ := repo.GetByID(ctx, "a1")
	if got.Status != domain.RunStatusCompleted {
		t.Errorf("Status = %s, want COMPLETED", got.Status)
	}
	if d, ok := got.Duration(); !ok || d != time.Minute {
		t.Errorf("Duration() = %v, %v, want 1m", d, ok)
	}
}

func TestFileRepository_TransitionsAndCounts(t *testing.T) {
	db := testutil.NewTestDB(t, Models...)
	repo := NewFileRepository(db)
	ctx := context.Background()
	at := time.Date(2024, 1, 15, 11, 0, 0, 0, time.UTC)

	for i, name := range []string{"a", "b", "c", "d", "e"} {
		f := &domain.ImportFile{ID: name, ImportID: "imp", Path: "/in/" + name, ContentHash: mustHash(t, name)}
		if i == 4 {
			f.ImportID = "other"
		}
		if err := repo.Create(ctx, f); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	if err := repo.MarkIngested(ctx, "a", at); err != nil {
		t.Fatalf("MarkIngested() error = %v", err)
	}
	if err := repo.MarkFailed(ctx, "b", "boom"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	if err := repo.MarkFailed(ctx, "b", "boom again"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	if err := repo.MarkQuarantined(ctx, "c", "bad magic", at); err != nil {
		t.Fatalf("MarkQuarantined() error = %v", err)
	}
	if err := repo.MarkQueued(ctx, "missing"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("MarkQueued(missing) error = %v, want NOT_FOUND", err)
	}

	b, _ := repo.GetByID(ctx, "b")
	if b.AttemptCount != 2 || b.LastError != "boom again" {
		t.Errorf("failed file = %+v, want 2 attempts and last error", b)
	}
	c, _ := repo.GetByID(ctx, "c")
	if c.IngestedAt == nil || !c.IngestedAt.Equal(at) || c.LastError != "bad magic" {
		t.Errorf("quarantined file = %+v", c)
	}

	stats, err := repo.CountByStatus(ctx, "imp")
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	want := domain.QueueStats{ImportID: "imp", Pending: 1, Ingested: 1, Failed: 1, Quarantined: 1, Total: 4}
	if stats != want {
		t.Errorf("CountByStatus() = %+v, want %+v", stats, want)
	}

	empty, err := repo.CountByStatus(ctx, "nothing")
	if err != nil || empty != (domain.QueueStats{ImportID: "nothing"}) {
		t.Errorf("CountByStatus(empty) = %+v, %v", empty, err)
	}

	dups, err := repo.FindByContentHash(ctx, mustHash(t, "e"))
	if err != nil || len(dups) != 1 || dups[0].ImportID != "other" {
		t.Errorf("FindByContentHash() = %+v, %v", dups, err)
	}
}

func TestCredentialRepository_Upsert(t *testing.T) {
	db := testutil.NewTestDB(t, Models...)
	repo := NewCredentialRepository(db)
	ctx := context.Background()

	cred := &domain.StorageCredential{UserID: "u1", Endpoint: "s3.local", Bucket: "one", AccessKey: "ak", SealedSecretKey: []byte("x")}
	if err := repo.Upsert(ctx, cred); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	cred2 := &domain.StorageCredential{UserID: "u1", Endpoint: "s3.local", Bucket: "two", AccessKey: "ak", SealedSecretKey: []byte("y"), UseSSL: true}
	if err := repo.Upsert(ctx, cred2); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := repo.GetByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByUser() error = %v", err)
	}
	if got.Bucket != "two" || string(got.SealedSecretKey) != "y" || !got.UseSSL {
		t.Errorf("GetByUser() = %+v, want replaced credential", got)
	}

	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByUser(ctx, "u1"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("GetByUser() after delete error = %v, want NOT_FOUND", err)
	}
}
