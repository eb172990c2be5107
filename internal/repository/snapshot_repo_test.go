package repository

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/testutil"
)

func newSnapshotRepo(t *testing.T) (*SnapshotRepository, *testutil.StubClock) {
	t.Helper()
	db := testutil.NewTestDB(t, Models...)
	clk := testutil.FixedClock()
	return NewSnapshotRepository(db, clk, testutil.NewStubIDGenerator()), clk
}

func TestSnapshotRepository_PutAndGetActive(t *testing.T) {
	repo, _ := newSnapshotRepo(t)
	ctx := context.Background()

	items := []domain.RawResource{
		{"id": "p2", "name": "Bravo", "type": "sftp"},
		{"id": "p1", "name": "Alpha", "status": "active"},
	}
	res, err := repo.Put(ctx, "u1", domain.KindIngestionPoints, items, 30*time.Minute)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if res.Stored != 2 || res.Failed != 0 {
		t.Fatalf("Put() = %+v, want 2 stored", res)
	}

	got, err := repo.GetActive(ctx, "u1", domain.KindIngestionPoints)
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetActive() len = %d, want 2", len(got))
	}
	if got[0].Name != "Alpha" || got[1].Name != "Bravo" {
		t.Errorf("order = [%s %s], want name ascending", got[0].Name, got[1].Name)
	}
	if got[0].Status != "active" || got[1].Type != "sftp" {
		t.Errorf("projection not extracted: %+v", got)
	}
	if got[0].Payload["id"] != "p1" {
		t.Errorf("payload id = %v, want p1", got[0].Payload["id"])
	}
}

func TestSnapshotRepository_PutReplacesCollection(t *testing.T) {
	repo, _ := newSnapshotRepo(t)
	ctx := context.Background()

	first := []domain.RawResource{{"id": "a"}, {"id": "b"}, {"id": "c"}}
	if _, err := repo.Put(ctx, "u1", domain.KindImportJobs, first, time.Hour); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	second := []domain.RawResource{{"id": "b"}, {"id": "d"}}
	if _, err := repo.Put(ctx, "u1", domain.KindImportJobs, second, time.Hour); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := repo.GetActive(ctx, "u1", domain.KindImportJobs)
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	ids := map[string]bool{}
	for _, s := range got {
		ids[s.ExternalID] = true
	}
	if len(got) != 2 || !ids["b"] || !ids["d"] {
		t.Errorf("active ids = %v, want exactly b and d", ids)
	}
}

func TestSnapshotRepository_PutPartialFailure(t *testing.T) {
	repo, _ := newSnapshotRepo(t)
	ctx := context.Background()

	items := []domain.RawResource{
		{"id": "ok-1"},
		{"id": "bad", "score": math.NaN()},
		{"id": "ok-1"},
		{"id": "ok-2"},
		nil,
	}
	res, err := repo.Put(ctx, "u1", domain.KindImportJobs, items, time.Hour)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if res.Stored != 2 || res.Failed != 3 {
		t.Errorf("Put() = %+v, want 2 stored / 3 failed", res)
	}

	got, err := repo.GetActive(ctx, "u1", domain.KindImportJobs)
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("GetActive() len = %d, want 2", len(got))
	}
}

func TestSnapshotRepository_PutOneRejectsUnencodablePayload(t *testing.T) {
	repo, _ := newSnapshotRepo(t)
	ctx := context.Background()

	if _, err := repo.Put(ctx, "u1", domain.KindImportJobs, []domain.RawResource{{"id": "ok"}}, time.Hour); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := repo.PutOne(ctx, "u1", domain.KindImportJobs, domain.RawResource{"id": "bad", "score": math.Inf(1)}, time.Hour); err == nil {
		t.Error("PutOne() error = nil, want encoding error")
	}

	got, err := repo.GetActive(ctx, "u1", domain.KindImportJobs)
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if len(got) != 1 || got[0].ExternalID != "ok" {
		t.Errorf("GetActive() = %d rows, want only ok", len(got))
	}
}

func TestSnapshotRepository_FallbackIDsAreDistinct(t *testing.T) {
	repo, _ := newSnapshotRepo(t)
	ctx := context.Background()

	items := []domain.RawResource{{"name": "x"}, {"name": "y"}, {"label": "z"}}
	res, err := repo.Put(ctx, "u1", domain.KindIngestionPoints, items, time.Hour)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if res.Stored != 3 {
		t.Fatalf("Put() = %+v, want 3 stored", res)
	}

	got, _ := repo.GetActive(ctx, "u1", domain.KindIngestionPoints)
	seen := map[string]bool{}
	for _, s := range got {
		if !strings.HasPrefix(s.ExternalID, "gen-") {
			t.Errorf("ExternalID = %q, want gen- prefix", s.ExternalID)
		}
		if seen[s.ExternalID] {
			t.Errorf("duplicate fallback id %q", s.ExternalID)
		}
		seen[s.ExternalID] = true
	}
}

func TestSnapshotRepository_NumericIDs(t *testing.T) {
	repo, _ := newSnapshotRepo(t)
	ctx := context.Background()

	if _, err := repo.Put(ctx, "u1", domain.KindImportJobs, []domain.RawResource{{"jobId": float64(42)}}, time.Hour); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	snap, err := repo.GetOne(ctx, "u1", domain.KindImportJobs, "42")
	if err != nil {
		t.Fatalf("GetOne() error = %v", err)
	}
	if snap.Name != "42" {
		t.Errorf("Name = %q, want external id fallback 42", snap.Name)
	}
}

func TestSnapshotRepository_Expiry(t *testing.T) {
	repo, clk := newSnapshotRepo(t)
	ctx := context.Background()

	if _, err := repo.Put(ctx, "u1", domain.KindImportJobs, []domain.RawResource{{"id": "a"}}, 15*time.Minute); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	clk.Advance(15 * time.Minute)
	got, err := repo.GetActive(ctx, "u1", domain.KindImportJobs)
	if err != nil {
		t.Fatalf("GetActive() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("GetActive() at expiry len = %d, want 0", len(got))
	}
	if _, err := repo.GetOne(ctx, "u1", domain.KindImportJobs, "a"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("GetOne() error = %v, want NOT_FOUND", err)
	}

	stats, _ := repo.Stats(ctx, "u1", domain.KindImportJobs)
	if stats.Fresh != 0 || stats.Expired != 1 || stats.TotalActive != 1 {
		t.Errorf("Stats() = %+v, want 0 fresh / 1 expired", stats)
	}

	n, err := repo.DeactivateExpired(ctx, "u1", domain.KindImportJobs)
	if err != nil || n != 1 {
		t.Errorf("DeactivateExpired() = %d, %v, want 1", n, err)
	}
	stats, _ = repo.Stats(ctx, "u1", domain.KindImportJobs)
	if stats.TotalActive != 0 {
		t.Errorf("Stats().TotalActive = %d, want 0", stats.TotalActive)
	}
}

func TestSnapshotRepository_ImportJobsNewestFirst(t *testing.T) {
	repo, clk := newSnapshotRepo(t)
	ctx := context.Background()

	if _, err := repo.PutOne(ctx, "u1", domain.KindImportJobs, domain.RawResource{"id": "old"}, time.Hour); err != nil {
		t.Fatalf("PutOne() error = %v", err)
	}
	clk.Advance(time.Minute)
	if _, err := repo.PutOne(ctx, "u1", domain.KindImportJobs, domain.RawResource{"id": "new"}, time.Hour); err != nil {
		t.Fatalf("PutOne() error = %v", err)
	}

	got, _ := repo.GetActive(ctx, "u1", domain.KindImportJobs)
	if len(got) != 2 || got[0].ExternalID != "new" {
		t.Errorf("GetActive() = %+v, want new first", got)
	}
}

func TestSnapshotRepository_PutOneReplacesSameID(t *testing.T) {
	repo, _ := newSnapshotRepo(t)
	ctx := context.Background()

	for _, name := range []string{"v1", "v2"} {
		if _, err := repo.PutOne(ctx, "u1", domain.KindIngestionPoints, domain.RawResource{"id": "p", "name": name}, time.Hour); err != nil {
			t.Fatalf("PutOne() error = %v", err)
		}
	}

	got, _ := repo.GetActive(ctx, "u1", domain.KindIngestionPoints)
	if len(got) != 1 || got[0].Name != "v2" {
		t.Errorf("GetActive() = %+v, want single v2", got)
	}
}

func TestSnapshotRepository_ClearAllIsPerUserAndKind(t *testing.T) {
	repo, _ := newSnapshotRepo(t)
	ctx := context.Background()

	items := []domain.RawResource{{"id": "a"}, {"id": "b"}}
	repo.Put(ctx, "u1", domain.KindImportJobs, items, time.Hour)
	repo.Put(ctx, "u1", domain.KindIngestionPoints, items, time.Hour)
	repo.Put(ctx, "u2", domain.KindImportJobs, items, time.Hour)

	n, err := repo.ClearAll(ctx, "u1", domain.KindImportJobs)
	if err != nil || n != 2 {
		t.Fatalf("ClearAll() = %d, %v, want 2", n, err)
	}

	tests := []struct {
		user string
		kind domain.ResourceKind
		want int
	}{
		{"u1", domain.KindImportJobs, 0},
		{"u1", domain.KindIngestionPoints, 2},
		{"u2", domain.KindImportJobs, 2},
	}
	for _, tt := range tests {
		got, _ := repo.GetActive(ctx, tt.user, tt.kind)
		if len(got) != tt.want {
			t.Errorf("GetActive(%s, %s) len = %d, want %d", tt.user, tt.kind, len(got), tt.want)
		}
	}
}
