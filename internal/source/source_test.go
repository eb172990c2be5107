package source_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/source"
	"github.com/timmy/ingestdesk/internal/source/fixture"
)

func writeFixture(t *testing.T, kind domain.ResourceKind, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, string(kind)+".jsonl"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return dir
}

func TestFetchAll_FollowsCursors(t *testing.T) {
	dir := writeFixture(t, domain.KindImportJobs, `{"id":"a"}
{"id":"b"}

# comment
{"id":"c"}
{"jobId":7}
{"id":"e"}
`)
	src := fixture.NewAdapter(dir, domain.KindImportJobs)

	items, err := source.FetchAll(context.Background(), src, source.Credentials{}, 2)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("FetchAll() len = %d, want 5", len(items))
	}
	if id, _ := items[3].ExternalID(domain.KindImportJobs); id != "7" {
		t.Errorf("items[3] id = %q, want 7", id)
	}
}

func TestFixture_FetchOne(t *testing.T) {
	dir := writeFixture(t, domain.KindIngestionPoints, `{"id":"p1","name":"Dock"}`+"\n")
	src := fixture.NewAdapter(dir, domain.KindIngestionPoints)

	item, err := src.FetchOne(context.Background(), source.Credentials{}, "p1")
	if err != nil || item.Name("") != "Dock" {
		t.Fatalf("FetchOne() = %v, %v", item, err)
	}
	if _, err := src.FetchOne(context.Background(), source.Credentials{}, "p2"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("FetchOne(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestFixture_MissingFileIsEmpty(t *testing.T) {
	src := fixture.NewAdapter(t.TempDir(), domain.KindImportJobs)
	items, err := source.FetchAll(context.Background(), src, source.Credentials{}, 10)
	if err != nil || len(items) != 0 {
		t.Errorf("FetchAll() = %v, %v, want empty", items, err)
	}
}

func TestFixture_MalformedLine(t *testing.T) {
	dir := writeFixture(t, domain.KindImportJobs, "{\"id\":\"a\"}\n{not json\n")
	src := fixture.NewAdapter(dir, domain.KindImportJobs)
	if _, err := source.FetchAll(context.Background(), src, source.Credentials{}, 10); err == nil {
		t.Error("FetchAll() error = nil, want parse error")
	}
}

type brokenSource struct{}

var errUpstream = errors.New("upstream down")

func (brokenSource) Kind() domain.ResourceKind { return domain.KindImportJobs }

func (brokenSource) FetchPage(context.Context, source.Credentials, string, int) ([]domain.RawResource, string, error) {
	return nil, "", errUpstream
}

func (brokenSource) FetchOne(context.Context, source.Credentials, string) (domain.RawResource, error) {
	return nil, errUpstream
}

func TestFetchAll_PropagatesErrors(t *testing.T) {
	_, err := source.FetchAll(context.Background(), brokenSource{}, source.Credentials{}, 10)
	if !errors.Is(err, errUpstream) {
		t.Errorf("FetchAll() error = %v, want wrapped upstream error", err)
	}
}
