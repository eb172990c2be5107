package archive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/timmy/ingestdesk/internal/archive"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/source"
)

func TestAdapter_FetchAllPages(t *testing.T) {
	pages := map[int][]map[string]interface{}{
		1: {{"id": "p1"}, {"id": "p2"}},
		2: {{"id": "p3"}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		body := map[string]interface{}{"items": pages[page], "next_page": nil}
		if page == 1 {
			body["next_page"] = 2
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	adapter := NewAdapter(archive.NewClient(archive.Config{BaseURL: srv.URL}), domain.KindIngestionPoints)
	items, err := source.FetchAll(context.Background(), adapter, source.Credentials{Token: "t"}, 2)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(items) != 3 {
		t.Errorf("FetchAll() len = %d, want 3", len(items))
	}
}

func TestAdapter_InvalidCursor(t *testing.T) {
	adapter := NewAdapter(archive.NewClient(archive.Config{BaseURL: "http://127.0.0.1:0"}), domain.KindImportJobs)
	if _, _, err := adapter.FetchPage(context.Background(), source.Credentials{}, "zero", 10); err == nil {
		t.Error("FetchPage() error = nil, want invalid cursor")
	}
}
