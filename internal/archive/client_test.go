package archive

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestClient_List(t *testing.T) {
	var gotAuth, gotPage, gotLimit, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPage = r.URL.Query().Get("page")
		gotLimit = r.URL.Query().Get("limit")
		gotPath = r.URL.Path
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"items":     []map[string]interface{}{{"id": "j1"}, {"id": "j2"}},
			"next_page": 3,
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", Timeout: time.Second})
	page, err := c.List(context.Background(), "tok", domain.KindImportJobs, 2, 50)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if gotPath != "/import-jobs" || gotPage != "2" || gotLimit != "50" {
		t.Errorf("request = %s page=%s limit=%s", gotPath, gotPage, gotLimit)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q, want Bearer tok", gotAuth)
	}
	if len(page.Items) != 2 || page.NextPage == nil || *page.NextPage != 3 {
		t.Errorf("List() = %+v", page)
	}
}

func TestClient_ListError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "bad token"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.List(context.Background(), "", domain.KindIngestionPoints, 1, 0)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("List() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Message != "bad token" {
		t.Errorf("StatusError = %+v", statusErr)
	}
}

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ingestion-points/p1":
			writeJSON(w, http.StatusOK, map[string]interface{}{"id": "p1", "name": "Dock"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	item, err := c.Get(context.Background(), "tok", domain.KindIngestionPoints, "p1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if item.Name("") != "Dock" {
		t.Errorf("Get() = %v", item)
	}

	if _, err := c.Get(context.Background(), "tok", domain.KindIngestionPoints, "nope"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Errorf("Get(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestPath(t *testing.T) {
	if got := Path(domain.KindIngestionPoints); got != "/ingestion-points" {
		t.Errorf("Path() = %q", got)
	}
}
