// Package fixture serves upstream resources from local JSON Lines files, for
// development without the archive API and for tests.
package fixture

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/source"
)

// Adapter implements the Source interface over <dir>/<kind>.jsonl.
// Credentials are ignored.
type Adapter struct {
	dir  string
	kind domain.ResourceKind

	once    sync.Once
	items   []domain.RawResource
	loadErr error
}

// NewAdapter creates a new fixture adapter.
// Parameters:
//   - dir: directory holding one JSONL file per kind.
//   - kind: resource kind to serve.
// Returns:
//   - *Adapter: adapter reading dir/kind.jsonl on first use.
func NewAdapter(dir string, kind domain.ResourceKind) *Adapter {
	return &Adapter{dir: dir, kind: kind}
}

// Path returns the JSONL file this adapter reads.
func (a *Adapter) Path() string {
	return filepath.Join(a.dir, string(a.kind)+".jsonl")
}

// Kind returns the resource kind.
func (a *Adapter) Kind() domain.ResourceKind {
	return a.kind
}

// FetchPage returns items [cursor, cursor+limit) in file order.
func (a *Adapter) FetchPage(ctx context.Context, _ source.Credentials, cursor string, limit int) ([]domain.RawResource, string, error) {
	items, err := a.load()
	if err != nil {
		return nil, "", err
	}

	start := 0
	if cursor != "" {
		start, err = strconv.Atoi(cursor)
		if err != nil || start < 0 {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
	}
	if start >= len(items) {
		return []domain.RawResource{}, "", nil
	}
	if limit <= 0 {
		limit = len(items)
	}

	end := start + limit
	if end > len(items) {
		end = len(items)
	}

	next := ""
	if end < len(items) {
		next = strconv.Itoa(end)
	}
	return items[start:end], next, nil
}

// FetchOne returns the item whose external id matches.
func (a *Adapter) FetchOne(ctx context.Context, _ source.Credentials, externalID string) (domain.RawResource, error) {
	items, err := a.load()
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if id, ok := item.ExternalID(a.kind); ok && id == externalID {
			return item, nil
		}
	}
	return nil, apperr.NotFound("%s %q not found upstream", a.kind, externalID)
}

func (a *Adapter) load() ([]domain.RawResource, error) {
	a.once.Do(func() {
		a.items, a.loadErr = readJSONL(a.Path())
	})
	return a.items, a.loadErr
}

func readJSONL(path string) ([]domain.RawResource, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return []domain.RawResource{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer file.Close()

	items := []domain.RawResource{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var item domain.RawResource
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filepath.Base(path), lineNo, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading fixture: %w", err)
	}
	return items, nil
}
