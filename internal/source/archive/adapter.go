// Package archive adapts the archive API client to the Source interface.
package archive

import (
	"context"
	"fmt"
	"strconv"

	"github.com/timmy/ingestdesk/internal/archive"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/source"
)

// Adapter serves one resource kind from the archive API. Cursors are page
// numbers.
type Adapter struct {
	client *archive.Client
	kind   domain.ResourceKind
}

// NewAdapter creates a new archive adapter for kind.
func NewAdapter(client *archive.Client, kind domain.ResourceKind) *Adapter {
	return &Adapter{client: client, kind: kind}
}

// Kind returns the resource kind.
func (a *Adapter) Kind() domain.ResourceKind {
	return a.kind
}

// FetchPage fetches the page named by cursor; empty means page 1.
func (a *Adapter) FetchPage(ctx context.Context, creds source.Credentials, cursor string, limit int) ([]domain.RawResource, string, error) {
	page := 1
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 1 {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
		page = n
	}

	result, err := a.client.List(ctx, creds.Token, a.kind, page, limit)
	if err != nil {
		return nil, "", err
	}

	next := ""
	if result.NextPage != nil && *result.NextPage > page {
		next = strconv.Itoa(*result.NextPage)
	}
	return result.Items, next, nil
}

// FetchOne fetches one item by id.
func (a *Adapter) FetchOne(ctx context.Context, creds source.Credentials, externalID string) (domain.RawResource, error) {
	return a.client.Get(ctx, creds.Token, a.kind, externalID)
}
