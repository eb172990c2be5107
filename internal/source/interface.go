package source

import (
	"context"
	"fmt"

	"github.com/timmy/ingestdesk/internal/domain"
)

// Credentials are the caller's upstream credentials, passed through as-is.
type Credentials struct {
	Token string
}

// Source defines the interface for an upstream provider of one resource kind.
type Source interface {
	// Kind returns the resource kind this source serves.
	Kind() domain.ResourceKind

	// FetchPage fetches one page of items starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - creds: caller credentials.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of items to fetch.
	// Returns:
	//   - items: page of raw items.
	//   - nextCursor: cursor for the next page or empty if done.
	//   - err: non-nil if fetching fails.
	FetchPage(ctx context.Context, creds Credentials, cursor string, limit int) (items []domain.RawResource, nextCursor string, err error)

	// FetchOne fetches a single item by its upstream identifier.
	FetchOne(ctx context.Context, creds Credentials, externalID string) (domain.RawResource, error)
}

// maxPages bounds FetchAll against an upstream that never stops paging.
const maxPages = 1000

// FetchAll follows cursors until the source reports no next page.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - src: source to page through.
//   - creds: caller credentials.
//   - pageSize: items per page.
// Returns:
//   - []domain.RawResource: every item in upstream order.
//   - error: the first page error, if any.
func FetchAll(ctx context.Context, src Source, creds Credentials, pageSize int) ([]domain.RawResource, error) {
	var all []domain.RawResource
	cursor := ""
	for page := 0; page < maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, next, err := src.FetchPage(ctx, creds, cursor, pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", src.Kind(), page+1, err)
		}
		all = append(all, items...)

		if next == "" || next == cursor {
			return all, nil
		}
		cursor = next
	}
	return nil, fmt.Errorf("fetch %s: more than %d pages", src.Kind(), maxPages)
}
