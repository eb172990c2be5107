package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/logger"
	"github.com/timmy/ingestdesk/internal/source"
)

// ListResult is a collection served through the cache.
type ListResult struct {
	Items   []map[string]interface{} `json:"items"`
	Cached  bool                     `json:"cached"`
	Refresh *RefreshResult           `json:"refresh,omitempty"`
}

// ResourceService serves upstream resources read-through the cache.
type ResourceService struct {
	caches   map[domain.ResourceKind]*CacheManager
	sources  map[domain.ResourceKind]source.Source
	pageSize int
}

// NewResourceService wires one cache manager and one source per kind.
// Every kind with a cache manager must have a source.
func NewResourceService(caches []*CacheManager, sources []source.Source, pageSize int) (*ResourceService, error) {
	s := &ResourceService{
		caches:   make(map[domain.ResourceKind]*CacheManager, len(caches)),
		sources:  make(map[domain.ResourceKind]source.Source, len(sources)),
		pageSize: pageSize,
	}
	for _, c := range caches {
		s.caches[c.Kind()] = c
	}
	for _, src := range sources {
		s.sources[src.Kind()] = src
	}
	for kind := range s.caches {
		if _, ok := s.sources[kind]; !ok {
			return nil, fmt.Errorf("no source configured for %s", kind)
		}
	}
	return s, nil
}

func (s *ResourceService) lookup(kind domain.ResourceKind) (*CacheManager, source.Source, error) {
	cache, ok := s.caches[kind]
	if !ok {
		return nil, nil, apperr.Validation("kind", "unsupported resource kind %q", kind)
	}
	return cache, s.sources[kind], nil
}

// Cache returns the cache manager for kind.
func (s *ResourceService) Cache(kind domain.ResourceKind) (*CacheManager, error) {
	cache, _, err := s.lookup(kind)
	return cache, err
}

// List returns the user's collection of kind. A cache hit is returned as-is;
// a miss or force fetches every page upstream and refreshes the cache.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - kind: resource kind.
//   - userID: owning user.
//   - creds: caller credentials passed to the upstream.
//   - force: bypass the cache.
// Returns:
//   - *ListResult: annotated items.
//   - error: UPSTREAM_UNAVAILABLE when the upstream fetch fails.
func (s *ResourceService) List(ctx context.Context, kind domain.ResourceKind, userID string, creds source.Credentials, force bool) (*ListResult, error) {
	cache, src, err := s.lookup(kind)
	if err != nil {
		return nil, err
	}

	if snaps, ok := cache.Read(ctx, userID, force); ok {
		items := make([]map[string]interface{}, 0, len(snaps))
		for i := range snaps {
			items = append(items, Annotate(&snaps[i]))
		}
		return &ListResult{Items: items, Cached: true}, nil
	}

	start := time.Now()
	fetched, err := source.FetchAll(ctx, src, creds, s.pageSize)
	if err != nil {
		return nil, upstreamError(kind, err)
	}
	logger.With(logger.Fields{logger.FieldResourceKind: kind}).
		WithDuration(time.Since(start).Milliseconds()).
		WithCount(len(fetched)).
		Debug(ctx, "Fetched %s from upstream", kind)

	refresh := cache.Refresh(ctx, userID, fetched)

	items := make([]map[string]interface{}, 0, len(fetched))
	for _, item := range fetched {
		items = append(items, AnnotateFresh(item))
	}
	return &ListResult{Items: items, Cached: false, Refresh: &refresh}, nil
}

// Get returns one item of kind, read-through the cache.
func (s *ResourceService) Get(ctx context.Context, kind domain.ResourceKind, userID string, creds source.Credentials, externalID string, force bool) (map[string]interface{}, error) {
	cache, src, err := s.lookup(kind)
	if err != nil {
		return nil, err
	}

	if snap, ok := cache.ReadOne(ctx, userID, externalID, force); ok {
		return Annotate(snap), nil
	}

	item, err := src.FetchOne(ctx, creds, externalID)
	if err != nil {
		return nil, upstreamError(kind, err)
	}
	cache.RefreshOne(ctx, userID, item)
	return AnnotateFresh(item), nil
}

// Invalidate clears the user's cached collection of kind.
func (s *ResourceService) Invalidate(ctx context.Context, kind domain.ResourceKind, userID string) (int64, error) {
	cache, _, err := s.lookup(kind)
	if err != nil {
		return 0, err
	}
	return cache.Invalidate(ctx, userID), nil
}

// Health reports the user's cache counts for kind.
func (s *ResourceService) Health(ctx context.Context, kind domain.ResourceKind, userID string) (domain.CacheStats, error) {
	cache, _, err := s.lookup(kind)
	if err != nil {
		return domain.CacheStats{}, err
	}
	stats, err := cache.Health(ctx, userID)
	if err != nil {
		return stats, apperr.Wrap(apperr.CodeInternal, "failed to read cache stats", err)
	}
	return stats, nil
}

func upstreamError(kind domain.ResourceKind, err error) error {
	if apperr.Is(err, apperr.CodeNotFound) {
		return err
	}
	return apperr.Wrap(apperr.CodeUpstream, fmt.Sprintf("failed to fetch %s", kind), err)
}
