package service

import (
	"context"
	"time"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/clock"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/logger"
	"github.com/timmy/ingestdesk/internal/metrics"
	"github.com/timmy/ingestdesk/internal/repository"
)

// Annotation keys added to items returned through the cache.
const (
	AnnotationCached    = "_cached"
	AnnotationCachedAt  = "_cachedAt"
	AnnotationExpiresAt = "_expiresAt"
)

// SnapshotStore is the persistence the cache manager needs.
type SnapshotStore interface {
	Put(ctx context.Context, userID string, kind domain.ResourceKind, items []domain.RawResource, ttl time.Duration) (repository.PutResult, error)
	PutOne(ctx context.Context, userID string, kind domain.ResourceKind, item domain.RawResource, ttl time.Duration) (*domain.Snapshot, error)
	GetActive(ctx context.Context, userID string, kind domain.ResourceKind) ([]domain.Snapshot, error)
	GetOne(ctx context.Context, userID string, kind domain.ResourceKind, externalID string) (*domain.Snapshot, error)
	DeactivateExpired(ctx context.Context, userID string, kind domain.ResourceKind) (int64, error)
	ClearAll(ctx context.Context, userID string, kind domain.ResourceKind) (int64, error)
	Stats(ctx context.Context, userID string, kind domain.ResourceKind) (domain.CacheStats, error)
}

// RefreshResult reports the outcome of writing a fresh collection.
type RefreshResult struct {
	Stored    int       `json:"stored"`
	Failed    int       `json:"failed"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CacheManager is the read/refresh policy for one resource kind.
// Store failures are logged and degrade to a miss; they never reach the
// caller, so the upstream can always be consulted instead.
type CacheManager struct {
	kind  domain.ResourceKind
	ttl   time.Duration
	store SnapshotStore
	clock clock.Clock
}

// NewCacheManager creates a cache manager for kind. A non-positive ttl
// falls back to the kind's default window.
func NewCacheManager(kind domain.ResourceKind, ttl time.Duration, store SnapshotStore, clk clock.Clock) *CacheManager {
	if ttl <= 0 {
		ttl = kind.DefaultTTL()
	}
	return &CacheManager{kind: kind, ttl: ttl, store: store, clock: clk}
}

// Kind returns the resource kind this manager caches.
func (m *CacheManager) Kind() domain.ResourceKind { return m.kind }

// TTL returns the freshness window.
func (m *CacheManager) TTL() time.Duration { return m.ttl }

func (m *CacheManager) log(ctx context.Context, userID string) *logger.Logger {
	return logger.FromContext(ctx).WithFields(logger.Fields{
		logger.FieldUserID:       userID,
		logger.FieldResourceKind: m.kind,
	})
}

// Read returns the user's fresh snapshots. ok is false on a miss.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owning user.
//   - force: bypass the cache; expired rows are deactivated and a miss returned.
// Returns:
//   - []domain.Snapshot: cached snapshots on a hit.
//   - bool: true on a hit.
func (m *CacheManager) Read(ctx context.Context, userID string, force bool) ([]domain.Snapshot, bool) {
	if force {
		if _, err := m.store.DeactivateExpired(ctx, userID, m.kind); err != nil {
			m.log(ctx, userID).WithError(err).Warn("Failed to deactivate expired snapshots")
		}
		metrics.CacheReads.WithLabelValues(string(m.kind), metrics.ResultBypass).Inc()
		return nil, false
	}

	snaps, err := m.store.GetActive(ctx, userID, m.kind)
	if err != nil {
		m.log(ctx, userID).WithError(err).Warn("Cache read failed, treating as miss")
		metrics.CacheReads.WithLabelValues(string(m.kind), metrics.ResultError).Inc()
		return nil, false
	}
	if len(snaps) == 0 {
		metrics.CacheReads.WithLabelValues(string(m.kind), metrics.ResultMiss).Inc()
		return nil, false
	}

	metrics.CacheReads.WithLabelValues(string(m.kind), metrics.ResultHit).Inc()
	return snaps, true
}

// ReadOne returns one fresh snapshot. ok is false on a miss or when force is
// set; force also deactivates expired rows, as Read does.
func (m *CacheManager) ReadOne(ctx context.Context, userID, externalID string, force bool) (*domain.Snapshot, bool) {
	if force {
		if _, err := m.store.DeactivateExpired(ctx, userID, m.kind); err != nil {
			m.log(ctx, userID).WithError(err).Warn("Failed to deactivate expired snapshots")
		}
		metrics.CacheReads.WithLabelValues(string(m.kind), metrics.ResultBypass).Inc()
		return nil, false
	}

	snap, err := m.store.GetOne(ctx, userID, m.kind, externalID)
	if err != nil {
		result := metrics.ResultMiss
		if !apperr.Is(err, apperr.CodeNotFound) {
			result = metrics.ResultError
			m.log(ctx, userID).WithError(err).Warn("Cache read failed, treating as miss")
		}
		metrics.CacheReads.WithLabelValues(string(m.kind), result).Inc()
		return nil, false
	}

	metrics.CacheReads.WithLabelValues(string(m.kind), metrics.ResultHit).Inc()
	return snap, true
}

// Refresh replaces the user's cached collection with items.
// Returns:
//   - RefreshResult: counts and the freshness window written.
func (m *CacheManager) Refresh(ctx context.Context, userID string, items []domain.RawResource) RefreshResult {
	now := m.clock.Now()
	result := RefreshResult{FetchedAt: now, ExpiresAt: now.Add(m.ttl)}

	put, err := m.store.Put(ctx, userID, m.kind, items, m.ttl)
	if err != nil {
		m.log(ctx, userID).WithError(err).Warn("Cache refresh failed")
	}
	result.Stored = put.Stored
	result.Failed = put.Failed

	metrics.CacheRefreshItems.WithLabelValues(string(m.kind), metrics.OutcomeStored).Add(float64(result.Stored))
	metrics.CacheRefreshItems.WithLabelValues(string(m.kind), metrics.OutcomeFailed).Add(float64(result.Failed))

	logger.With(logger.Fields{
		logger.FieldResourceKind: m.kind,
		logger.FieldUserID:       userID,
		logger.FieldFailed:       result.Failed,
	}).WithCount(result.Stored).Info(ctx, "Cache refreshed")

	return result
}

// RefreshOne caches a single item. ok is false when the write failed.
func (m *CacheManager) RefreshOne(ctx context.Context, userID string, item domain.RawResource) (*domain.Snapshot, bool) {
	snap, err := m.store.PutOne(ctx, userID, m.kind, item, m.ttl)
	if err != nil {
		m.log(ctx, userID).WithError(err).Warn("Cache refresh of single item failed")
		metrics.CacheRefreshItems.WithLabelValues(string(m.kind), metrics.OutcomeFailed).Inc()
		return nil, false
	}
	metrics.CacheRefreshItems.WithLabelValues(string(m.kind), metrics.OutcomeStored).Inc()
	return snap, true
}

// Invalidate deactivates the user's whole collection and returns the number
// of rows cleared.
func (m *CacheManager) Invalidate(ctx context.Context, userID string) int64 {
	n, err := m.store.ClearAll(ctx, userID, m.kind)
	if err != nil {
		m.log(ctx, userID).WithError(err).Warn("Cache invalidation failed")
		return 0
	}
	return n
}

// Health reports fresh and expired counts for the user.
func (m *CacheManager) Health(ctx context.Context, userID string) (domain.CacheStats, error) {
	return m.store.Stats(ctx, userID, m.kind)
}

// Annotate returns the snapshot payload marked as served from cache.
func Annotate(snap *domain.Snapshot) map[string]interface{} {
	out := make(map[string]interface{}, len(snap.Payload)+3)
	for k, v := range snap.Payload {
		out[k] = v
	}
	out[AnnotationCached] = true
	out[AnnotationCachedAt] = snap.FetchedAt.UTC().Format(time.RFC3339)
	out[AnnotationExpiresAt] = snap.ExpiresAt.UTC().Format(time.RFC3339)
	return out
}

// AnnotateFresh returns item marked as fetched directly from upstream.
func AnnotateFresh(item domain.RawResource) map[string]interface{} {
	out := make(map[string]interface{}, len(item)+1)
	for k, v := range item {
		out[k] = v
	}
	out[AnnotationCached] = false
	return out
}
