package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/ingestdesk/internal/apperr"
	"github.com/timmy/ingestdesk/internal/clock"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PutResult reports how many items of a bulk write were cached.
type PutResult struct {
	Stored int `json:"stored"`
	Failed int `json:"failed"`
}

// SnapshotRepository persists per-user snapshots of upstream resources.
type SnapshotRepository struct {
	db    *gorm.DB
	clock clock.Clock
	ids   clock.IDGenerator
}

// NewSnapshotRepository creates a new SnapshotRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//   - clk: time source for fetch/expiry stamps and freshness filters.
//   - ids: generator for fallback external ids.
// Returns:
//   - *SnapshotRepository: repository instance bound to db.
func NewSnapshotRepository(db *gorm.DB, clk clock.Clock, ids clock.IDGenerator) *SnapshotRepository {
	return &SnapshotRepository{db: db, clock: clk, ids: ids}
}

// Put replaces the user's active collection for kind with items.
// Every previously active row is deactivated first; each item is then
// inserted on its own so one bad item cannot abort the rest.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owning user.
//   - kind: resource kind.
//   - items: raw upstream records.
//   - ttl: freshness window from now.
// Returns:
//   - PutResult: stored and failed counts.
//   - error: non-nil only if the deactivation step fails.
func (r *SnapshotRepository) Put(ctx context.Context, userID string, kind domain.ResourceKind, items []domain.RawResource, ttl time.Duration) (PutResult, error) {
	now := r.clock.Now()

	if err := r.db.WithContext(ctx).Model(&domain.Snapshot{}).
		Where("user_id = ? AND kind = ? AND active = ?", userID, kind, true).
		Update("active", false).Error; err != nil {
		return PutResult{Failed: len(items)}, fmt.Errorf("failed to deactivate snapshots: %w", err)
	}

	var result PutResult
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if err := r.insert(ctx, userID, kind, item, now, ttl, seen); err != nil {
			result.Failed++
			logger.FromContext(ctx).WithFields(logger.Fields{
				logger.FieldResourceKind: kind,
				"index":                  i,
			}).WithError(err).Warn("Failed to cache item")
			continue
		}
		result.Stored++
	}

	return result, nil
}

// PutOne replaces the active snapshot of a single item.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owning user.
//   - kind: resource kind.
//   - item: raw upstream record.
//   - ttl: freshness window from now.
// Returns:
//   - *domain.Snapshot: the stored snapshot.
//   - error: non-nil if the item cannot be cached.
func (r *SnapshotRepository) PutOne(ctx context.Context, userID string, kind domain.ResourceKind, item domain.RawResource, ttl time.Duration) (*domain.Snapshot, error) {
	now := r.clock.Now()
	snap, err := r.build(userID, kind, item, now, ttl)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&domain.Snapshot{}).
		Where("user_id = ? AND kind = ? AND external_id = ? AND active = ?", userID, kind, snap.ExternalID, true).
		Update("active", false).Error; err != nil {
		return nil, fmt.Errorf("failed to deactivate snapshot: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(snap).Error; err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}
	return snap, nil
}

func (r *SnapshotRepository) insert(ctx context.Context, userID string, kind domain.ResourceKind, item domain.RawResource, now time.Time, ttl time.Duration, seen map[string]struct{}) error {
	snap, err := r.build(userID, kind, item, now, ttl)
	if err != nil {
		return err
	}
	if _, dup := seen[snap.ExternalID]; dup {
		return fmt.Errorf("duplicate external id %q in batch", snap.ExternalID)
	}
	if err := r.db.WithContext(ctx).Create(snap).Error; err != nil {
		return err
	}
	seen[snap.ExternalID] = struct{}{}
	return nil
}

func (r *SnapshotRepository) build(userID string, kind domain.ResourceKind, item domain.RawResource, now time.Time, ttl time.Duration) (*domain.Snapshot, error) {
	if item == nil {
		return nil, errors.New("nil item")
	}

	externalID, ok := item.ExternalID(kind)
	if !ok {
		// Never matches on a later refresh; such items are always treated as new.
		externalID = fmt.Sprintf("gen-%d-%s", now.UnixNano(), r.ids.New())
	}

	// JSONMap swallows encoding errors on insert and stores an empty payload.
	if _, err := json.Marshal(item); err != nil {
		return nil, fmt.Errorf("encode payload for %q: %w", externalID, err)
	}
	payload := make(datatypes.JSONMap, len(item))
	for k, v := range item {
		payload[k] = v
	}

	return &domain.Snapshot{
		UserID:      userID,
		Kind:        kind,
		ExternalID:  externalID,
		Name:        item.Name(externalID),
		Type:        item.Type(),
		Status:      item.Status(),
		Description: item.Description(),
		Payload:     payload,
		FetchedAt:   now,
		ExpiresAt:   now.Add(ttl),
		Active:      true,
	}, nil
}

// GetActive returns the user's active, unexpired snapshots for kind.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owning user.
//   - kind: resource kind; also selects the sort order.
// Returns:
//   - []domain.Snapshot: fresh snapshots, empty on a miss.
//   - error: non-nil if the query fails.
func (r *SnapshotRepository) GetActive(ctx context.Context, userID string, kind domain.ResourceKind) ([]domain.Snapshot, error) {
	var snaps []domain.Snapshot
	if err := r.fresh(ctx, userID, kind).
		Order(kind.OrderClause()).
		Order("id ASC").
		Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snaps, nil
}

// GetOne returns one active, unexpired snapshot.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - userID: owning user.
//   - kind: resource kind.
//   - externalID: upstream identifier.
// Returns:
//   - *domain.Snapshot: matching snapshot.
//   - error: NOT_FOUND app error on a miss, or a query error.
func (r *SnapshotRepository) GetOne(ctx context.Context, userID string, kind domain.ResourceKind, externalID string) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	err := r.fresh(ctx, userID, kind).Where("external_id = ?", externalID).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("no cached %s %q", kind, externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &snap, nil
}

func (r *SnapshotRepository) fresh(ctx context.Context, userID string, kind domain.ResourceKind) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND active = ? AND expires_at > ?", userID, kind, true, r.clock.Now())
}

// DeactivateExpired flips active off for expired rows still flagged active.
// Returns the number of rows changed.
func (r *SnapshotRepository) DeactivateExpired(ctx context.Context, userID string, kind domain.ResourceKind) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Snapshot{}).
		Where("user_id = ? AND kind = ? AND active = ? AND expires_at <= ?", userID, kind, true, r.clock.Now()).
		Update("active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to deactivate expired snapshots: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ClearAll deactivates every active row for the user and kind regardless of
// expiry. Returns the number of rows changed.
func (r *SnapshotRepository) ClearAll(ctx context.Context, userID string, kind domain.ResourceKind) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Snapshot{}).
		Where("user_id = ? AND kind = ? AND active = ?", userID, kind, true).
		Update("active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear snapshots: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Stats counts fresh and expired-but-active rows.
func (r *SnapshotRepository) Stats(ctx context.Context, userID string, kind domain.ResourceKind) (domain.CacheStats, error) {
	stats := domain.CacheStats{Kind: kind}
	now := r.clock.Now()

	if err := r.db.WithContext(ctx).Model(&domain.Snapshot{}).
		Where("user_id = ? AND kind = ? AND active = ? AND expires_at > ?", userID, kind, true, now).
		Count(&stats.Fresh).Error; err != nil {
		return stats, fmt.Errorf("failed to count fresh snapshots: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&domain.Snapshot{}).
		Where("user_id = ? AND kind = ? AND active = ? AND expires_at <= ?", userID, kind, true, now).
		Count(&stats.Expired).Error; err != nil {
		return stats, fmt.Errorf("failed to count expired snapshots: %w", err)
	}

	stats.TotalActive = stats.Fresh + stats.Expired
	return stats, nil
}
