package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ResourceKind names a category of cached external resource.
type ResourceKind string

const (
	KindIngestionPoints ResourceKind = "ingestion_points"
	KindImportJobs      ResourceKind = "import_jobs"
)

// ResourceKinds lists every supported kind.
var ResourceKinds = []ResourceKind{KindIngestionPoints, KindImportJobs}

// ParseResourceKind accepts the snake_case or kebab-case kind name.
func ParseResourceKind(s string) (ResourceKind, error) {
	k := ResourceKind(strings.ReplaceAll(strings.ToLower(s), "-", "_"))
	if !k.Valid() {
		return "", fmt.Errorf("unknown resource kind %q", s)
	}
	return k, nil
}

// Valid reports whether k is a supported kind.
func (k ResourceKind) Valid() bool {
	return k == KindIngestionPoints || k == KindImportJobs
}

// DefaultTTL is the freshness window used when config does not override it.
func (k ResourceKind) DefaultTTL() time.Duration {
	switch k {
	case KindIngestionPoints:
		return 30 * time.Minute
	case KindImportJobs:
		return 15 * time.Minute
	default:
		return 15 * time.Minute
	}
}

// OrderClause is the ORDER BY used when listing active snapshots.
func (k ResourceKind) OrderClause() string {
	if k == KindIngestionPoints {
		return "name ASC"
	}
	return "fetched_at DESC"
}

// idFields are the candidate payload keys for the external identifier, in
// priority order.
func (k ResourceKind) idFields() []string {
	switch k {
	case KindIngestionPoints:
		return []string{"id", "uuid", "ingestionPointId", "ingestion_point_id", "pointId"}
	case KindImportJobs:
		return []string{"id", "uuid", "importJobId", "import_job_id", "jobId", "job_id"}
	default:
		return []string{"id", "uuid"}
	}
}

var (
	nameFields        = []string{"name", "displayName", "display_name", "title", "label"}
	typeFields        = []string{"type", "kind", "category"}
	statusFields      = []string{"status", "state"}
	descriptionFields = []string{"description", "summary", "notes"}
)

// RawResource is one loosely-typed record as returned by the upstream API.
type RawResource map[string]interface{}

// ExternalID returns the first present identifier field for kind.
func (r RawResource) ExternalID(kind ResourceKind) (string, bool) {
	return r.firstString(kind.idFields())
}

// Name returns the display name or fallback when none is present.
func (r RawResource) Name(fallback string) string {
	if v, ok := r.firstString(nameFields); ok {
		return v
	}
	return fallback
}

// Type returns the type/category, or "".
func (r RawResource) Type() string {
	v, _ := r.firstString(typeFields)
	return v
}

// Status returns the upstream status string, or "".
func (r RawResource) Status() string {
	v, _ := r.firstString(statusFields)
	return v
}

// Description returns the free-text description, or "".
func (r RawResource) Description() string {
	v, _ := r.firstString(descriptionFields)
	return v
}

func (r RawResource) firstString(keys []string) (string, bool) {
	for _, key := range keys {
		raw, ok := r[key]
		if !ok || raw == nil {
			continue
		}
		if s := stringify(raw); s != "" {
			return s, true
		}
	}
	return "", false
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	case map[string]interface{}, []interface{}:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Snapshot is one cached copy of an external item for one user.
type Snapshot struct {
	ID          uint              `gorm:"primaryKey" json:"-"`
	UserID      string            `gorm:"type:text;not null;index:idx_snapshots_lookup,priority:1;uniqueIndex:idx_snapshots_active_key,priority:1,where:active = true" json:"user_id"`
	Kind        ResourceKind      `gorm:"type:text;not null;index:idx_snapshots_lookup,priority:2;uniqueIndex:idx_snapshots_active_key,priority:2" json:"kind"`
	ExternalID  string            `gorm:"type:text;not null;uniqueIndex:idx_snapshots_active_key,priority:3" json:"external_id"`
	Name        string            `gorm:"type:text;not null" json:"name"`
	Type        string            `gorm:"type:text" json:"type,omitempty"`
	Status      string            `gorm:"type:text" json:"status,omitempty"`
	Description string            `gorm:"type:text" json:"description,omitempty"`
	Payload     datatypes.JSONMap `gorm:"not null" json:"payload"`
	FetchedAt   time.Time         `gorm:"not null" json:"fetched_at"`
	ExpiresAt   time.Time         `gorm:"not null;index:idx_snapshots_lookup,priority:4" json:"expires_at"`
	Active      bool              `gorm:"not null;default:true;index:idx_snapshots_lookup,priority:3" json:"active"`
}

// TableName returns the database table name for Snapshot.
func (Snapshot) TableName() string {
	return "resource_snapshots"
}

// CacheStats summarises a user's cache for one kind.
type CacheStats struct {
	Kind        ResourceKind `json:"kind"`
	Fresh       int64        `json:"fresh"`
	Expired     int64        `json:"expired"`
	TotalActive int64        `json:"total_active"`
}
