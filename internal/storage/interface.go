package storage

import (
	"context"
	"time"
)

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectStorage defines the interface for object storage operations
type ObjectStorage interface {
	// Ping checks that the bucket is reachable with the configured credentials
	Ping(ctx context.Context) error

	// List returns up to limit objects whose keys start with prefix
	List(ctx context.Context, prefix string, limit int) ([]ObjectInfo, error)

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}
