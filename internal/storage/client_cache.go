package storage

import (
	"sync"
	"time"

	"github.com/timmy/ingestdesk/internal/clock"
	"github.com/timmy/ingestdesk/internal/domain"
)

type cachedClient struct {
	fingerprint string
	client      ObjectStorage
	createdAt   time.Time
	lastUsed    time.Time
}

// ClientCache keeps one storage client per user. An entry is rebuilt when
// it is older than ttl or the user's credential fingerprint changed. When
// full, the least recently used entry is evicted.
type ClientCache struct {
	mu            sync.Mutex
	entries       map[string]*cachedClient
	ttl           time.Duration
	maxEntries    int
	defaultRegion string
	factory       Factory
	clock         clock.Clock
}

// NewClientCache creates a client cache. A nil factory uses NewStorage.
func NewClientCache(ttl time.Duration, maxEntries int, defaultRegion string, factory Factory, clk clock.Clock) *ClientCache {
	if factory == nil {
		factory = NewStorage
	}
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &ClientCache{
		entries:       make(map[string]*cachedClient),
		ttl:           ttl,
		maxEntries:    maxEntries,
		defaultRegion: defaultRegion,
		factory:       factory,
		clock:         clk,
	}
}

// Get returns the user's client, building it from cred when needed.
// cred must carry the opened secret key.
func (c *ClientCache) Get(userID string, cred *domain.StorageCredential) (ObjectStorage, error) {
	fingerprint := cred.Fingerprint()
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[userID]; ok {
		if e.fingerprint == fingerprint && (c.ttl <= 0 || now.Sub(e.createdAt) < c.ttl) {
			e.lastUsed = now
			return e.client, nil
		}
		delete(c.entries, userID)
	}

	client, err := c.factory(ConfigFromCredential(cred, c.defaultRegion))
	if err != nil {
		return nil, err
	}

	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[userID] = &cachedClient{
		fingerprint: fingerprint,
		client:      client,
		createdAt:   now,
		lastUsed:    now,
	}
	return client, nil
}

// Invalidate drops the user's client.
func (c *ClientCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// Len returns the number of cached clients.
func (c *ClientCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ClientCache) evictLocked() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.lastUsed.Before(oldest) {
			oldestKey, oldest = key, e.lastUsed
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
