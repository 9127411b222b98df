package location

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/presence-engine/presence"
)

const defaultShelfCacheTTL = time.Hour

// ShelfCache caches the reader-to-shelf mapping, populated lazily by the
// resolver and invalidated by TTL or explicitly when a reader's shelf
// assignment changes. Staleness between invalidation and the next refetch is
// tolerated; refetches are idempotent reads of the same source.
type ShelfCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[uuid.UUID]shelfCacheEntry
}

type shelfCacheEntry struct {
	location presence.ShelfLocation
	cachedAt time.Time
}

// ShelfCacheOption configures a ShelfCache.
type ShelfCacheOption func(*ShelfCache)

// WithShelfCacheTTL overrides the default 1 hour entry TTL.
func WithShelfCacheTTL(ttl time.Duration) ShelfCacheOption {
	return func(c *ShelfCache) {
		c.ttl = ttl
	}
}

// WithShelfCacheClock injects the time source, used by tests to control expiry.
func WithShelfCacheClock(now func() time.Time) ShelfCacheOption {
	return func(c *ShelfCache) {
		c.now = now
	}
}

// NewShelfCache creates an empty reader-shelf cache.
func NewShelfCache(options ...ShelfCacheOption) *ShelfCache {
	c := &ShelfCache{
		ttl:     defaultShelfCacheTTL,
		now:     time.Now,
		entries: make(map[uuid.UUID]shelfCacheEntry),
	}

	for _, option := range options {
		option(c)
	}

	return c
}

// Get returns the cached shelf location for a reader. The second return value
// is false on a miss or when the entry has outlived the TTL.
func (c *ShelfCache) Get(readerID uuid.UUID) (presence.ShelfLocation, bool) {
	c.mu.RLock()
	entry, ok := c.entries[readerID]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.cachedAt) > c.ttl {
		return presence.ShelfLocation{}, false
	}

	return entry.location, true
}

// Set stores the shelf location for a reader, stamping it with the current time.
func (c *ShelfCache) Set(readerID uuid.UUID, location presence.ShelfLocation) {
	c.mu.Lock()
	c.entries[readerID] = shelfCacheEntry{location: location, cachedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate evicts one reader's entry. Called when a reader's shelf
// assignment changes outside this engine.
func (c *ShelfCache) Invalidate(readerID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, readerID)
	c.mu.Unlock()
}
