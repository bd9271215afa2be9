package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps entries in process with per-entry expiry. Values are
// copied in and out so callers never share a backing array with the cache.
type MemoryCache struct {
	store  *gocache.Cache
	ttls   TTLs
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache creates a memory cache; ttls may be nil
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration, ttls TTLs) *MemoryCache {
	return &MemoryCache{
		store: gocache.New(defaultTTL, cleanupInterval),
		ttls:  ttls,
	}
}

// Get returns a copy of the cached value
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.store.Get(key)
	b, ok := val.([]byte)
	if !found || !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return clone(b), true
}

// Set stores a copy of value. A zero ttl uses the key's namespace expiry,
// then the cache default.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttls.For(key)
	}
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(key, clone(value), ttl)
	return nil
}

// Delete removes a value
func (c *MemoryCache) Delete(key string) error {
	c.store.Delete(key)
	return nil
}

// Clear drops every entry and resets the counters
func (c *MemoryCache) Clear() error {
	c.store.Flush()
	c.hits.Store(0)
	c.misses.Store(0)
	return nil
}

// Stats reports lookups since creation or the last Clear
func (c *MemoryCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: c.store.ItemCount()}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}
