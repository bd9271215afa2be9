package cache

import (
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LayeredCache reads memory first and falls back to disk, promoting disk hits.
// Writes land in memory even when the disk layer fails.
type LayeredCache struct {
	memory *MemoryCache
	disk   *DiskCache
	ttls   TTLs
}

// NewLayeredCache creates a memory cache in front of a disk cache in diskDir
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration, ttls TTLs) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute, ttls),
		disk:   NewDiskCache(diskDir, diskTTL),
		ttls:   ttls,
	}
}

// Get checks memory, then disk
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, ok := c.memory.Get(key); ok {
		return val, true
	}
	val, ok := c.disk.Get(key)
	if !ok {
		return nil, false
	}
	_ = c.memory.Set(key, val, 0)
	return val, true
}

// Set writes both layers. A zero ttl resolves against the key's namespace in
// both, so the disk copy never outlives the namespace expiry.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttls.For(key)
	}
	_ = c.memory.Set(key, value, ttl)
	if err := c.disk.Set(key, value, ttl); err != nil {
		zap.L().Warn("disk cache write failed", zap.String("key", key), zap.Error(err))
		return eris.Wrap(err, "cache: layered set")
	}
	return nil
}

// Delete removes the key from both layers
func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.memory.Delete(key), c.disk.Delete(key))
}

// Clear empties both layers
func (c *LayeredCache) Clear() error {
	return errors.Join(c.memory.Clear(), c.disk.Clear())
}

// Stats reports the memory layer's lookups; misses there fall through to disk
func (c *LayeredCache) Stats() Stats {
	return c.memory.Stats()
}
