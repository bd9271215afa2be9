package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Config selects and sizes the cache layers
type Config struct {
	Enabled   bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `json:"memory_ttl" yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `json:"disk_dir,omitempty" yaml:"disk_dir,omitempty" mapstructure:"disk_dir"` // Empty keeps the cache in memory only
	DiskTTL   time.Duration `json:"disk_ttl" yaml:"disk_ttl" mapstructure:"disk_ttl"`

	// NamespaceTTL overrides the expiry of entries whose key was built with
	// Key(namespace, ...), e.g. entities: 24h
	NamespaceTTL TTLs `json:"namespace_ttl,omitempty" yaml:"namespace_ttl,omitempty" mapstructure:"namespace_ttl"`
}

// TTLs maps a key namespace to its expiry
type TTLs map[string]time.Duration

// For returns the expiry for key's namespace, or 0 when none is set
func (t TTLs) For(key string) time.Duration {
	if len(t) == 0 {
		return 0
	}
	return t[Namespace(key)]
}

// Stats counts lookups against a cache
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// StatsReporter is implemented by caches that count their lookups
type StatsReporter interface {
	Stats() Stats
}

// New builds the cache described by cfg, or nil when caching is disabled
func New(cfg Config) Cache {
	if !cfg.Enabled {
		return nil
	}
	if cfg.DiskDir == "" {
		return NewMemoryCache(cfg.MemoryTTL, 10*time.Minute, cfg.NamespaceTTL)
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.DiskDir, cfg.DiskTTL, cfg.NamespaceTTL)
}

// Key generates a namespaced cache key from its parts
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return keyPrefix + namespace + ":" + hex.EncodeToString(hash[:])
}

const keyPrefix = "groundcheck:v1:"

// Namespace returns the namespace a Key was built with, or "" for other keys
func Namespace(key string) string {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return ""
	}
	ns, _, ok := strings.Cut(rest, ":")
	if !ok {
		return ""
	}
	return ns
}
