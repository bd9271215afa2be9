package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ppiankov/groundcheck/internal/cache"
	"github.com/ppiankov/groundcheck/internal/model"
)

// Cached memoizes entity extraction in a byte cache. Tokenization is cheap and
// passes straight through.
type Cached struct {
	inner Analyzer
	cache cache.Cache
	ttl   time.Duration
}

// NewCached wraps inner; ttl 0 uses the cache's default expiry
func NewCached(inner Analyzer, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

// Stats reports the underlying cache's lookups when it counts them
func (a *Cached) Stats() (cache.Stats, bool) {
	r, ok := a.cache.(cache.StatsReporter)
	if !ok {
		return cache.Stats{}, false
	}
	return r.Stats(), true
}

// Tokenize delegates to the wrapped analyzer
func (a *Cached) Tokenize(ctx context.Context, text string) ([]string, error) {
	return a.inner.Tokenize(ctx, text)
}

// ExtractEntities returns cached spans when present, otherwise asks the
// wrapped analyzer and stores the answer. Failures are never cached.
func (a *Cached) ExtractEntities(ctx context.Context, text string) ([]model.Entity, error) {
	key := cache.Key("entities", fmt.Sprintf("%T", a.inner), text)
	if data, ok := a.cache.Get(key); ok {
		var entities []model.Entity
		if err := json.Unmarshal(data, &entities); err == nil {
			return entities, nil
		}
		_ = a.cache.Delete(key)
	}

	entities, err := a.inner.ExtractEntities(ctx, text)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(entities); err == nil {
		_ = a.cache.Set(key, data, a.ttl)
	}
	return entities, nil
}
