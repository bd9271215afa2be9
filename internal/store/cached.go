package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/groundcheck/internal/model"
)

// Cached memoizes candidate queries and chunk lookups of another store.
// Errors are never cached.
type Cached struct {
	inner model.DocumentStore
	cache *gocache.Cache
}

// NewCached wraps inner; entries expire after ttl
func NewCached(inner model.DocumentStore, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// GetCandidates serves repeated queries from memory
func (c *Cached) GetCandidates(ctx context.Context, queryText string, queryEntities []string, limit int) ([]model.DocumentChunk, error) {
	key := "q\x00" + strconv.Itoa(limit) + "\x00" + queryText + "\x00" + strings.Join(queryEntities, "\x00")
	if v, ok := c.cache.Get(key); ok {
		return clone(v.([]model.DocumentChunk)), nil
	}
	chunks, err := c.inner.GetCandidates(ctx, queryText, queryEntities, limit)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, clone(chunks))
	return chunks, nil
}

// GetChunk serves repeated lookups from memory
func (c *Cached) GetChunk(ctx context.Context, id string) (model.DocumentChunk, error) {
	key := "c\x00" + id
	if v, ok := c.cache.Get(key); ok {
		return v.(model.DocumentChunk), nil
	}
	chunk, err := c.inner.GetChunk(ctx, id)
	if err != nil {
		return model.DocumentChunk{}, err
	}
	c.cache.SetDefault(key, chunk)
	return chunk, nil
}

// Ref reports the wrapped store
func (c *Cached) Ref() string {
	return model.StoreRef(c.inner)
}

// Flush drops every cached entry
func (c *Cached) Flush() {
	c.cache.Flush()
}

func clone(chunks []model.DocumentChunk) []model.DocumentChunk {
	out := make([]model.DocumentChunk, len(chunks))
	copy(out, chunks)
	return out
}
