package store

import (
	"context"
	"slices"
	"sync"

	"github.com/ppiankov/groundcheck/internal/model"
)

// Memory is an in-process document store. A term index narrows candidate
// queries to chunks sharing at least one word with the claim.
type Memory struct {
	name string

	mu     sync.RWMutex
	chunks []model.DocumentChunk
	byID   map[string]int
	terms  map[string][]int
}

// NewMemory creates a store holding the given chunks
func NewMemory(name string, chunks ...model.DocumentChunk) (*Memory, error) {
	m := &Memory{
		name:  name,
		byID:  make(map[string]int),
		terms: make(map[string][]int),
	}
	if err := m.Add(chunks...); err != nil {
		return nil, err
	}
	return m, nil
}

// Add validates and indexes chunks. A chunk with a known ID replaces the old one.
func (m *Memory) Add(chunks ...model.DocumentChunk) error {
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		if i, ok := m.byID[c.ID]; ok {
			m.chunks[i] = c
			continue
		}
		m.byID[c.ID] = len(m.chunks)
		m.chunks = append(m.chunks, c)
	}
	m.reindex()
	return nil
}

func (m *Memory) reindex() {
	m.terms = make(map[string][]int, len(m.terms))
	for i, c := range m.chunks {
		for _, t := range chunkTerms(c) {
			m.terms[t] = append(m.terms[t], i)
		}
	}
}

// Len returns the number of chunks held
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// All returns a copy of every chunk in insertion order
func (m *Memory) All() []model.DocumentChunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.DocumentChunk, len(m.chunks))
	copy(out, m.chunks)
	return out
}

// GetCandidates returns chunks sharing terms or entities with the query, best first
func (m *Memory) GetCandidates(ctx context.Context, queryText string, queryEntities []string, limit int) ([]model.DocumentChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := newQuery(queryText, queryEntities)

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[int]bool)
	var pool []int
	for _, t := range lookupTerms(q) {
		for _, i := range m.terms[t] {
			if !seen[i] {
				seen[i] = true
				pool = append(pool, i)
			}
		}
	}
	slices.Sort(pool)

	chunks := make([]model.DocumentChunk, len(pool))
	for k, i := range pool {
		chunks[k] = m.chunks[i]
	}
	return rank(q, chunks, limit), nil
}

// GetChunk resolves a chunk by ID
func (m *Memory) GetChunk(ctx context.Context, id string) (model.DocumentChunk, error) {
	if err := ctx.Err(); err != nil {
		return model.DocumentChunk{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return model.DocumentChunk{}, model.NotFound("store.get_chunk", id)
	}
	return m.chunks[i], nil
}

// Ref identifies the store in results
func (m *Memory) Ref() string {
	return "memory:" + m.name
}
