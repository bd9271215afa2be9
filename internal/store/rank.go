// Package store provides DocumentStore implementations: an in-memory index,
// a SQLite-backed store and a caching decorator.
package store

import (
	"sort"
	"strings"

	"github.com/ppiankov/groundcheck/internal/analysis"
	"github.com/ppiankov/groundcheck/internal/model"
)

// query is a prepared candidate query
type query struct {
	terms    []string
	entities []string
}

func newQuery(text string, entities []string) query {
	q := query{terms: analysis.ContentTokens(analysis.Tokens(text))}
	for _, e := range entities {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			q.entities = append(q.entities, e)
		}
	}
	return q
}

func (q query) empty() bool {
	return len(q.terms) == 0 && len(q.entities) == 0
}

// relevance scores a chunk against the query in [0, 2]: the term hit rate
// plus the entity hit rate. Zero means the chunk shares nothing with the query.
func (q query) relevance(chunk model.DocumentChunk) float64 {
	var score float64
	if len(q.terms) > 0 {
		tokens := make(map[string]bool)
		for _, t := range analysis.Tokens(chunk.Text) {
			tokens[t] = true
		}
		hits := 0
		for _, t := range q.terms {
			if tokens[t] {
				hits++
			}
		}
		score += float64(hits) / float64(len(q.terms))
	}
	if len(q.entities) > 0 {
		lower := strings.ToLower(chunk.Text)
		hits := 0
		for _, e := range q.entities {
			if strings.Contains(lower, e) || annotated(chunk, e) {
				hits++
			}
		}
		score += float64(hits) / float64(len(q.entities))
	}
	return score
}

func annotated(chunk model.DocumentChunk, entity string) bool {
	for _, e := range chunk.Entities {
		if strings.EqualFold(e.Text, entity) {
			return true
		}
	}
	return false
}

type ranked struct {
	chunk model.DocumentChunk
	score float64
}

// rank orders chunks by relevance, dropping those with none, and keeps at
// most limit. Ties keep insertion order.
func rank(q query, chunks []model.DocumentChunk, limit int) []model.DocumentChunk {
	if q.empty() || limit <= 0 {
		return []model.DocumentChunk{}
	}
	var hits []ranked
	for _, c := range chunks {
		if s := q.relevance(c); s > 0 {
			hits = append(hits, ranked{chunk: c, score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]model.DocumentChunk, len(hits))
	for i, h := range hits {
		out[i] = h.chunk
	}
	return out
}
