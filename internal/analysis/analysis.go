// Package analysis provides the language-analysis capability used by claim
// extraction and source alignment: tokenization and entity mentions.
package analysis

import (
	"context"
	"sort"

	"github.com/ppiankov/groundcheck/internal/cache"
	"github.com/ppiankov/groundcheck/internal/llm"
	"github.com/ppiankov/groundcheck/internal/model"
)

// Analyzer tokenizes text and finds entity mentions.
// Entity spans are byte offsets into the text passed in.
type Analyzer interface {
	Tokenize(ctx context.Context, text string) ([]string, error)
	ExtractEntities(ctx context.Context, text string) ([]model.Entity, error)
}

// New picks the analyzer once, at construction: LLM-backed when a provider is
// configured, pattern heuristics otherwise. A non-nil cache memoizes results.
func New(provider llm.Provider, c cache.Cache) Analyzer {
	var a Analyzer = NewPattern()
	if provider != nil {
		a = NewLLM(provider)
	}
	if c != nil {
		a = NewCached(a, c, 0)
	}
	return a
}

// resolveOverlaps keeps the first-listed entity of any overlapping group and
// returns the survivors in text order
func resolveOverlaps(candidates []model.Entity) []model.Entity {
	var kept []model.Entity
	for _, cand := range candidates {
		overlaps := false
		for _, k := range kept {
			if cand.Span.Overlaps(k.Span) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, cand)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Span.Start < kept[j].Span.Start })
	return kept
}
