package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/groundcheck/internal/analysis"
	"github.com/ppiankov/groundcheck/internal/cache"
	"github.com/ppiankov/groundcheck/internal/config"
	"github.com/ppiankov/groundcheck/internal/docset"
	"github.com/ppiankov/groundcheck/internal/fetch"
	"github.com/ppiankov/groundcheck/internal/llm"
	"github.com/ppiankov/groundcheck/internal/model"
	"github.com/ppiankov/groundcheck/internal/pipeline"
	"github.com/ppiankov/groundcheck/internal/store"
)

// newAnalyzer picks the LLM analyzer when a provider is configured and the
// pattern analyzer otherwise
func newAnalyzer(cfg *config.Config) (analysis.Analyzer, error) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, model.E(model.KindConfig, "llm.provider", err)
	}
	if provider == nil {
		return analysis.New(nil, nil), nil
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "  LLM:          %s\n", provider.Name())
	}
	return analysis.New(provider, cache.New(cfg.Cache)), nil
}

func newLoader(cfg *config.Config, analyzer analysis.Analyzer) *docset.Loader {
	return docset.NewLoader(
		docset.WithFetcher(fetch.NewFetcher(cfg.Fetch)),
		docset.WithAnalyzer(analyzer),
	)
}

func newProcessor(cfg *config.Config, analyzer analysis.Analyzer) (*pipeline.Processor, error) {
	return pipeline.NewProcessor(cfg.Config, pipeline.WithAnalyzer(analyzer))
}

// openStore builds the document store. With a database the listed sources are
// indexed into it first; without one they are loaded into memory.
func openStore(ctx context.Context, cfg *config.Config, analyzer analysis.Analyzer, db string, docs []string) (model.DocumentStore, func() error, error) {
	if db == "" {
		db = cfg.Store.DB
	}
	noop := func() error { return nil }
	closer := noop

	var chunks []model.DocumentChunk
	if len(docs) > 0 {
		if verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Loading %d document source(s)...\n", len(docs))
		}
		loaded, err := newLoader(cfg, analyzer).Load(ctx, docs...)
		if err != nil {
			return nil, noop, fmt.Errorf("load documents: %w", err)
		}
		chunks = loaded
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Loaded %d chunks\n", len(chunks))
		}
	}

	var s model.DocumentStore
	if db != "" {
		sq, err := store.NewSQLite(db)
		if err != nil {
			return nil, noop, err
		}
		closer = sq.Close
		if err := sq.Migrate(ctx); err != nil {
			_ = sq.Close()
			return nil, noop, err
		}
		if len(chunks) > 0 {
			if err := sq.Put(ctx, chunks...); err != nil {
				_ = sq.Close()
				return nil, noop, err
			}
		}
		if n, err := sq.Count(ctx); err == nil && n == 0 {
			_ = sq.Close()
			return nil, noop, model.Inputf("cli.store", "%s holds no chunks; index documents first or pass --docs", db)
		}
		s = sq
	} else {
		if len(chunks) == 0 {
			return nil, noop, model.Inputf("cli.store", "no document chunks: pass --docs or --db")
		}
		mem, err := store.NewMemory("docs", chunks...)
		if err != nil {
			return nil, noop, err
		}
		s = mem
	}

	if ttl := cfg.Store.CandidateCacheTTL; ttl > 0 {
		s = store.NewCached(s, ttl)
	}
	return s, closer, nil
}
