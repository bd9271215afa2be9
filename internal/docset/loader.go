package docset

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/groundcheck/internal/analysis"
	"github.com/ppiankov/groundcheck/internal/fetch"
	"github.com/ppiankov/groundcheck/internal/model"
)

// DefaultMaxChunk is the chunk size used when none is configured
const DefaultMaxChunk = 1200

// Loader reads document sources into chunks
type Loader struct {
	registry    *Registry
	fetcher     *fetch.Fetcher
	analyzer    analysis.Analyzer
	concurrency int
}

// Option configures a Loader
type Option func(*Loader)

// WithFetcher enables http(s) sources
func WithFetcher(f *fetch.Fetcher) Option {
	return func(l *Loader) { l.fetcher = f }
}

// WithAnalyzer annotates chunks that carry no entities
func WithAnalyzer(a analysis.Analyzer) Option {
	return func(l *Loader) { l.analyzer = a }
}

// WithRegistry replaces the built-in parsers
func WithRegistry(r *Registry) Option {
	return func(l *Loader) { l.registry = r }
}

// WithConcurrency bounds how many sources are read at once
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// NewLoader creates a loader with the built-in parsers
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		registry:    NewRegistry(DefaultMaxChunk),
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads every source and returns their chunks in source order. A
// source is a file, a directory (walked recursively) or an http(s) URL.
// Chunk IDs must be unique across the set.
func (l *Loader) Load(ctx context.Context, sources ...string) ([]model.DocumentChunk, error) {
	var expanded []string
	for _, src := range sources {
		files, err := l.expand(src)
		if err != nil {
			return nil, err
		}
		expanded = append(expanded, files...)
	}

	results := make([][]model.DocumentChunk, len(expanded))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, src := range expanded {
		g.Go(func() error {
			chunks, err := l.loadOne(gctx, src)
			if err != nil {
				return err
			}
			results[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	var out []model.DocumentChunk
	for i, chunks := range results {
		for _, c := range chunks {
			if prev, dup := seen[c.ID]; dup {
				return nil, model.Inputf("docset.load", "duplicate chunk id %q in %s and %s", c.ID, prev, expanded[i])
			}
			seen[c.ID] = expanded[i]
			out = append(out, c)
		}
	}
	zap.L().Info("docset: loaded",
		zap.Int("sources", len(expanded)),
		zap.Int("chunks", len(out)),
	)
	return out, nil
}

func isURL(src string) bool {
	u, err := url.Parse(src)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// expand lists the files of a directory source, sorted; other sources pass through
func (l *Loader) expand(src string) ([]string, error) {
	if isURL(src) {
		return []string{src}, nil
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, model.Inputf("docset.load", "%s: %v", src, err)
	}
	if !info.IsDir() {
		return []string{src}, nil
	}

	var files []string
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != src && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasPrefix(d.Name(), ".") && supported(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, model.Inputf("docset.load", "walk %s: %v", src, err)
	}
	sort.Strings(files)
	return files, nil
}

// supported limits directory walks to document-like files
func supported(path string) bool {
	switch ext(path) {
	case ".txt", ".md", ".markdown", ".text", ".html", ".htm", ".xhtml", ".json", ".jsonl", ".ndjson", ".yaml", ".yml":
		return true
	}
	return false
}

func (l *Loader) loadOne(ctx context.Context, src string) ([]model.DocumentChunk, error) {
	var (
		body        []byte
		contentType string
		document    = src
	)
	if isURL(src) {
		if l.fetcher == nil {
			return nil, model.Inputf("docset.load", "%s: remote sources are disabled", src)
		}
		res, err := l.fetcher.FetchWithRetry(ctx, src)
		if err != nil {
			return nil, err
		}
		body, contentType, document = res.Body, res.ContentType, res.FinalURL
	} else {
		b, err := os.ReadFile(src)
		if err != nil {
			return nil, model.Inputf("docset.load", "read %s: %v", src, err)
		}
		body = b
		document = filepath.ToSlash(src)
	}

	parser := l.registry.Find(src, contentType)
	chunks, err := parser.Parse(document, body)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("docset: parsed source",
		zap.String("source", src),
		zap.String("parser", parser.Name()),
		zap.Int("chunks", len(chunks)),
	)

	if l.analyzer != nil {
		for i := range chunks {
			if len(chunks[i].Entities) > 0 {
				continue
			}
			entities, err := l.analyzer.ExtractEntities(ctx, chunks[i].Text)
			if err != nil {
				return nil, model.Unavailable("docset.annotate", err)
			}
			chunks[i].Entities = entities
		}
	}
	return chunks, nil
}
