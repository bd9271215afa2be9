// Package docset turns document sources (files, directories, URLs) into
// chunks for a document store.
package docset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/groundcheck/internal/model"
)

// Parser turns one source body into chunks
type Parser interface {
	// Name returns the parser name
	Name() string

	// CanHandle checks if this parser understands the source
	CanHandle(source string, contentType string) bool

	// Parse splits body into chunks attributed to document
	Parse(document string, body []byte) ([]model.DocumentChunk, error)
}

// Registry picks a parser per source
type Registry struct {
	parsers []Parser
	generic Parser
}

// NewRegistry creates a registry with the built-in parsers. Chunks longer
// than maxChunk bytes are split at sentence boundaries.
func NewRegistry(maxChunk int) *Registry {
	r := &Registry{}
	r.Register(NewJSONParser())
	r.Register(NewYAMLParser())
	r.Register(NewWikipediaParser(maxChunk))
	r.Register(NewHTMLParser(maxChunk))
	r.generic = NewTextParser(maxChunk)
	return r
}

// Register adds a parser ahead of the fallback
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Find returns the first parser that handles the source, or the text parser
func (r *Registry) Find(source string, contentType string) Parser {
	for _, p := range r.parsers {
		if p.CanHandle(source, contentType) {
			return p
		}
	}
	return r.generic
}

// ext returns the lowercased extension of a path or URL path
func ext(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	return strings.ToLower(filepath.Ext(source))
}

// mediaType strips parameters from a Content-Type value
func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func chunkID(document string, n int) string {
	return fmt.Sprintf("%s#%d", document, n)
}
