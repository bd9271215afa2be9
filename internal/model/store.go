package model

import "context"

// DocumentStore supplies candidate chunks for a claim.
// Implementations are read-only for the duration of a verify call.
type DocumentStore interface {
	// GetCandidates returns at most limit chunks, best candidates first
	GetCandidates(ctx context.Context, queryText string, queryEntities []string, limit int) ([]DocumentChunk, error)

	// GetChunk resolves a chunk by ID; a miss returns an error satisfying IsNotFound
	GetChunk(ctx context.Context, id string) (DocumentChunk, error)
}

// Referencer is implemented by stores that can describe themselves in results
type Referencer interface {
	Ref() string
}

// StoreRef returns a printable reference for the store
func StoreRef(s DocumentStore) string {
	if r, ok := s.(Referencer); ok {
		return r.Ref()
	}
	return ""
}
