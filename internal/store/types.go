// Package store holds the two index engines behind the dual-index writer:
// an HNSW vector store and a full-text store (bleve or SQLite FTS5). Both
// engines address chunks by the same deterministic chunk ID, which is what
// makes rank fusion and cross-store reconciliation possible.
package store

import (
	"context"
	"strings"

	"github.com/docfuse/docfuse/internal/chunk"
)

// RankedHit is one engine's scored candidate. Scores are engine-native and
// never comparable across engines; only the rank order matters downstream.
type RankedHit struct {
	ID    string
	Score float64
}

// Filter restricts a query leg to matching chunks. Filters are applied
// inside each engine so that candidate ranks are ranks of the filtered
// set, not post-filtered remnants of an unfiltered ranking.
type Filter struct {
	// SourceType matches the chunk's source type exactly ("md", "txt", ...).
	SourceType string
	// PathPrefix matches document paths by prefix.
	PathPrefix string
}

// IsZero reports whether no filtering was requested.
func (f Filter) IsZero() bool {
	return f.SourceType == "" && f.PathPrefix == ""
}

// Matches applies the filter to chunk attributes.
func (f Filter) Matches(sourceType, docPath string) bool {
	if f.SourceType != "" && f.SourceType != sourceType {
		return false
	}
	if f.PathPrefix != "" && !strings.HasPrefix(docPath, f.PathPrefix) {
		return false
	}
	return true
}

// VectorEntry is what the vector store persists per chunk: the embedding
// plus the attributes needed for in-engine filtering and export.
type VectorEntry struct {
	ID         string
	Vector     []float32
	SourceType string
	DocPath    string
}

// VectorStore indexes embeddings and answers nearest-neighbor queries.
type VectorStore interface {
	// Upsert inserts or overwrites entries by ID.
	Upsert(ctx context.Context, entries []VectorEntry) error

	// Query returns up to limit nearest neighbors of vector, filtered.
	Query(ctx context.Context, vector []float32, limit int, filter Filter) ([]RankedHit, error)

	// Vector returns the stored embedding for an ID, for export.
	Vector(id string) ([]float32, bool)

	// Delete removes entries by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns every stored chunk ID, for reconciliation.
	AllIDs() []string

	// Count returns the number of stored entries.
	Count() int

	// Save persists the store to its path.
	Save() error

	// Close releases resources. The store rejects calls afterwards.
	Close() error
}

// TextStore indexes chunk text and metadata and answers keyword queries.
// It is the source of truth for chunk payloads on the read path.
type TextStore interface {
	// Index inserts or overwrites chunks by ID.
	Index(ctx context.Context, chunks []chunk.Chunk) error

	// Query returns up to limit keyword matches, filtered, best first.
	Query(ctx context.Context, query string, limit int, filter Filter) ([]RankedHit, error)

	// Fetch returns the stored chunk for an ID, or a not-found error.
	Fetch(ctx context.Context, id string) (*chunk.Chunk, error)

	// Delete removes chunks by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns every stored chunk ID, for reconciliation and export.
	AllIDs(ctx context.Context) ([]string, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Close releases resources. The store rejects calls afterwards.
	Close() error
}
