// Package embed generates vector embeddings for chunk text.
//
// Providers implement the Embedder interface; wrappers add caching, rate
// limiting, and retry on top of any provider. Every provider validates the
// length of the vectors it returns against its configured dimension, so a
// dimension mismatch surfaces as a fatal error before anything is written.
package embed

import (
	"context"
	"math"

	"github.com/docfuse/docfuse/internal/errors"
)

// Common embedding constants
const (
	// MinBatchSize is the minimum allowed batch size
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size (prevents memory exhaustion)
	MaxBatchSize = 256

	// DefaultBatchSize is the default batch size for embedding requests
	DefaultBatchSize = 20

	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3
)

// Embedder generates vector embeddings for text
type Embedder interface {
	// Embed generates embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	// Close releases resources
	Close() error
}

// verifyDimension checks a returned vector against the expected dimension.
// A mismatch is fatal and non-retryable: it means the provider or model
// changed underneath an existing index.
func verifyDimension(vec []float32, want int) error {
	if len(vec) != want {
		return errors.DimensionError(want, len(vec))
	}
	return nil
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
