package embed

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder throttles provider requests to a configured rate.
// One token covers one request regardless of batch size, matching how
// hosted providers meter embedding calls.
type RateLimitedEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter
}

// Verify interface implementation at compile time
var _ Embedder = (*RateLimitedEmbedder)(nil)

// NewRateLimitedEmbedder wraps inner, allowing rps requests per second
// with a burst of one.
func NewRateLimitedEmbedder(inner Embedder, rps float64) *RateLimitedEmbedder {
	return &RateLimitedEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Embed waits for a token, then delegates.
func (e *RateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.inner.Embed(ctx, text)
}

// EmbedBatch waits for a token, then delegates.
func (e *RateLimitedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return e.inner.EmbedBatch(ctx, texts)
}

// Dimensions returns the embedding dimension.
func (e *RateLimitedEmbedder) Dimensions() int { return e.inner.Dimensions() }

// ModelName returns the model identifier.
func (e *RateLimitedEmbedder) ModelName() string { return e.inner.ModelName() }

// Available checks the underlying embedder.
func (e *RateLimitedEmbedder) Available(ctx context.Context) bool { return e.inner.Available(ctx) }

// Close closes the underlying embedder.
func (e *RateLimitedEmbedder) Close() error { return e.inner.Close() }
