package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docfuse/docfuse/internal/chunk"
	"github.com/docfuse/docfuse/internal/embed"
	"github.com/docfuse/docfuse/internal/errors"
	"github.com/docfuse/docfuse/internal/store"
)

const (
	// DefaultTopK is used when the request leaves the result size unset.
	DefaultTopK = 10

	// candidateDepth is how many candidates each engine contributes to
	// fusion. Internal tuning, never part of the request surface.
	candidateDepth = 30

	// snippetLength bounds the snippet attached to each result, in runes.
	snippetLength = 200
)

// Request is a hybrid search request. TopK zero means unset and falls
// back to DefaultTopK; SourceType and PathPrefix restrict both engines.
type Request struct {
	Query      string
	TopK       int
	SourceType string
	PathPrefix string
}

// Result is one fused search hit, enriched with chunk metadata.
type Result struct {
	ChunkID    string
	DocPath    string
	SourceType string
	Title      string
	Snippet    string
	Score      float64
	TextRank   int
	VecRank    int
}

// Engine runs hybrid queries against both stores.
type Engine struct {
	embedder   embed.Embedder
	vectors    store.VectorStore
	texts      store.TextStore
	legTimeout time.Duration
}

// NewEngine wires the query path. legTimeout bounds each engine leg; an
// expired leg degrades to an empty candidate list.
func NewEngine(embedder embed.Embedder, vectors store.VectorStore, texts store.TextStore, legTimeout time.Duration) *Engine {
	if legTimeout <= 0 {
		legTimeout = 5 * time.Second
	}
	return &Engine{
		embedder:   embedder,
		vectors:    vectors,
		texts:      texts,
		legTimeout: legTimeout,
	}
}

// Search validates the request, embeds the query, runs both engine legs
// concurrently, fuses their rankings, and returns the top results.
//
// A failed or timed-out leg degrades that leg to an empty list; a failed
// query embedding fails the whole query, since the vector leg cannot run
// and silently returning keyword-only results would misrepresent them as
// hybrid. Both legs empty is a valid empty result.
func (e *Engine) Search(ctx context.Context, req Request) ([]Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	if req.TopK < 0 {
		return nil, errors.New(errors.ErrCodeInvalidTopK, "top_k must not be negative", nil)
	}
	topK := req.TopK
	if topK == 0 {
		topK = DefaultTopK
	}

	queryVec, err := e.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "cannot embed query", err)
	}

	filter := store.Filter{SourceType: req.SourceType, PathPrefix: req.PathPrefix}

	var textHits, vecHits []store.RankedHit
	var textErr, vecErr error
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		textHits, textErr = e.runLeg(gctx, "text", func(legCtx context.Context) ([]store.RankedHit, error) {
			return e.texts.Query(legCtx, req.Query, candidateDepth, filter)
		})
		return nil
	})
	g.Go(func() error {
		vecHits, vecErr = e.runLeg(gctx, "vector", func(legCtx context.Context) ([]store.RankedHit, error) {
			return e.vectors.Query(legCtx, queryVec, candidateDepth, filter)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// One degraded leg still yields single-engine fusion; both engines
	// failing means no engine answered and the query cannot be served.
	if textErr != nil && vecErr != nil {
		return nil, errors.StoreError("both search engines failed", textErr)
	}

	fused := Fuse(textHits, vecHits)
	if len(fused) > topK {
		fused = fused[:topK]
	}

	return e.enrich(ctx, fused), nil
}

// runLeg executes one engine leg under the leg timeout. Leg failures
// degrade to an empty candidate list so the other engine still answers;
// the error is kept so the caller can tell a degraded leg from an empty
// one.
func (e *Engine) runLeg(ctx context.Context, name string, fn func(context.Context) ([]store.RankedHit, error)) ([]store.RankedHit, error) {
	legCtx, cancel := context.WithTimeout(ctx, e.legTimeout)
	defer cancel()

	start := time.Now()
	hits, err := fn(legCtx)
	if err != nil {
		slog.Warn("search leg degraded",
			slog.String("leg", name),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, err
	}
	return hits, nil
}

// enrich attaches chunk metadata and snippets from the text store. A
// candidate the text store no longer has keeps its ID and score; status
// reporting surfaces such one-store-only chunks separately.
func (e *Engine) enrich(ctx context.Context, fused []*FusedResult) []Result {
	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		r := Result{
			ChunkID:  f.ChunkID,
			Score:    f.RRFScore,
			TextRank: f.TextRank,
			VecRank:  f.VecRank,
		}
		c, err := e.texts.Fetch(ctx, f.ChunkID)
		if err == nil {
			r.DocPath = c.DocPath
			r.SourceType = c.SourceType
			r.Title = c.Title
			r.Snippet = makeSnippet(c.Text)
		} else if !errors.IsNotFound(err) {
			slog.Warn("result enrichment failed",
				slog.String("chunk_id", f.ChunkID),
				slog.String("error", err.Error()))
		}
		results = append(results, r)
	}
	return results
}

// makeSnippet truncates text to snippetLength runes on a rune boundary.
func makeSnippet(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}

// Get returns a chunk by ID. The text store answers with the full
// payload; an entry known only to the vector store comes back as a bare
// identity so the caller can tell it exists but lost its text.
func (e *Engine) Get(ctx context.Context, id string) (*chunk.Chunk, error) {
	c, err := e.texts.Fetch(ctx, id)
	if err == nil {
		return c, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}
	if _, ok := e.vectors.Vector(id); ok {
		return &chunk.Chunk{ID: id}, nil
	}
	return nil, errors.NotFound(id)
}
