package index

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfuse/docfuse/internal/chunk"
	"github.com/docfuse/docfuse/internal/config"
	"github.com/docfuse/docfuse/internal/embed"
	"github.com/docfuse/docfuse/internal/errors"
	"github.com/docfuse/docfuse/internal/store"
)

const testDims = 32

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.Embedding.Provider = "static"
	cfg.Embedding.Dimension = testDims
	cfg.Embedding.BatchSize = 2
	cfg.Chunking.Size = 50
	cfg.Chunking.Overlap = 10
	return cfg
}

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	w, err := NewWriter(testConfig(t), embed.NewStaticEmbedder(testDims))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func testDocs() []chunk.Document {
	return []chunk.Document{
		chunk.NewDocument("/docs/fusion.md", "md",
			"# Fusion\n\nReciprocal rank fusion merges the rankings produced by both engines into one deterministic ordering."),
		chunk.NewDocument("/notes/todo.txt", "txt",
			"fix the flaky keyword index and buy milk"),
	}
}

func TestIngest_WritesBothStores(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	summary, err := w.Ingest(ctx, testDocs())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Documents)
	assert.Greater(t, summary.Chunks, 2) // first doc spans multiple chunks
	assert.Equal(t, summary.Chunks, summary.Succeeded)
	assert.Zero(t, summary.Failed)
	assert.Empty(t, summary.FailedIDs)

	st, err := w.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.InSync)
	assert.Equal(t, summary.Chunks, st.VectorCount)
	assert.Equal(t, summary.Chunks, st.TextCount)

	_, texts := w.Stores()
	hits, err := texts.Query(ctx, "deterministic ordering", 10, store.Filter{})
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestIngest_ReingestIsIdempotent(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	first, err := w.Ingest(ctx, testDocs())
	require.NoError(t, err)
	second, err := w.Ingest(ctx, testDocs())
	require.NoError(t, err)

	assert.Equal(t, first.Chunks, second.Chunks)
	assert.Equal(t, second.Chunks, second.Succeeded)

	st, err := w.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.InSync)
	assert.Equal(t, first.Chunks, st.VectorCount)
}

func TestIngest_NoDocuments(t *testing.T) {
	w := newTestWriter(t)

	summary, err := w.Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Chunks)
	assert.Zero(t, summary.Succeeded)
}

// flakyTextStore rejects writes for chunks whose text contains a marker.
type flakyTextStore struct {
	store.TextStore
}

func (f *flakyTextStore) Index(ctx context.Context, chunks []chunk.Chunk) error {
	for _, c := range chunks {
		if strings.Contains(c.Text, "poison") {
			return errors.New(errors.ErrCodeWriteRejected, "simulated write failure", nil)
		}
	}
	return f.TextStore.Index(ctx, chunks)
}

func TestIngest_PartialFailureIsReportedPerChunk(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chunking.Size = 1000 // one chunk per document
	cfg.Chunking.Overlap = 0

	w, err := NewWriter(cfg, embed.NewStaticEmbedder(testDims))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	w.texts = &flakyTextStore{TextStore: w.texts}

	ctx := context.Background()
	docs := []chunk.Document{
		chunk.NewDocument("/a.md", "md", "healthy document one"),
		chunk.NewDocument("/b.md", "md", "poison document"),
		chunk.NewDocument("/c.md", "md", "healthy document two"),
	}

	summary, err := w.Ingest(ctx, docs)
	require.NoError(t, err) // batch continues past per-chunk failures

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.FailedIDs, 1)
	assert.Equal(t, summary.FailedIDs, summary.VectorOnly)
	assert.Empty(t, summary.TextOnly)

	// Status surfaces exactly the divergent chunk.
	st, err := w.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.InSync)
	assert.Equal(t, summary.VectorOnly, st.VectorOnly)
	assert.Empty(t, st.TextOnly)
	assert.Equal(t, 3, st.VectorCount)
	assert.Equal(t, 2, st.TextCount)
}

// fatalEmbedder reports a dimension mismatch on every call.
type fatalEmbedder struct {
	embed.Embedder
}

func (f *fatalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.DimensionError(testDims, 8)
}

func TestIngest_FatalEmbeddingErrorAborts(t *testing.T) {
	cfg := testConfig(t)
	w, err := NewWriter(cfg, &fatalEmbedder{Embedder: embed.NewStaticEmbedder(testDims)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	_, err = w.Ingest(context.Background(), testDocs())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
}

// countingEmbedder counts provider calls; import must never make any.
type countingEmbedder struct {
	embed.Embedder
	calls int64
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	atomic.AddInt64(&c.calls, 1)
	return c.Embedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt64(&c.calls, 1)
	return c.Embedder.EmbedBatch(ctx, texts)
}

func TestExportResetImport_RoundTrip(t *testing.T) {
	cfg := testConfig(t)
	counting := &countingEmbedder{Embedder: embed.NewStaticEmbedder(testDims)}
	w, err := NewWriter(cfg, counting)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	ctx := context.Background()

	summary, err := w.Ingest(ctx, testDocs())
	require.NoError(t, err)
	require.Positive(t, summary.Succeeded)

	var buf bytes.Buffer
	snap, err := w.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, summary.Succeeded, snap.Count)
	assert.Equal(t, testDims, snap.EmbeddingDimension)

	// Records are sorted by chunk ID.
	for i := 1; i < len(snap.Records); i++ {
		assert.Less(t, snap.Records[i-1].ChunkID, snap.Records[i].ChunkID)
	}

	require.NoError(t, w.Reset(ctx))
	st, err := w.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.VectorCount)
	assert.Zero(t, st.TextCount)

	atomic.StoreInt64(&counting.calls, 0)
	imported, err := w.Import(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, snap.Count, imported.Succeeded)
	assert.Zero(t, imported.Failed)
	assert.Zero(t, atomic.LoadInt64(&counting.calls), "import must not call the embedding provider")

	st, err = w.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.InSync)
	assert.Equal(t, snap.Count, st.VectorCount)

	// Payloads survive the round trip.
	_, texts := w.Stores()
	got, err := texts.Fetch(ctx, snap.Records[0].ChunkID)
	require.NoError(t, err)
	assert.Equal(t, snap.Records[0].Text, got.Text)
}

func TestImport_RejectedSnapshotLeavesIndexUntouched(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	bad := newSnapshot(testDims+1, []SnapshotRecord{
		{ChunkID: "x", Text: "t", Embedding: make([]float32, testDims+1)},
	})
	var buf bytes.Buffer
	require.NoError(t, bad.WriteTo(&buf))

	_, err := w.Import(ctx, &buf)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))

	st, err := w.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.VectorCount)
	assert.Zero(t, st.TextCount)
}

func TestReset_DropsAllChunks(t *testing.T) {
	w := newTestWriter(t)
	ctx := context.Background()

	_, err := w.Ingest(ctx, testDocs())
	require.NoError(t, err)
	require.NoError(t, w.Reset(ctx))

	st, err := w.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.VectorCount)
	assert.Zero(t, st.TextCount)
	assert.True(t, st.InSync)

	// The writer stays usable after a reset.
	summary, err := w.Ingest(ctx, testDocs())
	require.NoError(t, err)
	assert.Equal(t, summary.Chunks, summary.Succeeded)
}

func TestOpLock_SecondHolderRejected(t *testing.T) {
	path := testConfig(t).LockPath()

	a, err := NewOpLock(path)
	require.NoError(t, err)
	b, err := NewOpLock(path)
	require.NoError(t, err)

	release, err := a.Acquire()
	require.NoError(t, err)
	defer release()

	_, err = b.Acquire()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMaintenanceBusy, errors.GetCode(err))
}
