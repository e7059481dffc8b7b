// Package index implements the dual-index writer: every chunk is written
// to the vector store and the full-text store under the same chunk ID.
// There are no cross-store transactions; writes are independent per
// chunk, failures are reported per chunk, and the status operation is
// the reconciliation surface for the divergence that independence allows.
package index

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docfuse/docfuse/internal/chunk"
	"github.com/docfuse/docfuse/internal/config"
	"github.com/docfuse/docfuse/internal/embed"
	"github.com/docfuse/docfuse/internal/errors"
	"github.com/docfuse/docfuse/internal/store"
)

// writeWorkers bounds concurrent per-chunk store writes during ingest
// and import.
const writeWorkers = 4

// Writer owns both stores and serializes every mutating operation.
type Writer struct {
	cfg      config.Config
	embedder embed.Embedder
	chunker  *chunk.Chunker
	lock     *OpLock
	retry    embed.RetryConfig

	mu      sync.Mutex
	vectors store.VectorStore
	texts   store.TextStore
}

// IngestSummary reports what a batch write did. Failed chunks include
// chunks that landed in only one store; their IDs also appear in the
// one-store-only lists so operators can reconcile or re-ingest.
type IngestSummary struct {
	Documents  int
	Chunks     int
	Succeeded  int
	Failed     int
	FailedIDs  []string
	VectorOnly []string
	TextOnly   []string
	Elapsed    time.Duration
}

// Status is the reconciliation view across both stores.
type Status struct {
	VectorCount int
	TextCount   int
	VectorOnly  []string
	TextOnly    []string
	InSync      bool
	Provider    string
	Model       string
	Dimension   int
	TextBackend string
}

// NewWriter opens both stores and the writer lock.
func NewWriter(cfg config.Config, embedder embed.Embedder) (*Writer, error) {
	chunker, err := chunk.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	lock, err := NewOpLock(cfg.LockPath())
	if err != nil {
		return nil, err
	}
	vectors, err := store.NewVectorStore(cfg)
	if err != nil {
		return nil, err
	}
	texts, err := store.NewTextStore(cfg)
	if err != nil {
		_ = vectors.Close()
		return nil, err
	}

	return &Writer{
		cfg:      cfg,
		embedder: embedder,
		chunker:  chunker,
		lock:     lock,
		retry:    embed.DefaultRetryConfig(),
		vectors:  vectors,
		texts:    texts,
	}, nil
}

// Stores exposes the store handles for the read path.
func (w *Writer) Stores() (store.VectorStore, store.TextStore) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.vectors, w.texts
}

// acquire takes both the cross-process lock and the in-process mutex.
func (w *Writer) acquire() (func(), error) {
	release, err := w.lock.Acquire()
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	return func() {
		w.mu.Unlock()
		release()
	}, nil
}

// Ingest chunks, embeds, and writes documents into both stores.
//
// Embedding runs in batches with retry; a batch that keeps failing marks
// its chunks failed and ingest moves on. A fatal embedding error
// (dimension mismatch) aborts the run, because every subsequent vector
// would be wrong the same way. Store writes are per chunk and
// independent; a chunk that lands in only one store is reported, never
// rolled back.
func (w *Writer) Ingest(ctx context.Context, docs []chunk.Document) (*IngestSummary, error) {
	release, err := w.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	summary := &IngestSummary{Documents: len(docs)}

	var chunks []chunk.Chunk
	for _, doc := range docs {
		chunks = append(chunks, w.chunker.Split(doc)...)
	}
	summary.Chunks = len(chunks)
	if len(chunks) == 0 {
		summary.Elapsed = time.Since(start)
		return summary, nil
	}

	batchSize := w.cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = embed.DefaultBatchSize
	}

	var resMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(writeWorkers)

	for begin := 0; begin < len(chunks); begin += batchSize {
		end := begin + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[begin:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		var vecs [][]float32
		embedErr := embed.WithRetry(ctx, w.retry, func() error {
			var err error
			vecs, err = w.embedder.EmbedBatch(ctx, texts)
			return err
		})
		if embedErr != nil {
			if errors.IsFatal(embedErr) || ctx.Err() != nil {
				_ = g.Wait()
				summary.Elapsed = time.Since(start)
				return summary, embedErr
			}
			slog.Warn("embedding batch failed, skipping chunks",
				slog.Int("chunks", len(batch)),
				slog.String("error", embedErr.Error()))
			resMu.Lock()
			for _, c := range batch {
				summary.Failed++
				summary.FailedIDs = append(summary.FailedIDs, c.ID)
			}
			resMu.Unlock()
			continue
		}

		for i := range batch {
			c := batch[i]
			c.Embedding = vecs[i]
			g.Go(func() error {
				textOK, vecOK := w.writeChunk(gctx, c)
				resMu.Lock()
				defer resMu.Unlock()
				switch {
				case textOK && vecOK:
					summary.Succeeded++
				case vecOK:
					summary.Failed++
					summary.FailedIDs = append(summary.FailedIDs, c.ID)
					summary.VectorOnly = append(summary.VectorOnly, c.ID)
				case textOK:
					summary.Failed++
					summary.FailedIDs = append(summary.FailedIDs, c.ID)
					summary.TextOnly = append(summary.TextOnly, c.ID)
				default:
					summary.Failed++
					summary.FailedIDs = append(summary.FailedIDs, c.ID)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		summary.Elapsed = time.Since(start)
		return summary, err
	}

	if err := w.vectors.Save(); err != nil {
		summary.Elapsed = time.Since(start)
		return summary, err
	}

	sort.Strings(summary.FailedIDs)
	sort.Strings(summary.VectorOnly)
	sort.Strings(summary.TextOnly)
	summary.Elapsed = time.Since(start)

	slog.Info("ingest complete",
		slog.Int("documents", summary.Documents),
		slog.Int("chunks", summary.Chunks),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Duration("elapsed", summary.Elapsed))

	return summary, nil
}

// writeChunk writes one chunk to both stores independently.
func (w *Writer) writeChunk(ctx context.Context, c chunk.Chunk) (textOK, vecOK bool) {
	if err := w.texts.Index(ctx, []chunk.Chunk{c}); err != nil {
		slog.Warn("text store write failed",
			slog.String("chunk_id", c.ID), slog.String("error", err.Error()))
	} else {
		textOK = true
	}

	if err := w.vectors.Upsert(ctx, []store.VectorEntry{{
		ID:         c.ID,
		Vector:     c.Embedding,
		SourceType: c.SourceType,
		DocPath:    c.DocPath,
	}}); err != nil {
		slog.Warn("vector store write failed",
			slog.String("chunk_id", c.ID), slog.String("error", err.Error()))
	} else {
		vecOK = true
	}
	return textOK, vecOK
}

// Reset drops and recreates both stores. The only supported way to
// change the embedding dimension, provider, or tokenizer.
func (w *Writer) Reset(ctx context.Context) error {
	release, err := w.acquire()
	if err != nil {
		return err
	}
	defer release()

	_ = w.vectors.Close()
	_ = w.texts.Close()

	for _, path := range []string{
		w.cfg.VectorPath(),
		w.cfg.VectorPath() + ".meta",
		w.cfg.TextIndexPath(),
		w.cfg.TextIndexPath() + "-wal",
		w.cfg.TextIndexPath() + "-shm",
	} {
		if err := os.RemoveAll(path); err != nil {
			return errors.StoreError("remove index data", err)
		}
	}

	vectors, err := store.NewVectorStore(w.cfg)
	if err != nil {
		return err
	}
	texts, err := store.NewTextStore(w.cfg)
	if err != nil {
		_ = vectors.Close()
		return err
	}
	w.vectors = vectors
	w.texts = texts

	slog.Info("index reset", slog.String("data_dir", w.cfg.DataDir))
	return nil
}

// Export writes a point-in-time snapshot joining vector store embeddings
// with text store payloads. Chunks present in only one store cannot be
// replayed and are skipped with a warning.
func (w *Writer) Export(ctx context.Context, out io.Writer) (*Snapshot, error) {
	release, err := w.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	ids, err := w.texts.AllIDs(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	records := make([]SnapshotRecord, 0, len(ids))
	for _, id := range ids {
		vec, ok := w.vectors.Vector(id)
		if !ok {
			slog.Warn("skipping text-only chunk in export", slog.String("chunk_id", id))
			continue
		}
		c, err := w.texts.Fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		records = append(records, SnapshotRecord{
			ChunkID:     c.ID,
			DocPath:     c.DocPath,
			SourceType:  c.SourceType,
			Title:       c.Title,
			ChunkIndex:  c.Index,
			StartOffset: c.Start,
			EndOffset:   c.End,
			Text:        c.Text,
			Embedding:   vec,
		})
	}

	snap := newSnapshot(w.cfg.Embedding.Dimension, records)
	if err := snap.WriteTo(out); err != nil {
		return nil, err
	}

	slog.Info("snapshot exported",
		slog.String("snapshot_id", snap.SnapshotID),
		slog.Int("records", snap.Count))
	return snap, nil
}

// Import replays a snapshot into both stores. The snapshot is fully
// validated first; a rejected snapshot leaves the index untouched. The
// embedding provider is never called: stored vectors are replayed
// verbatim.
func (w *Writer) Import(ctx context.Context, in io.Reader) (*IngestSummary, error) {
	release, err := w.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	snap, err := ReadSnapshot(in, w.cfg.Embedding.Dimension)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	summary := &IngestSummary{Chunks: len(snap.Records)}

	var resMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(writeWorkers)

	for i := range snap.Records {
		rec := snap.Records[i]
		g.Go(func() error {
			c := chunk.Chunk{
				ID:         rec.ChunkID,
				DocPath:    rec.DocPath,
				SourceType: rec.SourceType,
				Title:      rec.Title,
				Index:      rec.ChunkIndex,
				Start:      rec.StartOffset,
				End:        rec.EndOffset,
				Text:       rec.Text,
				Embedding:  rec.Embedding,
			}
			textOK, vecOK := w.writeChunk(gctx, c)
			resMu.Lock()
			defer resMu.Unlock()
			switch {
			case textOK && vecOK:
				summary.Succeeded++
			case vecOK:
				summary.Failed++
				summary.FailedIDs = append(summary.FailedIDs, c.ID)
				summary.VectorOnly = append(summary.VectorOnly, c.ID)
			case textOK:
				summary.Failed++
				summary.FailedIDs = append(summary.FailedIDs, c.ID)
				summary.TextOnly = append(summary.TextOnly, c.ID)
			default:
				summary.Failed++
				summary.FailedIDs = append(summary.FailedIDs, c.ID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	if err := w.vectors.Save(); err != nil {
		return summary, err
	}

	sort.Strings(summary.FailedIDs)
	summary.Elapsed = time.Since(start)

	slog.Info("snapshot imported",
		slog.String("snapshot_id", snap.SnapshotID),
		slog.Int("records", summary.Chunks),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed))
	return summary, nil
}

// Status reconciles the two stores: counts, and the chunk IDs present
// in exactly one of them.
func (w *Writer) Status(ctx context.Context) (*Status, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	textIDs, err := w.texts.AllIDs(ctx)
	if err != nil {
		return nil, err
	}
	textSet := make(map[string]bool, len(textIDs))
	for _, id := range textIDs {
		textSet[id] = true
	}

	vectorIDs := w.vectors.AllIDs()
	vectorSet := make(map[string]bool, len(vectorIDs))
	for _, id := range vectorIDs {
		vectorSet[id] = true
	}

	st := &Status{
		VectorCount: len(vectorIDs),
		TextCount:   len(textIDs),
		Provider:    w.cfg.Embedding.Provider,
		Model:       w.cfg.Embedding.Model,
		Dimension:   w.cfg.Embedding.Dimension,
		TextBackend: w.cfg.TextIndex.Backend,
	}
	for _, id := range vectorIDs {
		if !textSet[id] {
			st.VectorOnly = append(st.VectorOnly, id)
		}
	}
	for _, id := range textIDs {
		if !vectorSet[id] {
			st.TextOnly = append(st.TextOnly, id)
		}
	}
	sort.Strings(st.VectorOnly)
	sort.Strings(st.TextOnly)
	st.InSync = len(st.VectorOnly) == 0 && len(st.TextOnly) == 0

	return st, nil
}

// Close persists and closes both stores.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.vectors.Save(); err != nil {
		slog.Warn("vector store save on close failed", slog.String("error", err.Error()))
	}
	vErr := w.vectors.Close()
	tErr := w.texts.Close()
	if vErr != nil {
		return vErr
	}
	return tErr
}
