package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/docfuse/docfuse/internal/chunk"
	"github.com/docfuse/docfuse/internal/errors"
)

// BleveTextStore implements TextStore on bleve. All chunk fields are
// stored, making this engine the payload source of truth on the read path.
type BleveTextStore struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// Verify interface implementation at compile time
var _ TextStore = (*BleveTextStore)(nil)

// NewBleveTextStore opens or creates a bleve index at path with the given
// tokenizer ("standard" or "cjk"). An empty path builds an in-memory index.
func NewBleveTextStore(path, tokenizer string) (*BleveTextStore, error) {
	indexMapping, err := buildIndexMapping(tokenizer)
	if err != nil {
		return nil, errors.StoreError("build text index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, errors.StoreError("create text index directory", mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, errors.New(errors.ErrCodeCorruptIndex,
			fmt.Sprintf("cannot open text index %s", path), err)
	}

	return &BleveTextStore{index: idx, path: path}, nil
}

// buildIndexMapping maps chunk fields: text and title analyzed with the
// chosen analyzer, source_type and doc_path as exact keyword terms,
// offsets stored only.
func buildIndexMapping(tokenizer string) (mapping.IndexMapping, error) {
	analyzer := standard.Name
	if tokenizer == "cjk" {
		analyzer = cjk.AnalyzerName
	}

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = analyzer
	textField.Store = true

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = analyzer
	titleField.Store = true

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name
	keywordField.Store = true

	numField := bleve.NewNumericFieldMapping()
	numField.Store = true
	numField.Index = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("text", textField)
	doc.AddFieldMappingsAt("title", titleField)
	doc.AddFieldMappingsAt("source_type", keywordField)
	doc.AddFieldMappingsAt("doc_path", keywordField)
	doc.AddFieldMappingsAt("chunk_index", numField)
	doc.AddFieldMappingsAt("start_offset", numField)
	doc.AddFieldMappingsAt("end_offset", numField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	m.DefaultAnalyzer = analyzer
	return m, nil
}

func bleveFields(c chunk.Chunk) map[string]interface{} {
	return map[string]interface{}{
		"text":         c.Text,
		"title":        c.Title,
		"source_type":  c.SourceType,
		"doc_path":     c.DocPath,
		"chunk_index":  c.Index,
		"start_offset": c.Start,
		"end_offset":   c.End,
	}
}

// Index inserts or overwrites chunks in one batch.
func (b *BleveTextStore) Index(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.StoreError("text index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, c := range chunks {
		if err := batch.Index(c.ID, bleveFields(c)); err != nil {
			return errors.New(errors.ErrCodeWriteRejected,
				fmt.Sprintf("index chunk %s", c.ID), err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return errors.New(errors.ErrCodeWriteRejected, "execute text index batch", err)
	}
	return nil
}

// Query returns up to limit keyword matches. Filters become additional
// conjuncts so scoring happens over the filtered candidate set.
func (b *BleveTextStore) Query(ctx context.Context, queryStr string, limit int, filter Filter) ([]RankedHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errors.StoreError("text index is closed", nil)
	}
	if strings.TrimSpace(queryStr) == "" || limit <= 0 {
		return []RankedHit{}, nil
	}

	match := bleve.NewMatchQuery(queryStr)
	match.SetField("text")

	finalQuery := bleve.NewConjunctionQuery(match)
	if filter.SourceType != "" {
		tq := bleve.NewTermQuery(filter.SourceType)
		tq.SetField("source_type")
		finalQuery.AddQuery(tq)
	}
	if filter.PathPrefix != "" {
		pq := bleve.NewPrefixQuery(filter.PathPrefix)
		pq.SetField("doc_path")
		finalQuery.AddQuery(pq)
	}

	req := bleve.NewSearchRequest(finalQuery)
	req.Size = limit

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.StoreError("text search failed", err)
	}

	hits := make([]RankedHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, RankedHit{ID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

// Fetch returns the stored chunk for an ID.
func (b *BleveTextStore) Fetch(ctx context.Context, id string) (*chunk.Chunk, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errors.StoreError("text index is closed", nil)
	}

	q := bleve.NewDocIDQuery([]string{id})
	req := bleve.NewSearchRequest(q)
	req.Size = 1
	req.Fields = []string{"*"}

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.StoreError("fetch chunk failed", err)
	}
	if len(result.Hits) == 0 {
		return nil, errors.NotFound(id)
	}

	return chunkFromFields(id, result.Hits[0].Fields), nil
}

func chunkFromFields(id string, fields map[string]interface{}) *chunk.Chunk {
	c := &chunk.Chunk{ID: id}
	if v, ok := fields["text"].(string); ok {
		c.Text = v
	}
	if v, ok := fields["title"].(string); ok {
		c.Title = v
	}
	if v, ok := fields["source_type"].(string); ok {
		c.SourceType = v
	}
	if v, ok := fields["doc_path"].(string); ok {
		c.DocPath = v
	}
	// Stored numerics come back as float64.
	if v, ok := fields["chunk_index"].(float64); ok {
		c.Index = int(v)
	}
	if v, ok := fields["start_offset"].(float64); ok {
		c.Start = int(v)
	}
	if v, ok := fields["end_offset"].(float64); ok {
		c.End = int(v)
	}
	return c
}

// Delete removes chunks in one batch.
func (b *BleveTextStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.StoreError("text index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return errors.New(errors.ErrCodeWriteRejected, "delete from text index", err)
	}
	return nil
}

// AllIDs returns every indexed chunk ID.
func (b *BleveTextStore) AllIDs(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, errors.StoreError("text index is closed", nil)
	}

	count, err := b.index.DocCount()
	if err != nil {
		return nil, errors.StoreError("count text index", err)
	}
	if count == 0 {
		return []string{}, nil
	}

	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(count)

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, errors.StoreError("list text index IDs", err)
	}

	ids := make([]string, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Count returns the number of indexed chunks.
func (b *BleveTextStore) Count(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, errors.StoreError("text index is closed", nil)
	}

	count, err := b.index.DocCount()
	if err != nil {
		return 0, errors.StoreError("count text index", err)
	}
	return int(count), nil
}

// Close closes the index. Idempotent.
func (b *BleveTextStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}
