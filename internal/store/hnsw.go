package store

import (
	"bufio"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"

	"github.com/docfuse/docfuse/internal/errors"
)

// HNSWStore implements VectorStore on the coder/hnsw pure Go graph.
// No CGO, single file on disk plus a gob metadata sidecar.
type HNSWStore struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]
	path  string
	dims  int

	// String chunk IDs map to internal uint64 graph keys. Overwrites and
	// deletes orphan the old key instead of removing the graph node; the
	// graph tolerates orphans, deleting nodes does not always.
	idMap   map[string]uint64
	keyMap  map[uint64]string
	nextKey uint64

	// Per-ID attributes for in-engine filtering and export.
	vectors map[string][]float32
	meta    map[string]vectorMeta

	closed bool
}

type vectorMeta struct {
	SourceType string
	DocPath    string
}

// hnswMetadata is the gob sidecar layout.
type hnswMetadata struct {
	IDMap   map[string]uint64
	NextKey uint64
	Dims    int
	Vectors map[string][]float32
	Meta    map[string]vectorMeta
}

// Verify interface implementation at compile time
var _ VectorStore = (*HNSWStore)(nil)

// queryOversample widens graph searches before filtering so filtered
// queries still fill their limit from nearby candidates.
const queryOversample = 4

// NewHNSWStore opens or creates a vector store at path with the given
// dimension. An empty path keeps the store purely in memory.
func NewHNSWStore(path string, dims int) (*HNSWStore, error) {
	s := &HNSWStore{
		graph:   newGraph(),
		path:    path,
		dims:    dims,
		idMap:   make(map[string]uint64),
		keyMap:  make(map[uint64]string),
		vectors: make(map[string][]float32),
		meta:    make(map[string]vectorMeta),
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := s.load(); err != nil {
				return nil, errors.New(errors.ErrCodeCorruptIndex,
					fmt.Sprintf("cannot load vector store %s", path), err)
			}
			if s.dims != dims {
				return nil, errors.DimensionError(dims, s.dims)
			}
		}
	}

	return s, nil
}

func newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return g
}

// Upsert inserts or overwrites entries. Existing IDs are lazily deleted
// before re-insertion, so re-ingesting unchanged content is idempotent.
func (s *HNSWStore) Upsert(ctx context.Context, entries []VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.StoreError("vector store is closed", nil)
	}

	for _, e := range entries {
		if len(e.Vector) != s.dims {
			return errors.DimensionError(s.dims, len(e.Vector))
		}
	}

	for _, e := range entries {
		if oldKey, exists := s.idMap[e.ID]; exists {
			delete(s.keyMap, oldKey)
			delete(s.idMap, e.ID)
		}

		key := s.nextKey
		s.nextKey++

		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)

		s.graph.Add(hnsw.MakeNode(key, vec))
		s.idMap[e.ID] = key
		s.keyMap[key] = e.ID
		s.vectors[e.ID] = vec
		s.meta[e.ID] = vectorMeta{SourceType: e.SourceType, DocPath: e.DocPath}
	}

	return nil
}

// Query returns up to limit nearest neighbors, filtered. The graph search
// oversamples so ranks reflect the filtered candidate set.
func (s *HNSWStore) Query(ctx context.Context, vector []float32, limit int, filter Filter) ([]RankedHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.StoreError("vector store is closed", nil)
	}
	if len(vector) != s.dims {
		return nil, errors.DimensionError(s.dims, len(vector))
	}
	if limit <= 0 || s.graph.Len() == 0 {
		return []RankedHit{}, nil
	}

	k := limit
	if !filter.IsZero() {
		k = limit * queryOversample
	}
	if graphLen := s.graph.Len(); k > graphLen {
		k = graphLen
	}

	nodes := s.graph.Search(vector, k)

	hits := make([]RankedHit, 0, limit)
	for _, node := range nodes {
		id, live := s.keyMap[node.Key]
		if !live {
			// Orphaned by a lazy delete.
			continue
		}
		m := s.meta[id]
		if !filter.Matches(m.SourceType, m.DocPath) {
			continue
		}

		distance := s.graph.Distance(vector, node.Value)
		hits = append(hits, RankedHit{
			ID: id,
			// Cosine distance 0..2 mapped to similarity 1..0.
			Score: 1.0 - float64(distance)/2.0,
		})
		if len(hits) == limit {
			break
		}
	}

	return hits, nil
}

// Vector returns the stored embedding for id.
func (s *HNSWStore) Vector(id string) ([]float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, false
	}
	vec, ok := s.vectors[id]
	return vec, ok
}

// Delete removes entries by ID using lazy deletion.
func (s *HNSWStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.StoreError("vector store is closed", nil)
	}

	for _, id := range ids {
		if key, exists := s.idMap[id]; exists {
			delete(s.keyMap, key)
			delete(s.idMap, id)
			delete(s.vectors, id)
			delete(s.meta, id)
		}
	}
	return nil
}

// AllIDs returns every stored chunk ID.
func (s *HNSWStore) AllIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil
	}
	ids := make([]string, 0, len(s.idMap))
	for id := range s.idMap {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of stored entries.
func (s *HNSWStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0
	}
	return len(s.idMap)
}

// Save persists the graph and metadata atomically (temp file + rename).
func (s *HNSWStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.StoreError("vector store is closed", nil)
	}
	if s.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.StoreError("create vector store directory", err)
	}

	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return errors.StoreError("create vector store file", err)
	}
	if err := s.graph.Export(file); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return errors.StoreError("export vector graph", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.StoreError("close vector store file", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return errors.StoreError("rename vector store file", err)
	}

	return s.saveMetadata()
}

func (s *HNSWStore) saveMetadata() error {
	metaPath := s.path + ".meta"
	tmp := metaPath + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return errors.StoreError("create vector metadata file", err)
	}

	meta := hnswMetadata{
		IDMap:   s.idMap,
		NextKey: s.nextKey,
		Dims:    s.dims,
		Vectors: s.vectors,
		Meta:    s.meta,
	}
	if err := gob.NewEncoder(file).Encode(meta); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return errors.StoreError("encode vector metadata", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.StoreError("close vector metadata file", err)
	}
	if err := os.Rename(tmp, metaPath); err != nil {
		_ = os.Remove(tmp)
		return errors.StoreError("rename vector metadata file", err)
	}
	return nil
}

func (s *HNSWStore) load() error {
	metaFile, err := os.Open(s.path + ".meta")
	if err != nil {
		return fmt.Errorf("open vector metadata: %w", err)
	}
	defer func() { _ = metaFile.Close() }()

	var meta hnswMetadata
	if err := gob.NewDecoder(metaFile).Decode(&meta); err != nil {
		return fmt.Errorf("decode vector metadata: %w", err)
	}

	s.idMap = meta.IDMap
	s.nextKey = meta.NextKey
	s.dims = meta.Dims
	s.vectors = meta.Vectors
	s.meta = meta.Meta
	s.keyMap = make(map[uint64]string, len(meta.IDMap))
	for id, key := range meta.IDMap {
		s.keyMap[key] = id
	}

	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open vector graph: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Import requires an io.ByteReader.
	if err := s.graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import vector graph: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = nil
	return nil
}
