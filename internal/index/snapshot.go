package index

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/docfuse/docfuse/internal/errors"
)

// SnapshotVersion is the current snapshot format version.
const SnapshotVersion = 1

// Snapshot is the bulk export format: a header binding the embedding
// dimension, followed by records sorted by chunk ID. Importing replays
// stored vectors verbatim; no embedding provider is involved.
type Snapshot struct {
	Version            int              `json:"version"`
	SnapshotID         string           `json:"snapshot_id"`
	CreatedAt          time.Time        `json:"created_at"`
	EmbeddingDimension int              `json:"embedding_dimension"`
	Count              int              `json:"count"`
	Records            []SnapshotRecord `json:"records"`
}

// SnapshotRecord carries everything both stores hold for one chunk.
type SnapshotRecord struct {
	ChunkID     string    `json:"chunk_id"`
	DocPath     string    `json:"doc_path"`
	SourceType  string    `json:"source_type"`
	Title       string    `json:"title"`
	ChunkIndex  int       `json:"chunk_index"`
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
	Text        string    `json:"text"`
	Embedding   []float32 `json:"embedding"`
}

// newSnapshot builds a snapshot header around the given records.
func newSnapshot(dimension int, records []SnapshotRecord) *Snapshot {
	return &Snapshot{
		Version:            SnapshotVersion,
		SnapshotID:         uuid.NewString(),
		CreatedAt:          time.Now().UTC(),
		EmbeddingDimension: dimension,
		Count:              len(records),
		Records:            records,
	}
}

// WriteTo serializes the snapshot as indented JSON.
func (s *Snapshot) WriteTo(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return errors.New(errors.ErrCodeInternal, "encode snapshot", err)
	}
	return nil
}

// ReadSnapshot parses and fully validates a snapshot against the
// expected embedding dimension. Validation happens before any store
// write: a snapshot that fails here leaves the index untouched.
func ReadSnapshot(r io.Reader, wantDimension int) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidSnapshot, "cannot parse snapshot", err)
	}

	if s.Version != SnapshotVersion {
		return nil, errors.New(errors.ErrCodeInvalidSnapshot,
			fmt.Sprintf("unsupported snapshot version %d (expected %d)", s.Version, SnapshotVersion), nil)
	}
	if s.EmbeddingDimension != wantDimension {
		return nil, errors.DimensionError(wantDimension, s.EmbeddingDimension)
	}
	if s.Count != len(s.Records) {
		return nil, errors.New(errors.ErrCodeInvalidSnapshot,
			fmt.Sprintf("record count mismatch: header says %d, found %d", s.Count, len(s.Records)), nil)
	}

	seen := make(map[string]bool, len(s.Records))
	for i, rec := range s.Records {
		if rec.ChunkID == "" {
			return nil, errors.New(errors.ErrCodeInvalidSnapshot,
				fmt.Sprintf("record %d has an empty chunk_id", i), nil)
		}
		if seen[rec.ChunkID] {
			return nil, errors.New(errors.ErrCodeInvalidSnapshot,
				fmt.Sprintf("duplicate chunk_id %s", rec.ChunkID), nil)
		}
		seen[rec.ChunkID] = true
		if len(rec.Embedding) != wantDimension {
			return nil, errors.DimensionError(wantDimension, len(rec.Embedding))
		}
	}

	return &s, nil
}
