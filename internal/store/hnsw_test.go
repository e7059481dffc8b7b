package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfuse/docfuse/internal/errors"
)

func unitVec(dims, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1
	return v
}

func TestHNSWStore_UpsertAndQuery(t *testing.T) {
	s, err := NewHNSWStore("", 4)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	entries := []VectorEntry{
		{ID: "a", Vector: unitVec(4, 0), SourceType: "md", DocPath: "/docs/a.md"},
		{ID: "b", Vector: unitVec(4, 1), SourceType: "txt", DocPath: "/docs/b.txt"},
		{ID: "c", Vector: unitVec(4, 2), SourceType: "md", DocPath: "/notes/c.md"},
	}
	require.NoError(t, s.Upsert(context.Background(), entries))
	assert.Equal(t, 3, s.Count())

	hits, err := s.Query(context.Background(), unitVec(4, 0), 2, Filter{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "a", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
}

func TestHNSWStore_DimensionMismatch(t *testing.T) {
	s, err := NewHNSWStore("", 4)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	err = s.Upsert(context.Background(), []VectorEntry{{ID: "x", Vector: unitVec(8, 0)}})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
	assert.True(t, errors.IsFatal(err))

	_, err = s.Query(context.Background(), unitVec(8, 0), 1, Filter{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
}

func TestHNSWStore_UpsertOverwrites(t *testing.T) {
	s, err := NewHNSWStore("", 4)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Upsert(context.Background(),
		[]VectorEntry{{ID: "a", Vector: unitVec(4, 0)}}))
	require.NoError(t, s.Upsert(context.Background(),
		[]VectorEntry{{ID: "a", Vector: unitVec(4, 3)}}))

	assert.Equal(t, 1, s.Count())

	vec, ok := s.Vector("a")
	require.True(t, ok)
	assert.Equal(t, unitVec(4, 3), vec)

	hits, err := s.Query(context.Background(), unitVec(4, 3), 1, Filter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
}

func TestHNSWStore_FilterPushdown(t *testing.T) {
	s, err := NewHNSWStore("", 4)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Upsert(context.Background(), []VectorEntry{
		{ID: "md1", Vector: unitVec(4, 0), SourceType: "md", DocPath: "/docs/one.md"},
		{ID: "txt1", Vector: unitVec(4, 0), SourceType: "txt", DocPath: "/docs/one.txt"},
		{ID: "md2", Vector: unitVec(4, 1), SourceType: "md", DocPath: "/notes/two.md"},
	}))

	hits, err := s.Query(context.Background(), unitVec(4, 0), 3, Filter{SourceType: "md"})
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "txt1", h.ID)
	}

	hits, err = s.Query(context.Background(), unitVec(4, 0), 3, Filter{PathPrefix: "/docs/"})
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "md2", h.ID)
	}
}

func TestHNSWStore_DeleteIsLazy(t *testing.T) {
	s, err := NewHNSWStore("", 4)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Upsert(context.Background(), []VectorEntry{
		{ID: "a", Vector: unitVec(4, 0)},
		{ID: "b", Vector: unitVec(4, 1)},
	}))
	require.NoError(t, s.Delete(context.Background(), []string{"a"}))

	assert.Equal(t, 1, s.Count())
	_, ok := s.Vector("a")
	assert.False(t, ok)

	// Deleted entries never surface in query results.
	hits, err := s.Query(context.Background(), unitVec(4, 0), 2, Filter{})
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "a", h.ID)
	}
}

func TestHNSWStore_EmptyStoreQueries(t *testing.T) {
	s, err := NewHNSWStore("", 4)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	hits, err := s.Query(context.Background(), unitVec(4, 0), 5, Filter{})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Empty(t, s.AllIDs())
}

func TestHNSWStore_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.hnsw")

	s, err := NewHNSWStore(path, 4)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(context.Background(), []VectorEntry{
		{ID: "a", Vector: unitVec(4, 0), SourceType: "md", DocPath: "/a.md"},
		{ID: "b", Vector: unitVec(4, 1), SourceType: "txt", DocPath: "/b.txt"},
	}))
	require.NoError(t, s.Save())
	require.NoError(t, s.Close())

	reloaded, err := NewHNSWStore(path, 4)
	require.NoError(t, err)
	defer func() { _ = reloaded.Close() }()

	assert.Equal(t, 2, reloaded.Count())

	vec, ok := reloaded.Vector("a")
	require.True(t, ok)
	assert.Equal(t, unitVec(4, 0), vec)

	hits, err := reloaded.Query(context.Background(), unitVec(4, 1), 1, Filter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ID)
}

func TestHNSWStore_ReloadDimensionConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.hnsw")

	s, err := NewHNSWStore(path, 4)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(context.Background(),
		[]VectorEntry{{ID: "a", Vector: unitVec(4, 0)}}))
	require.NoError(t, s.Save())
	require.NoError(t, s.Close())

	_, err = NewHNSWStore(path, 8)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionMismatch, errors.GetCode(err))
}

func TestHNSWStore_ClosedRejectsCalls(t *testing.T) {
	s, err := NewHNSWStore("", 4)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close()) // idempotent

	assert.Error(t, s.Upsert(context.Background(), []VectorEntry{{ID: "a", Vector: unitVec(4, 0)}}))
	_, qerr := s.Query(context.Background(), unitVec(4, 0), 1, Filter{})
	assert.Error(t, qerr)
	assert.Zero(t, s.Count())
}
