package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docfuse/docfuse/internal/store"
)

func hits(ids ...string) []store.RankedHit {
	out := make([]store.RankedHit, len(ids))
	for i, id := range ids {
		out[i] = store.RankedHit{ID: id, Score: float64(len(ids) - i)}
	}
	return out
}

func TestFuse_BothEmpty(t *testing.T) {
	result := Fuse(nil, nil)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestFuse_SingleList(t *testing.T) {
	result := Fuse(hits("a", "b", "c"), nil)

	require.Len(t, result, 3)
	assert.Equal(t, "a", result[0].ChunkID)
	assert.InDelta(t, 1.0/61.0, result[0].RRFScore, 1e-12)
	assert.Equal(t, "b", result[1].ChunkID)
	assert.InDelta(t, 1.0/62.0, result[1].RRFScore, 1e-12)
	assert.Equal(t, 0, result[0].VecRank)
	assert.Equal(t, 1, result[0].TextRank)
}

func TestFuse_BothListsSum(t *testing.T) {
	// "x" is rank 1 in both lists: 1/61 + 1/61.
	// "y" is rank 2 in text only: 1/62.
	result := Fuse(hits("x", "y"), hits("x"))

	require.Len(t, result, 2)
	assert.Equal(t, "x", result[0].ChunkID)
	assert.InDelta(t, 2.0/61.0, result[0].RRFScore, 1e-12)
	assert.Equal(t, 1, result[0].TextRank)
	assert.Equal(t, 1, result[0].VecRank)

	assert.Equal(t, "y", result[1].ChunkID)
	assert.InDelta(t, 1.0/62.0, result[1].RRFScore, 1e-12)
}

func TestFuse_ConsensusBeatsSingleTop(t *testing.T) {
	// "both" at rank 2 in each list (2/62) outranks "solo" at rank 1 in
	// one list (1/61).
	result := Fuse(hits("solo", "both"), hits("other", "both"))

	require.NotEmpty(t, result)
	assert.Equal(t, "both", result[0].ChunkID)
	assert.InDelta(t, 2.0/62.0, result[0].RRFScore, 1e-12)
}

func TestFuse_TieBreakBestRank(t *testing.T) {
	// "a": text rank 1 only. "b": vector rank 1 only. Scores tie at 1/61
	// and best ranks tie at 1, so the chunk ID decides.
	result := Fuse(hits("a"), hits("b"))

	require.Len(t, result, 2)
	assert.Equal(t, result[0].RRFScore, result[1].RRFScore)
	assert.Equal(t, "a", result[0].ChunkID)
	assert.Equal(t, "b", result[1].ChunkID)
}

func TestFuse_TieBreakPrefersBetterSingleRank(t *testing.T) {
	// "z" holds text rank 1 (score 1/61); "a" holds vector rank 1 (1/61).
	// Equal scores, equal best ranks; lexicographic puts "a" first even
	// though "z" came from the text engine.
	resultA := Fuse(hits("z"), hits("a"))
	assert.Equal(t, "a", resultA[0].ChunkID)

	// Same score via different ranks never ties in practice, but a worse
	// best rank must lose when scores are equal. Construct it directly:
	// text list [p, q], vector list [q]. q: 1/62 + 1/61 > p: 1/61.
	resultB := Fuse(hits("p", "q"), hits("q"))
	assert.Equal(t, "q", resultB[0].ChunkID)
	assert.Equal(t, "p", resultB[1].ChunkID)
}

func TestFuse_Deterministic(t *testing.T) {
	text := hits("m", "n", "o", "p")
	vec := hits("o", "p", "q")

	first := Fuse(text, vec)
	for i := 0; i < 10; i++ {
		again := Fuse(text, vec)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].ChunkID, again[j].ChunkID)
			assert.Equal(t, first[j].RRFScore, again[j].RRFScore)
		}
	}
}

func TestFuse_NativeScoresPreserved(t *testing.T) {
	text := []store.RankedHit{{ID: "a", Score: 12.5}}
	vec := []store.RankedHit{{ID: "a", Score: 0.93}}

	result := Fuse(text, vec)
	require.Len(t, result, 1)
	assert.Equal(t, 12.5, result[0].TextScore)
	assert.Equal(t, 0.93, result[0].VecScore)
}
