// Package search runs hybrid queries: both engines ranked concurrently,
// merged with Reciprocal Rank Fusion (RRF).
package search

import (
	"sort"

	"github.com/docfuse/docfuse/internal/store"
)

// RRFConstant is the standard RRF smoothing parameter. k=60 is
// empirically validated across domains (Azure AI Search, OpenSearch).
const RRFConstant = 60

// FusedResult is a single candidate after RRF fusion. Per-engine ranks
// and native scores are preserved for explainability; only RRFScore
// determines ordering.
type FusedResult struct {
	ChunkID   string
	RRFScore  float64
	TextScore float64 // native keyword score, 0 if absent
	TextRank  int     // 1-indexed rank in keyword list, 0 if absent
	VecScore  float64 // native similarity score, 0 if absent
	VecRank   int     // 1-indexed rank in vector list, 0 if absent
}

// bestRank returns the candidate's best (lowest) rank across engines.
func (r *FusedResult) bestRank() int {
	best := r.TextRank
	if best == 0 || (r.VecRank != 0 && r.VecRank < best) {
		best = r.VecRank
	}
	return best
}

// Fuse merges per-engine rankings with RRF.
//
// Each appearance contributes 1/(k + rank) with 1-indexed ranks; a
// candidate absent from a list simply receives no contribution from it.
// Ordering is RRF score (desc), then best single-engine rank (asc), then
// chunk ID (asc), so equal inputs always produce identical output.
func Fuse(text []store.RankedHit, vec []store.RankedHit) []*FusedResult {
	if len(text) == 0 && len(vec) == 0 {
		return []*FusedResult{}
	}

	scores := make(map[string]*FusedResult, len(text)+len(vec))
	getOrCreate := func(id string) *FusedResult {
		if r, ok := scores[id]; ok {
			return r
		}
		r := &FusedResult{ChunkID: id}
		scores[id] = r
		return r
	}

	for i, hit := range text {
		r := getOrCreate(hit.ID)
		r.TextScore = hit.Score
		r.TextRank = i + 1
		r.RRFScore += 1.0 / float64(RRFConstant+i+1)
	}
	for i, hit := range vec {
		r := getOrCreate(hit.ID)
		r.VecScore = hit.Score
		r.VecRank = i + 1
		r.RRFScore += 1.0 / float64(RRFConstant+i+1)
	}

	results := make([]*FusedResult, 0, len(scores))
	for _, r := range scores {
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.RRFScore != b.RRFScore {
			return a.RRFScore > b.RRFScore
		}
		if ar, br := a.bestRank(), b.bestRank(); ar != br {
			return ar < br
		}
		return a.ChunkID < b.ChunkID
	})

	return results
}
