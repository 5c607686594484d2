package retrieval

import (
	"sort"

	"github.com/tedkulp/cartulary-go/internal/model"
)

// mergeRRF performs Reciprocal Rank Fusion on vector and FTS result sets.
// Formula: RRF(d) = sum over rank lists of w/(k + rank(d)), k the RRF
// constant (default 60), rank 1-based, w the per-list weight.
func mergeRRF(vecResults, ftsResults []model.ChunkResult, rrfK int, vecWeight, ftsWeight float64) []model.ChunkResult {
	merged := make(map[string]*model.ChunkResult)

	for i := range vecResults {
		cr := vecResults[i]
		rank := i + 1
		rrfScore := vecWeight / float64(rrfK+rank)

		if existing, ok := merged[cr.ChunkID]; ok {
			existing.RRFScore += rrfScore
			existing.VecScore = cr.VecScore
			existing.VecRank = rank
		} else {
			cr.RRFScore = rrfScore
			cr.VecRank = rank
			merged[cr.ChunkID] = &cr
		}
	}

	for i := range ftsResults {
		cr := ftsResults[i]
		rank := i + 1
		rrfScore := ftsWeight / float64(rrfK+rank)

		if existing, ok := merged[cr.ChunkID]; ok {
			existing.RRFScore += rrfScore
			existing.FTSScore = cr.FTSScore
			existing.FTSRank = rank
		} else {
			cr.RRFScore = rrfScore
			cr.FTSRank = rank
			merged[cr.ChunkID] = &cr
		}
	}

	results := make([]model.ChunkResult, 0, len(merged))
	for _, cr := range merged {
		results = append(results, *cr)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].RRFScore > results[j].RRFScore
	})

	return results
}
