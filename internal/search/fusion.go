// Package search provides multi-modal ranking (audio, text, hybrid fusion,
// tempo) and the query planner that dispatches and caches searches.
package search

import (
	"sort"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/vector"
)

// AggregateTextBySong reduces per-row text hits to one score per song: the
// maximum similarity across the song's matching text fields. A song is
// represented by its single best-matching field, not an average.
func AggregateTextBySong(hits []vector.Result) map[int64]float64 {
	bySong := make(map[int64]float64)
	for _, h := range hits {
		if s, ok := bySong[h.ID]; !ok || h.Similarity > s {
			bySong[h.ID] = h.Similarity
		}
	}
	return bySong
}

// Fuse merges per-song audio and text similarities into one ordering.
// Presence in a map means the song has that modality; a missing modality
// contributes zero to the weighted sum. Songs missing both modalities cannot
// appear because they are in neither map. Ordering is combined score
// descending, ties broken by ascending song ID.
func Fuse(audioScores, textScores map[int64]float64, audioWeight, textWeight float64) []*models.HybridResult {
	merged := make(map[int64]*models.HybridResult, len(audioScores)+len(textScores))
	for id, sim := range audioScores {
		merged[id] = &models.HybridResult{SongID: id, AudioSimilarity: sim}
	}
	for id, sim := range textScores {
		if r, ok := merged[id]; ok {
			r.TextSimilarity = sim
		} else {
			merged[id] = &models.HybridResult{SongID: id, TextSimilarity: sim}
		}
	}
	results := make([]*models.HybridResult, 0, len(merged))
	for _, r := range merged {
		r.CombinedScore = r.AudioSimilarity*audioWeight + r.TextSimilarity*textWeight
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].SongID < results[j].SongID
	})
	return results
}
