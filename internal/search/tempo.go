package search

import (
	"math"
	"sort"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/vector"
)

// RankByTempoDiff orders songs (already inside the tempo window) by absolute
// tempo deviation from target, ties broken by ascending song ID, limited to k.
func RankByTempoDiff(songs []*models.Song, target float64, k int) []*models.TempoResult {
	results := make([]*models.TempoResult, 0, len(songs))
	for _, song := range songs {
		results = append(results, &models.TempoResult{
			SongID:    song.ID,
			TempoBPM:  song.TempoBPM,
			TempoDiff: math.Abs(song.TempoBPM - target),
			Song:      song,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].TempoDiff != results[j].TempoDiff {
			return results[i].TempoDiff < results[j].TempoDiff
		}
		return results[i].SongID < results[j].SongID
	})
	if k < len(results) {
		results = results[:k]
	}
	return results
}

// RankByTempoAndAudio orders songs inside the tempo window by the combined
// ascending rank key
//
//	tempoDiff/tolerance + cosineDistance(audioVec, probe)
//
// where the tempo term is 0 at the target and 1 at the tolerance boundary,
// and the distance term ranges from 0 (identical) up to 2 (opposite). Songs
// without an audio embedding cannot be scored and are excluded. audioVecs
// maps song ID to its combined audio vector.
func RankByTempoAndAudio(songs []*models.Song, audioVecs map[int64][]float32, probe []float32, target, tolerance float64, k int) ([]*models.TempoResult, error) {
	type ranked struct {
		result *models.TempoResult
		key    float64
	}
	entries := make([]ranked, 0, len(songs))
	for _, song := range songs {
		vec, ok := audioVecs[song.ID]
		if !ok {
			continue
		}
		dist, err := vector.CosineDistance(vec, probe)
		if err != nil {
			return nil, err
		}
		diff := math.Abs(song.TempoBPM - target)
		sim := 1 - dist
		entries = append(entries, ranked{
			result: &models.TempoResult{
				SongID:          song.ID,
				TempoBPM:        song.TempoBPM,
				TempoDiff:       diff,
				AudioSimilarity: &sim,
				Song:            song,
			},
			key: diff/tolerance + dist,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].key != entries[j].key {
			return entries[i].key < entries[j].key
		}
		return entries[i].result.SongID < entries[j].result.SongID
	})
	if k < len(entries) {
		entries = entries[:k]
	}
	results := make([]*models.TempoResult, len(entries))
	for i, e := range entries {
		results[i] = e.result
	}
	return results, nil
}
