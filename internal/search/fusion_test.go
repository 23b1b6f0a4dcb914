package search

import (
	"math"
	"testing"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/vector"
)

func TestAggregateTextBySong_MaxPerSong(t *testing.T) {
	hits := []vector.Result{
		{ID: 1, Similarity: 0.4},
		{ID: 1, Similarity: 0.9},
		{ID: 1, Similarity: 0.7},
		{ID: 2, Similarity: 0.3},
	}
	bySong := AggregateTextBySong(hits)
	if len(bySong) != 2 {
		t.Fatalf("expected 2 songs, got %d", len(bySong))
	}
	if bySong[1] != 0.9 {
		t.Errorf("song 1: expected the max 0.9, got %g", bySong[1])
	}
	if bySong[2] != 0.3 {
		t.Errorf("song 2: expected 0.3, got %g", bySong[2])
	}
}

func TestFuse_BothModalities(t *testing.T) {
	audio := map[int64]float64{1: 0.8, 2: 0.6}
	text := map[int64]float64{1: 0.5, 2: 0.9}
	results := Fuse(audio, text, 0.6, 0.4)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// song 1: 0.8*0.6 + 0.5*0.4 = 0.68; song 2: 0.6*0.6 + 0.9*0.4 = 0.72
	if results[0].SongID != 2 || results[1].SongID != 1 {
		t.Errorf("unexpected order: %d, %d", results[0].SongID, results[1].SongID)
	}
	if math.Abs(results[0].CombinedScore-0.72) > 1e-9 {
		t.Errorf("song 2 score: got %g, want 0.72", results[0].CombinedScore)
	}
}

func TestFuse_MissingModalityContributesZero(t *testing.T) {
	// Audio-only song with similarity 0.8 at weight 0.6 scores 0.48, which
	// must outrank a both-modality song at 0.36.
	audio := map[int64]float64{10: 0.8, 20: 0.3}
	text := map[int64]float64{20: 0.45}
	results := Fuse(audio, text, 0.6, 0.4)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].SongID != 10 {
		t.Errorf("audio-only song should rank first, got %d", results[0].SongID)
	}
	if math.Abs(results[0].CombinedScore-0.48) > 1e-9 {
		t.Errorf("audio-only score: got %g, want 0.48", results[0].CombinedScore)
	}
	if math.Abs(results[1].CombinedScore-0.36) > 1e-9 {
		t.Errorf("both-modality score: got %g, want 0.36", results[1].CombinedScore)
	}
	if results[0].TextSimilarity != 0 {
		t.Errorf("missing text modality should be zero, got %g", results[0].TextSimilarity)
	}
}

func TestFuse_TextOnly(t *testing.T) {
	text := map[int64]float64{7: 0.5}
	results := Fuse(nil, text, 0.6, 0.4)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].AudioSimilarity != 0 {
		t.Errorf("missing audio modality should be zero, got %g", results[0].AudioSimilarity)
	}
	if math.Abs(results[0].CombinedScore-0.2) > 1e-9 {
		t.Errorf("got %g, want 0.2", results[0].CombinedScore)
	}
}

func TestFuse_Empty(t *testing.T) {
	results := Fuse(nil, nil, 0.6, 0.4)
	if len(results) != 0 {
		t.Errorf("no candidates should fuse to nothing, got %d", len(results))
	}
}

func TestFuse_TieBreakByID(t *testing.T) {
	audio := map[int64]float64{3: 0.5, 1: 0.5, 2: 0.5}
	results := Fuse(audio, nil, 1.0, 0)
	for i, want := range []int64{1, 2, 3} {
		if results[i].SongID != want {
			t.Errorf("position %d: got %d, want %d", i, results[i].SongID, want)
		}
	}
}

func TestFuse_WeightMonotonicity(t *testing.T) {
	// Raising the audio weight must not demote a song whose audio similarity
	// exceeds its rival's when text is equal.
	audio := map[int64]float64{1: 0.9, 2: 0.4}
	text := map[int64]float64{1: 0.5, 2: 0.5}
	lo := Fuse(audio, text, 0.2, 0.8)
	hi := Fuse(audio, text, 0.8, 0.2)
	if lo[0].SongID != 1 || hi[0].SongID != 1 {
		t.Errorf("song with higher audio should lead under both weightings: got %d then %d",
			lo[0].SongID, hi[0].SongID)
	}
	if hi[0].CombinedScore <= lo[0].CombinedScore {
		t.Errorf("more audio weight should raise its score: %g vs %g",
			hi[0].CombinedScore, lo[0].CombinedScore)
	}
}
