package vector

import (
	"errors"
	"testing"
)

func buildTestIndex(t *testing.T, entries []Entry, dims int, params Params) *BucketIndex {
	t.Helper()
	idx, err := Build(entries, dims, params)
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestBuild_Empty(t *testing.T) {
	idx := buildTestIndex(t, nil, 3, Params{BucketCount: 4, NProbe: 2})
	if idx.Size() != 0 {
		t.Errorf("empty index size = %d", idx.Size())
	}
	hits, err := idx.Search([]float32{1, 0, 0}, 5, NoThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("empty index returned %d hits", len(hits))
	}
}

func TestBuild_DimensionMismatch(t *testing.T) {
	entries := []Entry{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{1, 0, 0}},
	}
	_, err := Build(entries, 2, Params{BucketCount: 2, NProbe: 1})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestSearch_OrderAndTieBreak(t *testing.T) {
	// Three vectors at increasing angles from the probe, plus a duplicate of
	// the nearest under a higher ID to exercise the ID tie-break.
	entries := []Entry{
		{ID: 4, Vector: []float32{1, 0}},
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{1, 1}},
		{ID: 3, Vector: []float32{0, 1}},
	}
	idx := buildTestIndex(t, entries, 2, Params{BucketCount: 1, NProbe: 1})
	hits, err := idx.Search([]float32{1, 0}, 10, NoThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 4 {
		t.Fatalf("expected 4 hits, got %d", len(hits))
	}
	wantOrder := []int64{1, 4, 2, 3}
	for i, want := range wantOrder {
		if hits[i].ID != want {
			t.Errorf("hit %d: got ID %d, want %d", i, hits[i].ID, want)
		}
	}
	if hits[0].Similarity != hits[1].Similarity {
		t.Errorf("duplicate vectors should tie: %g vs %g", hits[0].Similarity, hits[1].Similarity)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Similarity > hits[i-1].Similarity {
			t.Errorf("hits not sorted by similarity at %d", i)
		}
	}
}

func TestSearch_ThresholdInclusive(t *testing.T) {
	// The entry matching the probe has similarity exactly 1.0, so a threshold
	// of 1.0 must keep it while anything above must drop it.
	entries := []Entry{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{0, 1}},
	}
	idx := buildTestIndex(t, entries, 2, Params{BucketCount: 1, NProbe: 1})

	probe := []float32{1, 0}
	hits, err := idx.Search(probe, 10, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != 1 {
		t.Fatalf("threshold equal to similarity should include the entry, got %+v", hits)
	}

	hits, err = idx.Search(probe, 10, 1.0000001)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("threshold above similarity should exclude, got %+v", hits)
	}
}

func TestSearch_KLimit(t *testing.T) {
	var entries []Entry
	for i := int64(1); i <= 20; i++ {
		entries = append(entries, Entry{ID: i, Vector: []float32{1, float32(i) / 20}})
	}
	idx := buildTestIndex(t, entries, 2, Params{BucketCount: 1, NProbe: 1})
	hits, err := idx.Search([]float32{1, 0}, 5, NoThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 5 {
		t.Errorf("expected 5 hits, got %d", len(hits))
	}
	if hits[0].ID != 1 {
		t.Errorf("nearest entry should be ID 1, got %d", hits[0].ID)
	}
}

func TestSearch_ProbeDimensionMismatch(t *testing.T) {
	idx := buildTestIndex(t, []Entry{{ID: 1, Vector: []float32{1, 0, 0}}}, 3, Params{BucketCount: 1, NProbe: 1})
	_, err := idx.Search([]float32{1, 0}, 5, NoThreshold)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}

func TestSearch_NonPositiveK(t *testing.T) {
	idx := buildTestIndex(t, []Entry{{ID: 1, Vector: []float32{1, 0}}}, 2, Params{BucketCount: 1, NProbe: 1})
	hits, err := idx.Search([]float32{1, 0}, 0, NoThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("k=0 should return nothing, got %d", len(hits))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	entries := []Entry{
		{ID: 5, Vector: []float32{0.9, 0.1}},
		{ID: 3, Vector: []float32{0.1, 0.9}},
		{ID: 8, Vector: []float32{0.8, 0.2}},
		{ID: 1, Vector: []float32{0.2, 0.8}},
		{ID: 9, Vector: []float32{-0.5, 0.5}},
	}
	params := Params{BucketCount: 2, NProbe: 2}
	a := buildTestIndex(t, entries, 2, params)
	b := buildTestIndex(t, entries, 2, params)

	probe := []float32{0.7, 0.3}
	hitsA, err := a.Search(probe, 10, NoThreshold)
	if err != nil {
		t.Fatal(err)
	}
	hitsB, err := b.Search(probe, 10, NoThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if len(hitsA) != len(hitsB) {
		t.Fatalf("rebuild changed hit count: %d vs %d", len(hitsA), len(hitsB))
	}
	for i := range hitsA {
		if hitsA[i] != hitsB[i] {
			t.Errorf("hit %d differs between identical builds: %+v vs %+v", i, hitsA[i], hitsB[i])
		}
	}
}

func TestSearch_NProbeLimitsScan(t *testing.T) {
	// Two well-separated clusters. With nprobe 1 only the probe's own cluster
	// is scanned, so the far cluster's entries never appear.
	entries := []Entry{
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{0.99, 0.01}},
		{ID: 3, Vector: []float32{0, 1}},
		{ID: 4, Vector: []float32{0.01, 0.99}},
	}
	idx := buildTestIndex(t, entries, 2, Params{BucketCount: 2, NProbe: 1})
	hits, err := idx.Search([]float32{1, 0}, 10, NoThreshold)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hits {
		if h.ID == 3 || h.ID == 4 {
			t.Errorf("nprobe=1 scanned the far cluster: hit %+v", h)
		}
	}
	if len(hits) == 0 {
		t.Error("expected hits from the near cluster")
	}
}
