package vector

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/utils"
)

// NoThreshold passes every entry through the similarity filter.
// Useful when a caller wants raw candidates for downstream fusion.
var NoThreshold = math.Inf(-1)

const refineRounds = 4

// Entry is one (id, vector) pair snapshotted from the store at build time.
type Entry struct {
	ID     int64
	Vector []float32
}

// Result is a single index hit.
type Result struct {
	ID         int64   `json:"id"`
	Similarity float64 `json:"similarity"`
}

// Params configures index construction.
type Params struct {
	// BucketCount is the number of clusters the collection is partitioned into.
	BucketCount int
	// NProbe is how many of the nearest buckets a search scans.
	NProbe int
}

type bucket struct {
	centroid []float32
	ids      []int64
	vectors  [][]float32
}

// BucketIndex is an approximate nearest-neighbor index: vectors are
// partitioned into buckets around k-means centroids, and a search only scans
// the buckets whose centroids are closest to the probe. The index is
// immutable after Build; replace it wholesale when the collection changes.
type BucketIndex struct {
	dimensions int
	nprobe     int
	buckets    []bucket
	size       int
	builtAt    time.Time
}

// Build snapshots entries into a new index. All vectors must have the given
// dimension. Building over zero entries is valid and yields an index whose
// searches return no results.
func Build(entries []Entry, dimensions int, params Params) (*BucketIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	for _, e := range entries {
		if len(e.Vector) != dimensions {
			return nil, fmt.Errorf("entry %d: got %d dimensions, expected %d: %w",
				e.ID, len(e.Vector), dimensions, ErrLengthMismatch)
		}
	}
	nprobe := params.NProbe
	if nprobe <= 0 {
		nprobe = 1
	}
	idx := &BucketIndex{
		dimensions: dimensions,
		nprobe:     nprobe,
		size:       len(entries),
		builtAt:    time.Now(),
	}
	if len(entries) == 0 {
		return idx, nil
	}

	// Sort by ID so bucket layout is deterministic for a given collection.
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	k := params.BucketCount
	if k <= 0 {
		k = 1
	}
	if k > len(sorted) {
		k = len(sorted)
	}

	centroids := initialCentroids(sorted, k, dimensions)
	assignments := make([]int, len(sorted))
	for round := 0; round < refineRounds; round++ {
		for i, e := range sorted {
			assignments[i] = nearestCentroid(e.Vector, centroids)
		}
		centroids = recomputeCentroids(sorted, assignments, k, dimensions)
	}
	for i, e := range sorted {
		assignments[i] = nearestCentroid(e.Vector, centroids)
	}

	idx.buckets = make([]bucket, k)
	for b := range idx.buckets {
		idx.buckets[b].centroid = centroids[b]
	}
	for i, e := range sorted {
		b := &idx.buckets[assignments[i]]
		vec := make([]float32, dimensions)
		copy(vec, e.Vector)
		b.ids = append(b.ids, e.ID)
		b.vectors = append(b.vectors, vec)
	}
	return idx, nil
}

// Search returns up to k entries ordered by similarity descending, ties
// broken by ascending ID. Entries with similarity strictly below threshold
// are excluded. Fewer than k results are returned when the scanned buckets
// hold fewer matches.
func (x *BucketIndex) Search(probe []float32, k int, threshold float64) ([]Result, error) {
	if len(probe) != x.dimensions {
		return nil, fmt.Errorf("probe: got %d dimensions, expected %d: %w",
			len(probe), x.dimensions, ErrLengthMismatch)
	}
	if k <= 0 || x.size == 0 {
		return nil, nil
	}

	scan := x.bucketsByProximity(probe)
	if len(scan) > x.nprobe {
		scan = scan[:x.nprobe]
	}

	var hits []Result
	for _, bi := range scan {
		b := &x.buckets[bi]
		for i, vec := range b.vectors {
			sim := cosineSimilarity(probe, vec)
			if sim < threshold {
				continue
			}
			hits = append(hits, Result{ID: b.ids[i], Similarity: sim})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Size returns the number of vectors in the index.
func (x *BucketIndex) Size() int {
	return x.size
}

// Dimensions returns the vector dimension the index was built for.
func (x *BucketIndex) Dimensions() int {
	return x.dimensions
}

// BuiltAt returns when the index snapshot was taken.
func (x *BucketIndex) BuiltAt() time.Time {
	return x.builtAt
}

// bucketsByProximity returns bucket indices ordered by centroid similarity
// to the probe, best first.
func (x *BucketIndex) bucketsByProximity(probe []float32) []int {
	order := make([]int, len(x.buckets))
	sims := make([]float64, len(x.buckets))
	for i := range x.buckets {
		order[i] = i
		sims[i] = cosineSimilarity(probe, x.buckets[i].centroid)
	}
	sort.Slice(order, func(i, j int) bool {
		if sims[order[i]] != sims[order[j]] {
			return sims[order[i]] > sims[order[j]]
		}
		return order[i] < order[j]
	})
	return order
}

// initialCentroids seeds k centroids from entries spaced evenly across the
// ID-sorted collection. Deterministic, no random seeding.
func initialCentroids(sorted []Entry, k, dimensions int) [][]float32 {
	centroids := make([][]float32, k)
	for i := 0; i < k; i++ {
		src := sorted[i*len(sorted)/k].Vector
		c := make([]float32, dimensions)
		copy(c, src)
		centroids[i] = c
	}
	return centroids
}

func nearestCentroid(vec []float32, centroids [][]float32) int {
	best := 0
	bestSim := math.Inf(-1)
	for i, c := range centroids {
		sim := cosineSimilarity(vec, c)
		if sim > bestSim {
			best = i
			bestSim = sim
		}
	}
	return best
}

func recomputeCentroids(sorted []Entry, assignments []int, k, dimensions int) [][]float32 {
	sums := make([][]float64, k)
	counts := make([]int, k)
	for i := range sums {
		sums[i] = make([]float64, dimensions)
	}
	for i, e := range sorted {
		a := assignments[i]
		counts[a]++
		for d, v := range e.Vector {
			sums[a][d] += float64(v)
		}
	}
	centroids := make([][]float32, k)
	for i := range centroids {
		c := make([]float32, dimensions)
		if counts[i] > 0 {
			for d := range c {
				c[d] = float32(sums[i][d] / float64(counts[i]))
			}
		} else {
			// Empty bucket keeps its entries' neighborhood empty; reseed from
			// the first entry so the centroid is never a zero vector.
			copy(c, sorted[0].Vector)
		}
		// Centroids are kept unit length; cosine comparisons are scale
		// invariant, so this only affects numeric conditioning.
		utils.NormalizeL2(c)
		centroids[i] = c
	}
	return centroids
}

// cosineSimilarity is the internal no-error variant for equal-length vectors.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
