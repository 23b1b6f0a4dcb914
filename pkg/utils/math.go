package utils

import "math"

// NormalizeL2 scales the vector in place to unit L2 norm. Centroid updates
// call this so cosine comparisons stay well conditioned. A zero vector has no
// direction and is left untouched.
func NormalizeL2(x []float32) {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range x {
		x[i] *= norm
	}
}
