// Package vector provides cosine distance and a bucketed approximate
// nearest-neighbor index over dense float32 vectors.
package vector

import (
	"errors"
	"math"
)

// ErrLengthMismatch is returned when two vectors of different lengths are
// compared. This is a programming error at the call site, never retried.
var ErrLengthMismatch = errors.New("vector length mismatch")

// CosineDistance returns 1 minus the cosine of the angle between a and b.
// Both vectors must have the same non-zero length. A vector with zero norm
// has no direction; its distance to anything is defined as 1.
func CosineDistance(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, ErrLengthMismatch
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1, nil
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)), nil
}

// Similarity returns 1 - CosineDistance(a, b). Values are deliberately not
// clamped: for non-unit vectors the result may leave [0,1], and presentation
// layers own any display mapping.
func Similarity(a, b []float32) (float64, error) {
	d, err := CosineDistance(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - d, nil
}
