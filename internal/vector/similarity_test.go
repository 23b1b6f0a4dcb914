package vector

import (
	"errors"
	"math"
	"testing"
)

func TestCosineDistance_Identical(t *testing.T) {
	v := []float32{0.3, -0.5, 0.81}
	d, err := CosineDistance(v, v)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d) > 1e-9 {
		t.Errorf("distance to self should be 0, got %g", d)
	}
}

func TestCosineDistance_Orthogonal(t *testing.T) {
	d, err := CosineDistance([]float32{1, 0}, []float32{0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d-1) > 1e-9 {
		t.Errorf("orthogonal vectors should have distance 1, got %g", d)
	}
}

func TestCosineDistance_Opposite(t *testing.T) {
	d, err := CosineDistance([]float32{1, 2, 3}, []float32{-1, -2, -3})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d-2) > 1e-6 {
		t.Errorf("opposite vectors should have distance 2, got %g", d)
	}
}

func TestCosineDistance_Symmetric(t *testing.T) {
	a := []float32{0.1, 0.9, -0.4}
	b := []float32{0.7, 0.2, 0.2}
	d1, err := CosineDistance(a, b)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := CosineDistance(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Errorf("distance is not symmetric: %g vs %g", d1, d2)
	}
}

func TestCosineDistance_LengthMismatch(t *testing.T) {
	_, err := CosineDistance([]float32{1, 2}, []float32{1, 2, 3})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
	_, err = CosineDistance(nil, nil)
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch for empty vectors, got %v", err)
	}
}

func TestCosineDistance_ZeroNorm(t *testing.T) {
	d, err := CosineDistance([]float32{0, 0, 0}, []float32{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if d != 1 {
		t.Errorf("zero-norm vector should have distance 1, got %g", d)
	}
}

func TestSimilarity_ComplementsDistance(t *testing.T) {
	a := []float32{0.5, 0.5}
	b := []float32{1, 0}
	d, err := CosineDistance(a, b)
	if err != nil {
		t.Fatal(err)
	}
	s, err := Similarity(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s-(1-d)) > 1e-12 {
		t.Errorf("similarity %g should equal 1 - distance %g", s, d)
	}
}

func TestSimilarity_LengthMismatch(t *testing.T) {
	_, err := Similarity([]float32{1}, []float32{1, 2})
	if !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
}
