package vector

import "testing"

func TestCodec_RoundTrip(t *testing.T) {
	orig := []float32{0, 1.5, -3.25, 1e-7, 549.0}
	got := FromBytes(ToBytes(orig))
	if len(got) != len(orig) {
		t.Fatalf("length changed: %d vs %d", len(got), len(orig))
	}
	for i := range orig {
		if got[i] != orig[i] {
			t.Errorf("index %d: got %g, want %g", i, got[i], orig[i])
		}
	}
}

func TestCodec_Empty(t *testing.T) {
	if b := ToBytes(nil); len(b) != 0 {
		t.Errorf("nil slice should encode to empty, got %d bytes", len(b))
	}
	if v := FromBytes(nil); len(v) != 0 {
		t.Errorf("nil bytes should decode to empty, got %d floats", len(v))
	}
}
