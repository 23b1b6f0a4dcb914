package utils

import "testing"

func TestTruncate(t *testing.T) {
	if got := Truncate("Riverside Waltz", 40); got != "Riverside Waltz" {
		t.Errorf("short title changed: %q", got)
	}
	if got := Truncate("An Extremely Long Working Title", 10); got != "An Extreme..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("x", 0); got != "x" {
		t.Errorf("maxLen 0 should disable truncation, got %q", got)
	}
}
