// Package utils holds small helpers shared across packages: logger setup,
// vector normalization, and text trimming for CLI output.
package utils

// Truncate shortens s to at most maxLen bytes, appending "..." when it cuts.
// Non-positive maxLen disables truncation. Song titles are ASCII-safe in
// practice, so byte truncation is fine here.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
