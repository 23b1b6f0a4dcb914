package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// vectorPrecision is the number of decimal places vector components are
// rounded to before hashing, so numerically-identical probes produced by
// separate callers land on the same fingerprint.
const vectorPrecision = 6

// Fingerprint derives the deterministic cache key for a query: SHA-256 over
// the query type and its canonicalized parameters. Params are serialized
// with sorted keys; callers encode vectors with CanonicalVector.
func Fingerprint(queryType string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(queryType)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// CanonicalVector encodes a vector for fingerprinting, rounding each
// component to a fixed precision.
func CanonicalVector(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'f', vectorPrecision, 64)
	}
	return strings.Join(parts, ",")
}

// CanonicalFloat encodes a scalar parameter for fingerprinting.
func CanonicalFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', vectorPrecision, 64)
}
