package models

import "fmt"

// Default and maximum result counts applied when a query leaves K unset or
// asks for too much. The server can tighten these further via config.
const (
	DefaultK = 10
	MaxK     = 100
)

// AudioQuery is a nearest-neighbor search over audio embeddings.
// Deep selects the deep-embedding-only collection instead of the combined one;
// the probe must then match the deep dimension.
type AudioQuery struct {
	Probe               []float32 `json:"probe"`
	K                   int       `json:"k,omitempty"`
	SimilarityThreshold float64   `json:"similarity_threshold,omitempty"`
	Deep                bool      `json:"deep,omitempty"`
}

// Validate checks the query and normalizes K.
func (q *AudioQuery) Validate() error {
	if len(q.Probe) == 0 {
		return fmt.Errorf("probe vector cannot be empty")
	}
	q.K = clampK(q.K)
	return nil
}

// TextQuery is a nearest-neighbor search over text embeddings, restricted to
// the given content types. An empty ContentTypes means all types.
type TextQuery struct {
	Probe        []float32 `json:"probe"`
	K            int       `json:"k,omitempty"`
	ContentTypes []string  `json:"content_types,omitempty"`
}

// Validate checks the query and normalizes K.
func (q *TextQuery) Validate() error {
	if len(q.Probe) == 0 {
		return fmt.Errorf("probe vector cannot be empty")
	}
	q.K = clampK(q.K)
	return nil
}

// HybridQuery fuses audio and text similarity with explicit weights.
// Zero weights mean "use the configured defaults" (0.6 audio / 0.4 text);
// weights are not required to sum to 1.
type HybridQuery struct {
	AudioProbe   []float32 `json:"audio_probe"`
	TextProbe    []float32 `json:"text_probe"`
	AudioWeight  float64   `json:"audio_weight,omitempty"`
	TextWeight   float64   `json:"text_weight,omitempty"`
	K            int       `json:"k,omitempty"`
	ContentTypes []string  `json:"content_types,omitempty"`
}

// Validate checks the query and normalizes K.
func (q *HybridQuery) Validate() error {
	if len(q.AudioProbe) == 0 || len(q.TextProbe) == 0 {
		return fmt.Errorf("hybrid search requires both audio and text probe vectors")
	}
	if q.AudioWeight < 0 || q.TextWeight < 0 {
		return fmt.Errorf("weights cannot be negative")
	}
	q.K = clampK(q.K)
	return nil
}

// TempoQuery selects songs inside a tempo window, optionally tie-breaking
// with audio similarity to a probe vector.
type TempoQuery struct {
	TargetTempo float64   `json:"target_tempo"`
	Tolerance   float64   `json:"tolerance"`
	AudioProbe  []float32 `json:"audio_probe,omitempty"`
	K           int       `json:"k,omitempty"`
}

// Validate checks the query and normalizes K.
func (q *TempoQuery) Validate() error {
	if q.TargetTempo <= 0 {
		return fmt.Errorf("target tempo must be positive")
	}
	if q.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive")
	}
	q.K = clampK(q.K)
	return nil
}

// KeywordQuery is a plain text search over song title, genre, and mood.
type KeywordQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate checks the query and normalizes Limit.
func (q *KeywordQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	q.Limit = clampK(q.Limit)
	return nil
}

func clampK(k int) int {
	if k <= 0 {
		return DefaultK
	}
	if k > MaxK {
		return MaxK
	}
	return k
}
