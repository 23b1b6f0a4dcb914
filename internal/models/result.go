package models

// AudioResult is a single audio nearest-neighbor hit.
type AudioResult struct {
	SongID     int64                  `json:"song_id"`
	Similarity float64                `json:"similarity"`
	AudioPath  string                 `json:"audio_path,omitempty"`
	Features   map[string]interface{} `json:"features,omitempty"`
	Song       *Song                  `json:"song,omitempty"`
}

// TextResult is a single text nearest-neighbor hit. Each hit identifies the
// text field that matched, not just the song.
type TextResult struct {
	SongID      int64       `json:"song_id"`
	ContentType ContentType `json:"content_type"`
	Content     string      `json:"content,omitempty"`
	Similarity  float64     `json:"similarity"`
}

// HybridResult is a single fused audio+text hit. AudioSimilarity and
// TextSimilarity are zero when the song lacks that modality.
type HybridResult struct {
	SongID          int64   `json:"song_id"`
	CombinedScore   float64 `json:"combined_score"`
	AudioSimilarity float64 `json:"audio_similarity"`
	TextSimilarity  float64 `json:"text_similarity"`
	Song            *Song   `json:"song,omitempty"`
}

// TempoResult is a single tempo-window hit. AudioSimilarity is set only when
// the query supplied an audio probe.
type TempoResult struct {
	SongID          int64    `json:"song_id"`
	TempoBPM        float64  `json:"tempo_bpm"`
	TempoDiff       float64  `json:"tempo_diff"`
	AudioSimilarity *float64 `json:"audio_similarity,omitempty"`
	Song            *Song    `json:"song,omitempty"`
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	SongID int64   `json:"song_id"`
	Score  float64 `json:"score"`
	Song   *Song   `json:"song,omitempty"`
}

// AudioResponse is the response for an audio search request.
type AudioResponse struct {
	Results   []*AudioResult `json:"results"`
	Total     int            `json:"total"`
	QueryTime int64          `json:"query_time_ms"`
	Cached    bool           `json:"cached"`
}

// TextResponse is the response for a text search request.
type TextResponse struct {
	Results   []*TextResult `json:"results"`
	Total     int           `json:"total"`
	QueryTime int64         `json:"query_time_ms"`
	Cached    bool          `json:"cached"`
}

// HybridResponse is the response for a hybrid search request.
type HybridResponse struct {
	Results   []*HybridResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Cached    bool            `json:"cached"`
}

// TempoResponse is the response for a tempo search request.
type TempoResponse struct {
	Results   []*TempoResult `json:"results"`
	Total     int            `json:"total"`
	QueryTime int64          `json:"query_time_ms"`
	Cached    bool           `json:"cached"`
}

// KeywordResponse is the response for a keyword search request.
type KeywordResponse struct {
	Results   []*KeywordResult `json:"results"`
	Total     int              `json:"total"`
	QueryTime int64            `json:"query_time_ms"`
}
