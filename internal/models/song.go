// Package models defines core data structures for songs, embeddings, queries, and search results.
package models

import "time"

// Song represents a catalog song with its structured attributes.
// Songs are created by the external ingestion pipeline; the search engine
// only reads them (tempo filtering, result hydration).
type Song struct {
	ID              int64     `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Genre           string    `json:"genre" db:"genre"`
	TempoBPM        float64   `json:"tempo_bpm" db:"tempo_bpm"`
	MusicalKey      string    `json:"key" db:"musical_key"`
	DurationSeconds float64   `json:"duration_seconds" db:"duration_seconds"`
	Energy          float64   `json:"energy" db:"energy"`
	Mood            string    `json:"mood" db:"mood"`
	Rating          float64   `json:"rating" db:"rating"`
	Session         string    `json:"session" db:"session"`
	RecordedAt      time.Time `json:"recorded_at" db:"recorded_at"`
	IsOriginal      bool      `json:"is_original" db:"is_original"`
	TrackNumber     int       `json:"track_number" db:"track_number"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// AudioEmbedding holds the audio vectors for one audio file, weakly
// referencing a song by ID. Combined is the 37 scalar features concatenated
// with the deep embedding; Deep is the deep embedding alone. Features keeps
// the raw scalar feature map for diagnostics and display.
type AudioEmbedding struct {
	AudioPath string                 `json:"audio_path" db:"audio_path"`
	SongID    int64                  `json:"song_id" db:"song_id"`
	Combined  []float32              `json:"combined" db:"combined"`
	Deep      []float32              `json:"deep" db:"deep"`
	Features  map[string]interface{} `json:"features,omitempty" db:"features"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// TextEmbedding holds one text vector for a (song, content type) pair.
type TextEmbedding struct {
	SongID      int64       `json:"song_id" db:"song_id"`
	ContentType ContentType `json:"content_type" db:"content_type"`
	Content     string      `json:"content" db:"content"`
	Vector      []float32   `json:"vector" db:"vector"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// ContentType identifies which song text field a text embedding was computed from.
type ContentType string

const (
	ContentTypeTitle       ContentType = "title"
	ContentTypeGenre       ContentType = "genre"
	ContentTypeDescription ContentType = "description"
	ContentTypeLyrics      ContentType = "lyrics"
	ContentTypeTags        ContentType = "tags"
	ContentTypeMetadata    ContentType = "metadata"
)

// AllContentTypes lists every valid content type in a stable order.
func AllContentTypes() []ContentType {
	return []ContentType{
		ContentTypeTitle,
		ContentTypeGenre,
		ContentTypeDescription,
		ContentTypeLyrics,
		ContentTypeTags,
		ContentTypeMetadata,
	}
}

// ParseContentType parses an external string into a ContentType.
// Returns false for strings outside the fixed set.
func ParseContentType(s string) (ContentType, bool) {
	switch ContentType(s) {
	case ContentTypeTitle, ContentTypeGenre, ContentTypeDescription,
		ContentTypeLyrics, ContentTypeTags, ContentTypeMetadata:
		return ContentType(s), true
	default:
		return "", false
	}
}

// FilterContentTypes parses a list of external strings, silently dropping
// unknown values and duplicates. An unknown type is a filter with no matches,
// not a malformed request; callers get an empty result set if nothing remains.
func FilterContentTypes(raw []string) []ContentType {
	seen := make(map[ContentType]bool, len(raw))
	out := make([]ContentType, 0, len(raw))
	for _, s := range raw {
		ct, ok := ParseContentType(s)
		if !ok || seen[ct] {
			continue
		}
		seen[ct] = true
		out = append(out, ct)
	}
	return out
}
