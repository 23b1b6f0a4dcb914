// Package storage defines the persistence interface for songs and embeddings.
package storage

import (
	"context"
	"errors"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
)

// ErrDimensionMismatch is returned when an upserted vector's length does not
// equal the field's fixed dimension. The input is structurally invalid and
// the call is never retried.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Dimensions fixes the vector length of each embedding field.
type Dimensions struct {
	Combined int
	Deep     int
	Text     int
}

// Store defines song and embedding persistence. Upserts overwrite in place
// on the declared unique key (audio_path, or song_id+content_type) and are
// idempotent, not additive.
type Store interface {
	// Song operations
	UpsertSong(ctx context.Context, song *models.Song) error
	GetSong(ctx context.Context, id int64) (*models.Song, error)
	GetSongs(ctx context.Context, ids []int64) (map[int64]*models.Song, error)
	ListSongsByTempo(ctx context.Context, minBPM, maxBPM float64) ([]*models.Song, error)
	CountSongs(ctx context.Context) (int64, error)

	// Audio embedding operations
	UpsertAudioEmbedding(ctx context.Context, emb *models.AudioEmbedding) error
	GetAudioBySong(ctx context.Context, songID int64) (*models.AudioEmbedding, error)
	GetAllAudio(ctx context.Context) ([]*models.AudioEmbedding, error)
	CountAudioEmbeddings(ctx context.Context) (int64, error)

	// Text embedding operations
	UpsertTextEmbedding(ctx context.Context, emb *models.TextEmbedding) error
	GetText(ctx context.Context, songID int64, ct models.ContentType) (*models.TextEmbedding, error)
	GetTextByTypes(ctx context.Context, types []models.ContentType) ([]*models.TextEmbedding, error)
	CountTextEmbeddings(ctx context.Context) (int64, error)

	Close() error
}
