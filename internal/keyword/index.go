// Package keyword provides plain text (BM25) search over song attributes.
package keyword

import (
	"context"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
)

// Index defines keyword search operations over the song catalog.
type Index interface {
	Index(ctx context.Context, song *models.Song) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	Delete(ctx context.Context, songID int64) error
	// DocCount returns the total number of songs in the index.
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	SongID int64
	Score  float64
}
