// Package ingest applies embedding and song upserts from the external
// extraction pipeline, keeping the keyword index and the vector index
// staleness flags in step with the store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/keyword"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/storage"
)

// StaleMarker flags vector collections for rebuild after a store mutation.
// Satisfied by the search engine.
type StaleMarker interface {
	MarkAudioStale()
	MarkTextStale(ct models.ContentType)
}

// Ingestor applies catalog writes.
type Ingestor struct {
	store   storage.Store
	keyword keyword.Index
	marker  StaleMarker
	logger  *zap.Logger
}

// NewIngestor creates an ingestor with the given dependencies.
func NewIngestor(store storage.Store, kw keyword.Index, marker StaleMarker, logger *zap.Logger) *Ingestor {
	return &Ingestor{store: store, keyword: kw, marker: marker, logger: logger}
}

// UpsertSong writes a song row and refreshes its keyword index entry.
func (i *Ingestor) UpsertSong(ctx context.Context, song *models.Song) error {
	if song.ID <= 0 {
		return fmt.Errorf("song id must be positive")
	}
	if err := i.store.UpsertSong(ctx, song); err != nil {
		return fmt.Errorf("upsert song %d: %w", song.ID, err)
	}
	if err := i.keyword.Index(ctx, song); err != nil {
		return fmt.Errorf("keyword index song %d: %w", song.ID, err)
	}
	return nil
}

// UpsertAudioEmbedding writes an audio embedding and marks the audio
// collections stale.
func (i *Ingestor) UpsertAudioEmbedding(ctx context.Context, emb *models.AudioEmbedding) error {
	if emb.AudioPath == "" {
		return fmt.Errorf("audio_path cannot be empty")
	}
	if err := i.store.UpsertAudioEmbedding(ctx, emb); err != nil {
		return fmt.Errorf("upsert audio embedding %s: %w", emb.AudioPath, err)
	}
	i.marker.MarkAudioStale()
	return nil
}

// UpsertTextEmbedding writes a text embedding and marks its content type's
// collection stale. The content type must be in the fixed set; this is a
// write, not a filter, so an unknown type is rejected.
func (i *Ingestor) UpsertTextEmbedding(ctx context.Context, emb *models.TextEmbedding) error {
	ct, ok := models.ParseContentType(string(emb.ContentType))
	if !ok {
		return fmt.Errorf("unknown content type: %q", emb.ContentType)
	}
	if err := i.store.UpsertTextEmbedding(ctx, emb); err != nil {
		return fmt.Errorf("upsert text embedding %d/%s: %w", emb.SongID, ct, err)
	}
	i.marker.MarkTextStale(ct)
	return nil
}

// dumpFile is the embedding dump format the extraction pipeline drops into
// the import directory: one song with its optional embeddings.
type dumpFile struct {
	Song  *models.Song            `json:"song"`
	Audio *models.AudioEmbedding  `json:"audio,omitempty"`
	Texts []*models.TextEmbedding `json:"texts,omitempty"`
}

// IngestFile parses an embedding dump file and applies every upsert in it.
func (i *Ingestor) IngestFile(ctx context.Context, path string) error {
	batchID := uuid.NewString()
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read dump file: %w", err)
	}
	var dump dumpFile
	if err := json.Unmarshal(data, &dump); err != nil {
		return fmt.Errorf("parse dump file %s: %w", path, err)
	}
	if dump.Song == nil {
		return fmt.Errorf("dump file %s has no song", path)
	}

	if err := i.UpsertSong(ctx, dump.Song); err != nil {
		return err
	}
	if dump.Audio != nil {
		if dump.Audio.SongID == 0 {
			dump.Audio.SongID = dump.Song.ID
		}
		if err := i.UpsertAudioEmbedding(ctx, dump.Audio); err != nil {
			return err
		}
	}
	for _, text := range dump.Texts {
		if text.SongID == 0 {
			text.SongID = dump.Song.ID
		}
		if err := i.UpsertTextEmbedding(ctx, text); err != nil {
			return err
		}
	}
	i.logger.Info("dump file ingested",
		zap.String("batch_id", batchID),
		zap.String("path", path),
		zap.Int64("song_id", dump.Song.ID),
		zap.Bool("audio", dump.Audio != nil),
		zap.Int("texts", len(dump.Texts)),
	)
	return nil
}
