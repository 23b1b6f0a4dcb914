// Package keyword provides the Bleve implementation of Index.
package keyword

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
)

// titleBoost multiplies the score contribution from title matches so a song
// named for the query outranks one that merely shares a genre word.
const titleBoost = 3.0

// indexedSong is the subset of song attributes worth keyword-matching.
type indexedSong struct {
	Title string `json:"title"`
	Genre string `json:"genre"`
	Mood  string `json:"mood"`
	Key   string `json:"key"`
}

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// opened and reused; remove the directory to force a full re-index after a
// mapping change.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	songMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming): song titles and
	// genre names should match the exact word typed.
	textFieldMapping.Analyzer = standard.Name
	songMapping.AddFieldMappingsAt("title", textFieldMapping)
	songMapping.AddFieldMappingsAt("genre", textFieldMapping)
	songMapping.AddFieldMappingsAt("mood", textFieldMapping)
	songMapping.AddFieldMappingsAt("key", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("song", songMapping)
	im.DefaultType = "song"
	im.DefaultMapping = songMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes a song's searchable attributes under its ID.
func (b *BleveIndex) Index(ctx context.Context, song *models.Song) error {
	return b.index.Index(strconv.FormatInt(song.ID, 10), indexedSong{
		Title: song.Title,
		Genre: song.Genre,
		Mood:  song.Mood,
		Key:   song.MusicalKey,
	})
}

// Search runs a boosted match query and returns up to limit results.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	titleQuery := bleve.NewMatchQuery(query)
	titleQuery.SetField("title")
	titleQuery.SetBoost(titleBoost)
	genreQuery := bleve.NewMatchQuery(query)
	genreQuery.SetField("genre")
	moodQuery := bleve.NewMatchQuery(query)
	moodQuery.SetField("mood")

	q := bleve.NewDisjunctionQuery(titleQuery, genreQuery, moodQuery)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, &Result{SongID: id, Score: hit.Score})
	}
	return out, nil
}

// Delete removes a song from the index.
func (b *BleveIndex) Delete(ctx context.Context, songID int64) error {
	return b.index.Delete(strconv.FormatInt(songID, 10))
}

// DocCount returns the total number of indexed songs.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
