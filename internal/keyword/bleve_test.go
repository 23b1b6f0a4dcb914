package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
)

func testIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "keyword.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestBleveIndex_SearchFields(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	songs := []*models.Song{
		{ID: 1, Title: "Basement Funk", Genre: "funk", Mood: "upbeat"},
		{ID: 2, Title: "Quiet Morning", Genre: "ambient", Mood: "mellow"},
		{ID: 3, Title: "Funk Machine", Genre: "rock", Mood: "driving"},
	}
	for _, s := range songs {
		if err := idx.Index(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	results, err := idx.Search(ctx, "funk", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 matches for funk, got %d", len(results))
	}
	for _, r := range results {
		if r.SongID != 1 && r.SongID != 3 {
			t.Errorf("unexpected match: %+v", r)
		}
		if r.Score <= 0 {
			t.Errorf("score should be positive, got %g", r.Score)
		}
	}

	results, err = idx.Search(ctx, "mellow", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].SongID != 2 {
		t.Errorf("mood should be searchable, got %+v", results)
	}

	results, err = idx.Search(ctx, "saxophone", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("no-match query should return empty, got %+v", results)
	}
}

func TestBleveIndex_ReindexOverwrites(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	song := &models.Song{ID: 1, Title: "Old Name", Genre: "funk"}
	if err := idx.Index(ctx, song); err != nil {
		t.Fatal(err)
	}
	song.Title = "New Name"
	if err := idx.Index(ctx, song); err != nil {
		t.Fatal(err)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("re-index must not duplicate, count = %d", count)
	}
	results, err := idx.Search(ctx, "old", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("old title should no longer match, got %+v", results)
	}
}

func TestBleveIndex_Delete(t *testing.T) {
	idx := testIndex(t)
	ctx := context.Background()

	if err := idx.Index(ctx, &models.Song{ID: 7, Title: "Gone Soon"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Delete(ctx, 7); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, "gone", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("deleted song should not match, got %+v", results)
	}
}
