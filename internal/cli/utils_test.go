package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
)

func sampleResponse() *models.KeywordResponse {
	return &models.KeywordResponse{
		Results: []*models.KeywordResult{
			{
				SongID: 1,
				Score:  2.5,
				Song:   &models.Song{ID: 1, Title: "Basement Funk", Genre: "funk", TempoBPM: 112},
			},
			{SongID: 2, Score: 1.1},
		},
		Total:     2,
		QueryTime: 3,
	}
}

func TestWriteKeywordResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteKeywordResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Found 2 results") {
		t.Errorf("missing header: %s", out)
	}
	if !strings.Contains(out, "Basement Funk") || !strings.Contains(out, "112.0 BPM") {
		t.Errorf("missing song details: %s", out)
	}
	if !strings.Contains(out, "Song ID: 2") {
		t.Errorf("results without songs should still print: %s", out)
	}
}

func TestWriteKeywordResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteKeywordResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.KeywordResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output should be valid JSON: %v", err)
	}
	if decoded.Total != 2 || decoded.Results[0].SongID != 1 {
		t.Errorf("got %+v", decoded)
	}
}

func TestWriteStatus_Text(t *testing.T) {
	status := map[string]interface{}{
		"songs":            float64(12),
		"audio_embeddings": float64(10),
		"index_sizes": map[string]interface{}{
			"audio_combined": float64(10),
		},
		"stale_collections": []interface{}{"text_lyrics"},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "songs:") || !strings.Contains(out, "12") {
		t.Errorf("missing counts: %s", out)
	}
	if !strings.Contains(out, "audio_combined") {
		t.Errorf("missing index sizes: %s", out)
	}
	if !strings.Contains(out, "text_lyrics") {
		t.Errorf("missing stale collections: %s", out)
	}
}

func TestWriteStatus_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStatus(&buf, map[string]interface{}{"songs": float64(1)}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output should be valid JSON: %v", err)
	}
	if decoded["songs"].(float64) != 1 {
		t.Errorf("got %v", decoded)
	}
}
