// Package cli provides CLI output formatting for the band search tool.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/utils"
)

// maxTitleLen caps title display width in text output.
const maxTitleLen = 80

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteKeywordResults writes keyword search results to w in the given format.
func WriteKeywordResults(w io.Writer, response *models.KeywordResponse, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for i, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | Song ID: %d\n", i+1, result.Score, result.SongID)
		if result.Song != nil {
			fmt.Fprintf(w, "Title: %s\n", utils.Truncate(result.Song.Title, maxTitleLen))
			if result.Song.Genre != "" {
				fmt.Fprintf(w, "Genre: %s\n", result.Song.Genre)
			}
			if result.Song.TempoBPM > 0 {
				fmt.Fprintf(w, "Tempo: %.1f BPM\n", result.Song.TempoBPM)
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteStatus writes a raw status payload to w in the given format.
func WriteStatus(w io.Writer, status map[string]interface{}, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	for _, key := range []string{"songs", "audio_embeddings", "text_embeddings", "cache_entries", "keyword_indexed"} {
		if v, ok := status[key]; ok {
			fmt.Fprintf(w, "%-18s %v\n", key+":", v)
		}
	}
	if sizes, ok := status["index_sizes"].(map[string]interface{}); ok {
		fmt.Fprintln(w, "index sizes:")
		for c, n := range sizes {
			fmt.Fprintf(w, "  %-22s %v\n", c+":", n)
		}
	}
	if stale, ok := status["stale_collections"].([]interface{}); ok && len(stale) > 0 {
		fmt.Fprintf(w, "stale collections: %v\n", stale)
	}
	return nil
}
