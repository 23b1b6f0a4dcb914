package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/search"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/storage"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/vector"
)

func (s *Server) handleSearchAudio(w http.ResponseWriter, r *http.Request) {
	var query models.AudioQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	response, err := s.engine.SearchByAudio(r.Context(), &query)
	if err != nil {
		s.respondSearchError(w, "audio search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleSearchText(w http.ResponseWriter, r *http.Request) {
	var query models.TextQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	response, err := s.engine.SearchByText(r.Context(), &query)
	if err != nil {
		s.respondSearchError(w, "text search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleSearchHybrid(w http.ResponseWriter, r *http.Request) {
	var query models.HybridQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	response, err := s.engine.SearchHybrid(r.Context(), &query)
	if err != nil {
		s.respondSearchError(w, "hybrid search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleSearchTempo(w http.ResponseWriter, r *http.Request) {
	var query models.TempoQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	response, err := s.engine.SearchByTempo(r.Context(), &query)
	if err != nil {
		s.respondSearchError(w, "tempo search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleSearchKeyword(w http.ResponseWriter, r *http.Request) {
	var query models.KeywordQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	query.Limit = s.cfg.Search.ClampK(query.Limit)
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Now()
	hits, err := s.keyword.Search(r.Context(), query.Query, query.Limit)
	if err != nil {
		s.logger.Error("keyword search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.SongID
	}
	songs, err := s.store.GetSongs(r.Context(), ids)
	if err != nil {
		s.logger.Error("keyword hydration failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response := &models.KeywordResponse{Results: make([]*models.KeywordResult, 0, len(hits))}
	for _, h := range hits {
		response.Results = append(response.Results, &models.KeywordResult{
			SongID: h.SongID,
			Score:  h.Score,
			Song:   songs[h.SongID],
		})
	}
	response.Total = len(response.Results)
	response.QueryTime = time.Since(start).Milliseconds()
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleUpsertSong(w http.ResponseWriter, r *http.Request) {
	var song models.Song
	if err := json.NewDecoder(r.Body).Decode(&song); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.ingestor.UpsertSong(r.Context(), &song); err != nil {
		s.logger.Error("song upsert failed", zap.Int64("song_id", song.ID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"id": song.ID, "status": "upserted"})
}

func (s *Server) handleUpsertAudio(w http.ResponseWriter, r *http.Request) {
	var emb models.AudioEmbedding
	if err := json.NewDecoder(r.Body).Decode(&emb); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.ingestor.UpsertAudioEmbedding(r.Context(), &emb); err != nil {
		if errors.Is(err, storage.ErrDimensionMismatch) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("audio embedding upsert failed", zap.String("audio_path", emb.AudioPath), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"audio_path": emb.AudioPath, "status": "upserted"})
}

func (s *Server) handleUpsertText(w http.ResponseWriter, r *http.Request) {
	var emb models.TextEmbedding
	if err := json.NewDecoder(r.Body).Decode(&emb); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.ingestor.UpsertTextEmbedding(r.Context(), &emb); err != nil {
		if errors.Is(err, storage.ErrDimensionMismatch) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("text embedding upsert failed",
			zap.Int64("song_id", emb.SongID),
			zap.String("content_type", string(emb.ContentType)),
			zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"song_id": emb.SongID, "content_type": emb.ContentType, "status": "upserted",
	})
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Collections []string `json:"collections,omitempty"`
	}
	// An empty body means rebuild everything.
	_ = json.NewDecoder(r.Body).Decode(&body)

	collections := body.Collections
	if len(collections) == 0 {
		collections = search.Collections()
	}
	buildIDs := make(map[string]string, len(collections))
	for _, c := range collections {
		buildID, err := s.engine.Rebuild(r.Context(), c)
		if err != nil {
			if errors.Is(err, search.ErrUnknownCollection) {
				s.respondError(w, http.StatusBadRequest, err.Error())
				return
			}
			s.logger.Error("rebuild failed", zap.String("collection", c), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		buildIDs[c] = buildID
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "rebuilt",
		"build_ids":   buildIDs,
		"index_sizes": s.engine.IndexSizes(),
	})
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.cache.Cleanup(r.Context())
	if err != nil {
		s.logger.Error("cache cleanup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	songCount, err := s.store.CountSongs(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	audioCount, err := s.store.CountAudioEmbeddings(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	textCount, err := s.store.CountTextEmbeddings(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cacheCount, err := s.cache.Count(ctx)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	keywordCount, err := s.keyword.DocCount()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"songs":             songCount,
		"audio_embeddings":  audioCount,
		"text_embeddings":   textCount,
		"cache_entries":     cacheCount,
		"keyword_indexed":   keywordCount,
		"index_sizes":       s.engine.IndexSizes(),
		"stale_collections": s.engine.StaleCollections(),
		"config": map[string]interface{}{
			"combined_dimensions": s.cfg.Embedding.CombinedDimensions,
			"deep_dimensions":     s.cfg.Embedding.DeepDimensions,
			"text_dimensions":     s.cfg.Embedding.TextDimensions,
			"bucket_count":        s.cfg.Search.BucketCount,
			"nprobe":              s.cfg.Search.NProbe,
			"database_path":       s.cfg.Storage.DatabasePath,
			"bleve_index_path":    s.cfg.Storage.BleveIndexPath,
		},
	})
}

// respondSearchError maps engine errors onto HTTP statuses: structurally
// invalid vectors are client errors, an unbuilt index is a conflict the
// caller can resolve with a rebuild, everything else is internal.
func (s *Server) respondSearchError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, vector.ErrLengthMismatch), errors.Is(err, storage.ErrDimensionMismatch):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, search.ErrIndexNotBuilt):
		s.respondError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error(msg, zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
