// Package server provides the HTTP API for the band search engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/cache"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/config"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/ingest"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/keyword"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/search"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/storage"
)

// Server is the HTTP server for the search API.
type Server struct {
	engine   *search.Engine
	ingestor *ingest.Ingestor
	store    storage.Store
	cache    cache.ResultCache
	keyword  keyword.Index
	cfg      *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	ingestor *ingest.Ingestor,
	store storage.Store,
	resultCache cache.ResultCache,
	kw keyword.Index,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:   engine,
		ingestor: ingestor,
		store:    store,
		cache:    resultCache,
		keyword:  kw,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	if len(s.cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	r.Post("/api/v1/search/audio", s.handleSearchAudio)
	r.Post("/api/v1/search/text", s.handleSearchText)
	r.Post("/api/v1/search/hybrid", s.handleSearchHybrid)
	r.Post("/api/v1/search/tempo", s.handleSearchTempo)
	r.Post("/api/v1/search/keyword", s.handleSearchKeyword)
	r.Put("/api/v1/songs", s.handleUpsertSong)
	r.Put("/api/v1/embeddings/audio", s.handleUpsertAudio)
	r.Put("/api/v1/embeddings/text", s.handleUpsertText)
	r.Post("/api/v1/index/rebuild", s.handleRebuild)
	r.Post("/api/v1/cache/cleanup", s.handleCacheCleanup)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// RunMaintenance runs the periodic cache cleanup and stale index rebuilds
// until ctx is cancelled. Intervals of zero disable the respective task.
func (s *Server) RunMaintenance(ctx context.Context) {
	var cleanupC, rebuildC <-chan time.Time
	if s.cfg.Cache.CleanupIntervalSeconds > 0 {
		t := time.NewTicker(time.Duration(s.cfg.Cache.CleanupIntervalSeconds) * time.Second)
		defer t.Stop()
		cleanupC = t.C
	}
	if s.cfg.Search.RebuildIntervalSeconds > 0 {
		t := time.NewTicker(time.Duration(s.cfg.Search.RebuildIntervalSeconds) * time.Second)
		defer t.Stop()
		rebuildC = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanupC:
			deleted, err := s.cache.Cleanup(ctx)
			if err != nil {
				s.logger.Warn("cache cleanup failed", zap.Error(err))
			} else if deleted > 0 {
				s.logger.Info("cache cleanup", zap.Int64("deleted", deleted))
			}
		case <-rebuildC:
			if err := s.engine.RebuildStale(ctx); err != nil {
				s.logger.Warn("stale index rebuild failed", zap.Error(err))
			}
		}
	}
}
