package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/cache"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/config"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/storage"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/vector"
)

// ErrIndexNotBuilt is returned when a search hits a vector collection whose
// index was never built. Distinct from zero matches, which is a normal empty
// result.
var ErrIndexNotBuilt = errors.New("vector index not built")

// ErrUnknownCollection is returned when a caller names a vector collection
// outside the fixed set. The request is malformed, not a server fault.
var ErrUnknownCollection = errors.New("unknown vector collection")

// Query types, used for cache fingerprints and TTL policy.
const (
	QueryTypeAudio  = "audio"
	QueryTypeText   = "text"
	QueryTypeHybrid = "hybrid"
	QueryTypeTempo  = "tempo"
)

// Vector collection names.
const (
	CollectionAudioCombined = "audio_combined"
	CollectionAudioDeep     = "audio_deep"
)

// TextCollection names the vector collection for a text content type.
func TextCollection(ct models.ContentType) string {
	return "text_" + string(ct)
}

// Engine is the query planner: it canonicalizes queries, consults the result
// cache, dispatches to the vector indexes and rankers on a miss, and stores
// the materialized result before returning it.
type Engine struct {
	store  storage.Store
	cache  cache.ResultCache
	cfg    *config.SearchConfig
	ttls   *config.CacheConfig
	dims   config.EmbeddingConfig
	logger *zap.Logger

	// indexes maps collection name to the active index snapshot. Rebuilds
	// construct a new index outside the lock and swap the map entry under it,
	// so queries keep reading the previous snapshot while a rebuild runs.
	mu      sync.RWMutex
	indexes map[string]*vector.BucketIndex
	stale   map[string]bool
}

// NewEngine creates a query planner with the given dependencies. No indexes
// exist until the first Rebuild.
func NewEngine(store storage.Store, resultCache cache.ResultCache, searchCfg *config.SearchConfig, cacheCfg *config.CacheConfig, dims config.EmbeddingConfig, logger *zap.Logger) *Engine {
	return &Engine{
		store:   store,
		cache:   resultCache,
		cfg:     searchCfg,
		ttls:    cacheCfg,
		dims:    dims,
		logger:  logger,
		indexes: make(map[string]*vector.BucketIndex),
		stale:   make(map[string]bool),
	}
}

// Collections lists every vector collection the engine maintains.
func Collections() []string {
	out := []string{CollectionAudioCombined, CollectionAudioDeep}
	for _, ct := range models.AllContentTypes() {
		out = append(out, TextCollection(ct))
	}
	return out
}

// MarkStale flags collections as needing a rebuild after a store mutation.
func (e *Engine) MarkStale(collections ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range collections {
		e.stale[c] = true
	}
}

// MarkAudioStale flags both audio collections stale.
func (e *Engine) MarkAudioStale() {
	e.MarkStale(CollectionAudioCombined, CollectionAudioDeep)
}

// MarkTextStale flags the text collection for one content type stale.
func (e *Engine) MarkTextStale(ct models.ContentType) {
	e.MarkStale(TextCollection(ct))
}

// StaleCollections returns the collections currently flagged stale.
func (e *Engine) StaleCollections() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []string
	for c, s := range e.stale {
		if s {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// RebuildAll rebuilds every collection from a fresh store snapshot.
func (e *Engine) RebuildAll(ctx context.Context) error {
	for _, c := range Collections() {
		if _, err := e.Rebuild(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// RebuildStale rebuilds only the collections flagged stale.
func (e *Engine) RebuildStale(ctx context.Context) error {
	for _, c := range e.StaleCollections() {
		if _, err := e.Rebuild(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Rebuild snapshots the store and rebuilds one collection, returning the
// build ID that also tags the rebuild's log lines. Queries continue against
// the previous index until the swap; the swap is atomic under the engine
// lock so no query observes a partially built index.
func (e *Engine) Rebuild(ctx context.Context, collection string) (string, error) {
	buildID := uuid.NewString()
	entries, dimensions, err := e.snapshot(ctx, collection)
	if err != nil {
		return "", fmt.Errorf("snapshot %s: %w", collection, err)
	}
	idx, err := vector.Build(entries, dimensions, vector.Params{
		BucketCount: e.cfg.BucketCount,
		NProbe:      e.cfg.NProbe,
	})
	if err != nil {
		return "", fmt.Errorf("build %s: %w", collection, err)
	}
	e.mu.Lock()
	e.indexes[collection] = idx
	e.stale[collection] = false
	e.mu.Unlock()
	e.logger.Info("index rebuilt",
		zap.String("collection", collection),
		zap.String("build_id", buildID),
		zap.Int("size", idx.Size()),
	)
	return buildID, nil
}

// snapshot collects the (id, vector) pairs and dimension for one collection.
func (e *Engine) snapshot(ctx context.Context, collection string) ([]vector.Entry, int, error) {
	switch collection {
	case CollectionAudioCombined, CollectionAudioDeep:
		audio, err := e.store.GetAllAudio(ctx)
		if err != nil {
			return nil, 0, err
		}
		dimensions := e.dims.CombinedDimensions
		deep := collection == CollectionAudioDeep
		if deep {
			dimensions = e.dims.DeepDimensions
		}
		entries := make([]vector.Entry, 0, len(audio))
		seen := make(map[int64]bool, len(audio))
		for _, emb := range audio {
			// One vector per song; rows are ordered by song then path.
			if seen[emb.SongID] {
				continue
			}
			seen[emb.SongID] = true
			vec := emb.Combined
			if deep {
				vec = emb.Deep
			}
			entries = append(entries, vector.Entry{ID: emb.SongID, Vector: vec})
		}
		return entries, dimensions, nil
	default:
		ct, ok := contentTypeOf(collection)
		if !ok {
			return nil, 0, fmt.Errorf("%s: %w", collection, ErrUnknownCollection)
		}
		texts, err := e.store.GetTextByTypes(ctx, []models.ContentType{ct})
		if err != nil {
			return nil, 0, err
		}
		entries := make([]vector.Entry, 0, len(texts))
		for _, emb := range texts {
			entries = append(entries, vector.Entry{ID: emb.SongID, Vector: emb.Vector})
		}
		return entries, e.dims.TextDimensions, nil
	}
}

func contentTypeOf(collection string) (models.ContentType, bool) {
	if !strings.HasPrefix(collection, "text_") {
		return "", false
	}
	return models.ParseContentType(strings.TrimPrefix(collection, "text_"))
}

func (e *Engine) getIndex(collection string) (*vector.BucketIndex, error) {
	e.mu.RLock()
	idx := e.indexes[collection]
	e.mu.RUnlock()
	if idx == nil {
		return nil, fmt.Errorf("collection %s: %w", collection, ErrIndexNotBuilt)
	}
	return idx, nil
}

// IndexSizes returns the size of each built index by collection name.
func (e *Engine) IndexSizes() map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]int, len(e.indexes))
	for c, idx := range e.indexes {
		out[c] = idx.Size()
	}
	return out
}

// SearchByAudio runs audio nearest-neighbor search over the combined (or,
// with q.Deep, the deep-only) collection.
func (e *Engine) SearchByAudio(ctx context.Context, q *models.AudioQuery) (*models.AudioResponse, error) {
	start := time.Now()
	q.K = e.cfg.ClampK(q.K)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	collection := CollectionAudioCombined
	if q.Deep {
		collection = CollectionAudioDeep
	}
	hash := cache.Fingerprint(QueryTypeAudio, map[string]string{
		"collection": collection,
		"probe":      cache.CanonicalVector(q.Probe),
		"k":          strconv.Itoa(q.K),
		"threshold":  cache.CanonicalFloat(q.SimilarityThreshold),
	})
	resp := &models.AudioResponse{}
	if e.cacheLookup(ctx, hash, &resp.Results) {
		resp.Total = len(resp.Results)
		resp.QueryTime = time.Since(start).Milliseconds()
		resp.Cached = true
		return resp, nil
	}

	idx, err := e.getIndex(collection)
	if err != nil {
		return nil, err
	}
	hits, err := idx.Search(q.Probe, q.K, q.SimilarityThreshold)
	if err != nil {
		return nil, err
	}

	songs, err := e.songsFor(ctx, hitIDs(hits))
	if err != nil {
		return nil, err
	}
	resp.Results = make([]*models.AudioResult, 0, len(hits))
	for _, h := range hits {
		r := &models.AudioResult{SongID: h.ID, Similarity: h.Similarity, Song: songs[h.ID]}
		if emb, err := e.store.GetAudioBySong(ctx, h.ID); err == nil {
			r.AudioPath = emb.AudioPath
			r.Features = emb.Features
		}
		resp.Results = append(resp.Results, r)
	}
	resp.Total = len(resp.Results)
	resp.QueryTime = time.Since(start).Milliseconds()

	queryText := fmt.Sprintf("audio k=%d threshold=%s collection=%s",
		q.K, cache.CanonicalFloat(q.SimilarityThreshold), collection)
	e.cacheStore(ctx, hash, queryText, QueryTypeAudio, resp.Results)
	return resp, nil
}

// SearchByText runs text nearest-neighbor search restricted to the requested
// content types. Unknown content types act as a filter with no matches: they
// are dropped, and an all-unknown set yields an empty result, not an error.
func (e *Engine) SearchByText(ctx context.Context, q *models.TextQuery) (*models.TextResponse, error) {
	start := time.Now()
	q.K = e.cfg.ClampK(q.K)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	types := models.FilterContentTypes(q.ContentTypes)
	if len(q.ContentTypes) == 0 {
		types = models.AllContentTypes()
	}
	resp := &models.TextResponse{Results: []*models.TextResult{}}
	if len(types) == 0 {
		resp.QueryTime = time.Since(start).Milliseconds()
		return resp, nil
	}

	typeNames := make([]string, len(types))
	for i, ct := range types {
		typeNames[i] = string(ct)
	}
	sort.Strings(typeNames)
	hash := cache.Fingerprint(QueryTypeText, map[string]string{
		"probe": cache.CanonicalVector(q.Probe),
		"k":     strconv.Itoa(q.K),
		"types": strings.Join(typeNames, ","),
	})
	if e.cacheLookup(ctx, hash, &resp.Results) {
		resp.Total = len(resp.Results)
		resp.QueryTime = time.Since(start).Milliseconds()
		resp.Cached = true
		return resp, nil
	}

	hits, err := e.textHits(q.Probe, types, q.K)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		r := &models.TextResult{SongID: h.songID, ContentType: h.contentType, Similarity: h.similarity}
		if emb, err := e.store.GetText(ctx, h.songID, h.contentType); err == nil {
			r.Content = emb.Content
		}
		resp.Results = append(resp.Results, r)
	}
	resp.Total = len(resp.Results)
	resp.QueryTime = time.Since(start).Milliseconds()

	queryText := fmt.Sprintf("text k=%d types=%s", q.K, strings.Join(typeNames, ","))
	e.cacheStore(ctx, hash, queryText, QueryTypeText, resp.Results)
	return resp, nil
}

type textHit struct {
	songID      int64
	contentType models.ContentType
	similarity  float64
}

// textHits searches each requested content type's collection and merges the
// row-level hits, ordered by similarity descending with (song ID, content
// type) ascending tie-breaks, limited to k.
func (e *Engine) textHits(probe []float32, types []models.ContentType, k int) ([]textHit, error) {
	var hits []textHit
	for _, ct := range types {
		idx, err := e.getIndex(TextCollection(ct))
		if err != nil {
			return nil, err
		}
		results, err := idx.Search(probe, k, vector.NoThreshold)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			hits = append(hits, textHit{songID: r.ID, contentType: ct, similarity: r.Similarity})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].similarity != hits[j].similarity {
			return hits[i].similarity > hits[j].similarity
		}
		if hits[i].songID != hits[j].songID {
			return hits[i].songID < hits[j].songID
		}
		return hits[i].contentType < hits[j].contentType
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchHybrid fuses audio and text similarity with explicit weights over the
// union of each modality's top candidates.
func (e *Engine) SearchHybrid(ctx context.Context, q *models.HybridQuery) (*models.HybridResponse, error) {
	start := time.Now()
	q.K = e.cfg.ClampK(q.K)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	audioWeight := q.AudioWeight
	textWeight := q.TextWeight
	if audioWeight == 0 && textWeight == 0 {
		audioWeight = e.cfg.AudioWeight
		textWeight = e.cfg.TextWeight
	}
	types := models.FilterContentTypes(q.ContentTypes)
	if len(q.ContentTypes) == 0 {
		types = models.AllContentTypes()
	}
	typeNames := make([]string, len(types))
	for i, ct := range types {
		typeNames[i] = string(ct)
	}
	sort.Strings(typeNames)

	hash := cache.Fingerprint(QueryTypeHybrid, map[string]string{
		"audio_probe":  cache.CanonicalVector(q.AudioProbe),
		"text_probe":   cache.CanonicalVector(q.TextProbe),
		"audio_weight": cache.CanonicalFloat(audioWeight),
		"text_weight":  cache.CanonicalFloat(textWeight),
		"k":            strconv.Itoa(q.K),
		"types":        strings.Join(typeNames, ","),
	})
	resp := &models.HybridResponse{}
	if e.cacheLookup(ctx, hash, &resp.Results) {
		resp.Total = len(resp.Results)
		resp.QueryTime = time.Since(start).Milliseconds()
		resp.Cached = true
		return resp, nil
	}

	audioIdx, err := e.getIndex(CollectionAudioCombined)
	if err != nil {
		return nil, err
	}
	audioHits, err := audioIdx.Search(q.AudioProbe, e.cfg.TopKCandidates, vector.NoThreshold)
	if err != nil {
		return nil, err
	}
	audioScores := make(map[int64]float64, len(audioHits))
	for _, h := range audioHits {
		audioScores[h.ID] = h.Similarity
	}

	var rowHits []vector.Result
	for _, ct := range types {
		idx, err := e.getIndex(TextCollection(ct))
		if err != nil {
			return nil, err
		}
		results, err := idx.Search(q.TextProbe, e.cfg.TopKCandidates, vector.NoThreshold)
		if err != nil {
			return nil, err
		}
		rowHits = append(rowHits, results...)
	}
	textScores := AggregateTextBySong(rowHits)

	fused := Fuse(audioScores, textScores, audioWeight, textWeight)
	if q.K < len(fused) {
		fused = fused[:q.K]
	}

	ids := make([]int64, len(fused))
	for i, r := range fused {
		ids[i] = r.SongID
	}
	songs, err := e.songsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range fused {
		r.Song = songs[r.SongID]
	}

	resp.Results = fused
	resp.Total = len(fused)
	resp.QueryTime = time.Since(start).Milliseconds()

	queryText := fmt.Sprintf("hybrid k=%d weights=%s/%s types=%s",
		q.K, cache.CanonicalFloat(audioWeight), cache.CanonicalFloat(textWeight),
		strings.Join(typeNames, ","))
	e.cacheStore(ctx, hash, queryText, QueryTypeHybrid, resp.Results)
	return resp, nil
}

// SearchByTempo selects songs inside the tempo window and orders them by
// tempo deviation, or by the combined tempo+audio rank key when a probe is
// supplied. The window is inclusive on both ends.
func (e *Engine) SearchByTempo(ctx context.Context, q *models.TempoQuery) (*models.TempoResponse, error) {
	start := time.Now()
	q.K = e.cfg.ClampK(q.K)
	if err := q.Validate(); err != nil {
		return nil, err
	}
	params := map[string]string{
		"target":    cache.CanonicalFloat(q.TargetTempo),
		"tolerance": cache.CanonicalFloat(q.Tolerance),
		"k":         strconv.Itoa(q.K),
	}
	if len(q.AudioProbe) > 0 {
		params["probe"] = cache.CanonicalVector(q.AudioProbe)
	}
	hash := cache.Fingerprint(QueryTypeTempo, params)
	resp := &models.TempoResponse{}
	if e.cacheLookup(ctx, hash, &resp.Results) {
		resp.Total = len(resp.Results)
		resp.QueryTime = time.Since(start).Milliseconds()
		resp.Cached = true
		return resp, nil
	}

	songs, err := e.store.ListSongsByTempo(ctx, q.TargetTempo-q.Tolerance, q.TargetTempo+q.Tolerance)
	if err != nil {
		return nil, err
	}
	if len(q.AudioProbe) == 0 {
		resp.Results = RankByTempoDiff(songs, q.TargetTempo, q.K)
	} else {
		audio, err := e.store.GetAllAudio(ctx)
		if err != nil {
			return nil, err
		}
		vecs := make(map[int64][]float32, len(audio))
		for _, emb := range audio {
			if _, ok := vecs[emb.SongID]; !ok {
				vecs[emb.SongID] = emb.Combined
			}
		}
		resp.Results, err = RankByTempoAndAudio(songs, vecs, q.AudioProbe, q.TargetTempo, q.Tolerance, q.K)
		if err != nil {
			return nil, err
		}
	}
	resp.Total = len(resp.Results)
	resp.QueryTime = time.Since(start).Milliseconds()

	queryText := fmt.Sprintf("tempo target=%s tolerance=%s k=%d",
		params["target"], params["tolerance"], q.K)
	e.cacheStore(ctx, hash, queryText, QueryTypeTempo, resp.Results)
	return resp, nil
}

// cacheLookup fills dest from the cache when present. Cache failures are
// logged and treated as misses; the cache never blocks a query.
func (e *Engine) cacheLookup(ctx context.Context, hash string, dest interface{}) bool {
	entry, ok, err := e.cache.Lookup(ctx, hash)
	if err != nil {
		e.logger.Warn("cache lookup failed", zap.String("hash", hash), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := unmarshalResults(entry.Results, dest); err != nil {
		e.logger.Warn("cache entry unreadable", zap.String("hash", hash), zap.Error(err))
		return false
	}
	return true
}

func (e *Engine) cacheStore(ctx context.Context, hash, queryText, queryType string, results interface{}) {
	if err := e.cache.Store(ctx, hash, queryText, queryType, results, e.ttlFor(queryType)); err != nil {
		e.logger.Warn("cache store failed", zap.String("hash", hash), zap.Error(err))
	}
}

// ttlFor maps a query type to its configured TTL. Negative config values
// mean no expiry.
func (e *Engine) ttlFor(queryType string) *time.Duration {
	var seconds int
	switch queryType {
	case QueryTypeAudio:
		seconds = e.ttls.AudioTTLSeconds
	case QueryTypeText:
		seconds = e.ttls.TextTTLSeconds
	case QueryTypeHybrid:
		seconds = e.ttls.HybridTTLSeconds
	case QueryTypeTempo:
		seconds = e.ttls.TempoTTLSeconds
	}
	if seconds < 0 {
		return nil
	}
	d := time.Duration(seconds) * time.Second
	return &d
}

func (e *Engine) songsFor(ctx context.Context, ids []int64) (map[int64]*models.Song, error) {
	return e.store.GetSongs(ctx, ids)
}

func unmarshalResults(data json.RawMessage, dest interface{}) error {
	return json.Unmarshal(data, dest)
}

func hitIDs(hits []vector.Result) []int64 {
	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}
