package config

// Default embedding dimensions: 37 scalar audio features concatenated with a
// 512-dimension deep embedding (549 combined), and 1536 for the text
// embedding model.
const (
	DefaultCombinedDimensions = 549
	DefaultDeepDimensions     = 512
	DefaultTextDimensions     = 1536
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/bandsearch/data/db/catalog.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/bandsearch/data/indices/bleve"
	}
	if cfg.Embedding.CombinedDimensions == 0 {
		cfg.Embedding.CombinedDimensions = DefaultCombinedDimensions
	}
	if cfg.Embedding.DeepDimensions == 0 {
		cfg.Embedding.DeepDimensions = DefaultDeepDimensions
	}
	if cfg.Embedding.TextDimensions == 0 {
		cfg.Embedding.TextDimensions = DefaultTextDimensions
	}
	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 10
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = 100
	}
	if cfg.Search.AudioWeight == 0 {
		cfg.Search.AudioWeight = 0.6
	}
	if cfg.Search.TextWeight == 0 {
		cfg.Search.TextWeight = 0.4
	}
	if cfg.Search.BucketCount == 0 {
		cfg.Search.BucketCount = 16
	}
	if cfg.Search.NProbe == 0 {
		cfg.Search.NProbe = 4
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 100
	}
	if cfg.Search.RebuildIntervalSeconds == 0 {
		cfg.Search.RebuildIntervalSeconds = 300
	}
	// Nearest-neighbor results go stale when the catalog changes; tempo
	// rarely does. Hence short TTLs for vector queries, a long one for tempo.
	if cfg.Cache.AudioTTLSeconds == 0 {
		cfg.Cache.AudioTTLSeconds = 900
	}
	if cfg.Cache.TextTTLSeconds == 0 {
		cfg.Cache.TextTTLSeconds = 900
	}
	if cfg.Cache.HybridTTLSeconds == 0 {
		cfg.Cache.HybridTTLSeconds = 900
	}
	if cfg.Cache.TempoTTLSeconds == 0 {
		cfg.Cache.TempoTTLSeconds = 86400
	}
	if cfg.Cache.CleanupIntervalSeconds == 0 {
		cfg.Cache.CleanupIntervalSeconds = 600
	}
}
