// Package config provides configuration loading and structs for the band search server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig holds paths for the database and the keyword index.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// EmbeddingConfig fixes the vector dimensions for each embedding field.
// The values track the external feature-extraction and text-embedding models;
// changing a model means changing these together with a full re-ingest.
type EmbeddingConfig struct {
	CombinedDimensions int `yaml:"combined_dimensions"`
	DeepDimensions     int `yaml:"deep_dimensions"`
	TextDimensions     int `yaml:"text_dimensions"`
}

// SearchConfig holds search, ranking, and vector index settings.
type SearchConfig struct {
	DefaultK       int     `yaml:"default_k"`
	MaxK           int     `yaml:"max_k"`
	AudioWeight    float64 `yaml:"audio_weight"`
	TextWeight     float64 `yaml:"text_weight"`
	BucketCount    int     `yaml:"bucket_count"`
	NProbe         int     `yaml:"nprobe"`
	TopKCandidates int     `yaml:"top_k_candidates"`
	// RebuildIntervalSeconds is how often stale vector indexes are rebuilt
	// in server mode. 0 disables periodic rebuilds.
	RebuildIntervalSeconds int `yaml:"rebuild_interval_seconds"`
}

// ClampK bounds a requested result count to the configured limits: unset
// counts fall back to DefaultK, oversized ones are capped at MaxK. The
// wire-level bounds in the models package still apply on top.
func (c *SearchConfig) ClampK(k int) int {
	if k <= 0 && c.DefaultK > 0 {
		k = c.DefaultK
	}
	if c.MaxK > 0 && k > c.MaxK {
		k = c.MaxK
	}
	return k
}

// CacheConfig holds result cache TTLs per query type, in seconds.
// A negative TTL means entries of that query type never expire.
type CacheConfig struct {
	AudioTTLSeconds  int `yaml:"audio_ttl_seconds"`
	TextTTLSeconds   int `yaml:"text_ttl_seconds"`
	HybridTTLSeconds int `yaml:"hybrid_ttl_seconds"`
	TempoTTLSeconds  int `yaml:"tempo_ttl_seconds"`
	// CleanupIntervalSeconds is how often expired entries are purged in
	// server mode. 0 disables the periodic cleanup.
	CleanupIntervalSeconds int `yaml:"cleanup_interval_seconds"`
}

// IngestConfig holds the embedding import directory watch settings.
type IngestConfig struct {
	ImportDir string `yaml:"import_dir"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	if cfg.Ingest.ImportDir != "" {
		cfg.Ingest.ImportDir = expandPath(cfg.Ingest.ImportDir, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
