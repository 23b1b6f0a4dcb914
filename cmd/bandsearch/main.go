// Package main is the bandsearch CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/cache"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/cli"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/config"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/ingest"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/keyword"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/models"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/search"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/server"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/internal/storage"
	"github.com/Robby2D2/big-flavor-band-agent-sub001/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/bandsearch/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence (for development), so running from
// the project dir picks up the project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "cleanup":
		runCleanup()
	case "version", "--version", "-v":
		fmt.Printf("bandsearch version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath, storage.Dimensions{
		Combined: cfg.Embedding.CombinedDimensions,
		Deep:     cfg.Embedding.DeepDimensions,
		Text:     cfg.Embedding.TextDimensions,
	})
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	resultCache, err := cache.NewSQLiteCache(store.DB())
	if err != nil {
		logger.Fatal("failed to initialize result cache", zap.Error(err))
	}

	kw, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		logger.Fatal("failed to open keyword index", zap.Error(err))
	}
	defer kw.Close()

	engine := search.NewEngine(store, resultCache, &cfg.Search, &cfg.Cache, cfg.Embedding, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.RebuildAll(ctx); err != nil {
		logger.Fatal("initial index build failed", zap.Error(err))
	}

	ingestor := ingest.NewIngestor(store, kw, engine, logger)
	if cfg.Ingest.ImportDir != "" {
		if err := os.MkdirAll(cfg.Ingest.ImportDir, 0755); err != nil {
			logger.Fatal("failed to create import dir", zap.Error(err))
		}
		watcher := ingest.NewWatcher(cfg.Ingest.ImportDir, func(path string) {
			if err := ingestor.IngestFile(ctx, path); err != nil {
				logger.Warn("dump file ingest failed", zap.String("path", path), zap.Error(err))
			}
		}, logger)
		if err := watcher.Start(ctx); err != nil {
			logger.Fatal("failed to start import watcher", zap.Error(err))
		}
		defer watcher.Stop()
	}

	srv := server.NewServer(engine, ingestor, store, resultCache, kw, cfg, logger)
	go srv.RunMaintenance(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutting down")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Stop(shutdownCtx)
	}()

	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 10, "maximum number of results")
	jsonOut := fs.Bool("json", false, "output JSON instead of text")
	_ = fs.Parse(os.Args[2:])

	query := strings.Join(fs.Args(), " ")
	if query == "" {
		fmt.Println("Usage: bandsearch search [flags] <query>")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	body, err := json.Marshal(&models.KeywordQuery{Query: query, Limit: *limit})
	if err != nil {
		fmt.Printf("Failed to encode query: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.Post(apiURL(cfg, "/api/v1/search/keyword"), "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("Search request failed (is the server running?): %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var response models.KeywordResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		fmt.Printf("Failed to decode response: %v\n", err)
		os.Exit(1)
	}
	format := cli.OutputText
	if *jsonOut {
		format = cli.OutputJSON
	}
	_ = cli.WriteKeywordResults(os.Stdout, &response, format)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	jsonOut := fs.Bool("json", false, "output JSON instead of text")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.Get(apiURL(cfg, "/api/v1/status"))
	if err != nil {
		fmt.Printf("Status request failed (is the server running?): %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Printf("Failed to decode response: %v\n", err)
		os.Exit(1)
	}
	format := cli.OutputText
	if *jsonOut {
		format = cli.OutputJSON
	}
	_ = cli.WriteStatus(os.Stdout, status, format)
}

func runCleanup() {
	fs := flag.NewFlagSet("cleanup", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.Post(apiURL(cfg, "/api/v1/cache/cleanup"), "application/json", nil)
	if err != nil {
		fmt.Printf("Cleanup request failed (is the server running?): %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var result map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		fmt.Printf("Failed to decode response: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Deleted %d expired cache entries\n", result["deleted"])
}

func apiURL(cfg *config.Config, path string) string {
	return fmt.Sprintf("http://%s:%d%s", cfg.Server.Host, cfg.Server.Port, path)
}

func printUsage() {
	fmt.Println(`bandsearch - multi-modal song catalog search

Usage:
  bandsearch server  [-config path] [-debug]     start the search server
  bandsearch search  [-config path] [-json] [-limit n] <query>
                                                 keyword search the catalog
  bandsearch status  [-config path] [-json]      show catalog and index status
  bandsearch cleanup [-config path]              delete expired cache entries
  bandsearch version                             print version`)
}
