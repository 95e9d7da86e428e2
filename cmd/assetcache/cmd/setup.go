package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
	fLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/rbmmusic/assetcache/internal/assetcache"
	"github.com/rbmmusic/assetcache/internal/config"
	"github.com/rbmmusic/assetcache/internal/kvstore"
	"github.com/rbmmusic/assetcache/internal/pathutil"
	"github.com/rbmmusic/assetcache/internal/slogutil"
)

// cacheSystem bundles the cache with the resources that must be closed.
type cacheSystem struct {
	cache *assetcache.Manager
	store kvstore.Store
}

func (s *cacheSystem) Close() error {
	return s.store.Close()
}

// loadConfig loads the config file and builds the logger for one-shot
// commands. Their logs go to stderr so stdout carries only the result.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, _ := slogutil.NewLogger(os.Stderr, cfg.Log.Level, assetcache.LogKeyHook())
	slog.SetDefault(logger)

	return cfg, logger, nil
}

// checkStoragePaths verifies the content directory and store location are writable.
func checkStoragePaths(cfg *config.Config) error {
	fs := afero.NewOsFs()

	if err := pathutil.CheckDirectoryWritable(fs, cfg.Cache.Dir); err != nil {
		return fmt.Errorf("cache directory: %w", err)
	}

	switch cfg.MetadataStore.Backend {
	case config.BackendFile:
		if err := pathutil.CheckDirectoryWritable(fs, cfg.MetadataStore.FileDir); err != nil {
			return fmt.Errorf("metadata store directory: %w", err)
		}
	case config.BackendSQLite, "":
		if err := pathutil.CheckParentWritable(fs, cfg.MetadataStore.SQLitePath); err != nil {
			return fmt.Errorf("metadata store database: %w", err)
		}
	}

	return nil
}

// setupCache opens the metadata store and builds the cache manager.
// A nil registerer keeps the metrics unregistered.
func setupCache(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*cacheSystem, error) {
	if err := checkStoragePaths(cfg); err != nil {
		return nil, err
	}

	store, err := kvstore.New(cfg.MetadataStore)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	cache, err := assetcache.NewFromConfig(cfg, store, logger, assetcache.NewMetrics(reg))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info("Asset cache configured",
		"dir", cfg.Cache.Dir,
		"backend", cfg.MetadataStore.Backend,
		"cdn", cfg.CDN.BaseURL)

	return &cacheSystem{cache: cache, store: store}, nil
}

// createFiberApp creates and configures the Fiber application
func createFiberApp(cfg *config.Config, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "assetcache",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			logger.Error("Fiber error", "path", c.Path(), "method", c.Method(), "error", err)
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Request logging only in debug mode
	if cfg.Log.Level == "debug" {
		app.Use(fLogger.New())
	}

	return app
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
