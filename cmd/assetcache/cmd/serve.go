package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rbmmusic/assetcache/internal/api"
	"github.com/rbmmusic/assetcache/internal/assetcache"
	"github.com/rbmmusic/assetcache/internal/config"
	"github.com/rbmmusic/assetcache/internal/slogutil"
	"github.com/rbmmusic/assetcache/internal/warming"
)

const shutdownTimeout = 10 * time.Second

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the asset cache HTTP API",
		Long:  `Start the asset cache HTTP API and the optional background warming job using configuration from YAML file.`,
		RunE:  runServe,
	}

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load configuration first (using default logger for config loading errors)
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		slog.Default().Error("failed to load config", "err", err)
		return err
	}

	logger, leveler := slogutil.SetupLogRotation(cfg.Log, assetcache.LogKeyHook())
	slog.SetDefault(logger)

	logger.Info("Starting assetcache with log rotation configured",
		"log_file", cfg.Log.File,
		"log_level", cfg.Log.Level,
		"max_size_mb", cfg.Log.MaxSize,
		"max_age_days", cfg.Log.MaxAge,
		"max_backups", cfg.Log.MaxBackups,
		"compress", cfg.Log.Compress)

	configManager := config.NewManager(cfg, configFile)
	configManager.OnConfigChange(slogutil.LevelUpdater(leveler))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sys, err := setupCache(cfg, logger, reg)
	if err != nil {
		logger.Error("failed to set up cache", "err", err)
		return err
	}
	defer func() {
		_ = sys.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialization runs in the background; requests arriving before it
	// completes still work against the disk.
	go func() {
		if err := sys.cache.Initialize(ctx); err != nil {
			logger.Warn("Cache initialization failed, continuing without index", "err", err)
		}
	}()

	worker := warming.NewWorker(sys.cache, configManager.GetConfigGetter(), logger)
	if err := worker.Start(ctx); err != nil {
		logger.Error("Failed to start warming worker", "error", err)
	}

	app := createFiberApp(cfg, logger)
	apiServer := api.NewServer(&api.Config{Prefix: cfg.API.Prefix}, sys.cache, reg, logger)
	apiServer.SetupRoutes(app)
	app.Get("/live", handleLive)

	addr := fmt.Sprintf(":%d", cfg.API.Port)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Listen(addr)
	}()

	logger.Info("Asset cache API listening", "addr", addr, "prefix", cfg.API.Prefix)

	waitForShutdown(ctx, configManager, serverErr, logger)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()

	worker.Stop(stopCtx)

	if err := app.ShutdownWithContext(stopCtx); err != nil {
		logger.Error("Failed to shut down API server", "error", err)
	}

	logger.Info("assetcache shutting down gracefully")
	return nil
}

// waitForShutdown blocks until SIGINT/SIGTERM or a server error. SIGHUP
// reloads the config file.
func waitForShutdown(ctx context.Context, configManager *config.Manager, serverErr <-chan error, logger *slog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-serverErr:
			if err != nil {
				logger.Error("API server error", "err", err)
			}
			return
		case sig := <-sigChan:
			if sig != syscall.SIGHUP {
				logger.Info("Received signal", "signal", sig.String())
				return
			}
			if err := configManager.ReloadConfig(); err != nil {
				logger.Error("Failed to reload config", "err", err)
			} else {
				logger.Info("Configuration reloaded")
			}
		}
	}
}

// handleLive is a lightweight liveness check for container health probes.
func handleLive(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
