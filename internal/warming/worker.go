// Package warming keeps the asset cache warm in the background: after a start
// delay it fetches the catalog documents and preloads their images, then
// repeats on a cron schedule.
package warming

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rbmmusic/assetcache/internal/assetcache"
	"github.com/rbmmusic/assetcache/internal/config"
)

// Cache is the part of the asset cache the worker drives.
type Cache interface {
	CacheJSON(ctx context.Context, url string, force bool) (assetcache.JSONResult, error)
	PreloadImages(ctx context.Context, urls []string, batchSize int) []assetcache.PreloadResult
	FetchVersionManifest(ctx context.Context) (assetcache.VersionManifest, error)
}

// Report summarizes one warm-up run.
type Report struct {
	Catalogs        int `json:"catalogs"`
	CatalogFailures int `json:"catalog_failures"`
	Images          int `json:"images"`
	ImageFailures   int `json:"image_failures"`
}

type Worker struct {
	cache        Cache
	configGetter config.ConfigGetter
	logger       *slog.Logger

	scheduler     *cron.Cron
	workerCtx     context.Context
	workerCancel  context.CancelFunc
	workerWg      sync.WaitGroup
	workerMu      sync.Mutex
	workerRunning bool

	runMu sync.Mutex
	runs  atomic.Int64
}

func NewWorker(cache Cache, configGetter config.ConfigGetter, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		cache:        cache,
		configGetter: configGetter,
		logger:       logger.With("component", "warming"),
	}
}

// Start launches the worker when warming is enabled. Calling it again while
// running is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.workerMu.Lock()
	defer w.workerMu.Unlock()

	if w.workerRunning {
		return nil
	}

	cfg := w.configGetter()
	if !cfg.GetWarmingEnabled() {
		return nil
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(w.logger.Handler(), slog.LevelDebug))
	scheduler := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	w.workerCtx, w.workerCancel = context.WithCancel(ctx)

	if _, err := scheduler.AddFunc(cfg.Warming.Schedule, func() { w.RunOnce(w.workerCtx) }); err != nil {
		w.workerCancel()
		return fmt.Errorf("invalid warming schedule %q: %w", cfg.Warming.Schedule, err)
	}

	w.scheduler = scheduler
	w.workerRunning = true

	w.workerWg.Add(1)
	go w.runWorker(cfg.GetWarmingStartDelay())

	w.logger.InfoContext(ctx, "Cache warming worker started",
		"start_delay", cfg.GetWarmingStartDelay(),
		"schedule", cfg.Warming.Schedule,
		"catalogs", len(cfg.Warming.CatalogURLs),
		"images", len(cfg.Warming.ImageURLs))
	return nil
}

// Stop cancels in-flight work and waits for the scheduler to drain.
func (w *Worker) Stop(ctx context.Context) {
	w.workerMu.Lock()
	defer w.workerMu.Unlock()

	if !w.workerRunning {
		return
	}

	w.workerCancel()
	w.workerWg.Wait()
	stopped := w.scheduler.Stop()

	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}

	w.workerRunning = false
	w.logger.InfoContext(ctx, "Cache warming worker stopped")
}

// Runs returns how many warm-up runs have completed.
func (w *Worker) Runs() int64 {
	return w.runs.Load()
}

func (w *Worker) runWorker(startDelay time.Duration) {
	defer w.workerWg.Done()

	// First run after the UI-facing work has had a head start
	select {
	case <-time.After(startDelay):
		w.RunOnce(w.workerCtx)
	case <-w.workerCtx.Done():
		return
	}

	if w.workerCtx.Err() == nil {
		w.scheduler.Start()
	}
}

// RunOnce refreshes the manifest, revalidates every catalog document and
// preloads the configured images. Overlapping calls are skipped.
func (w *Worker) RunOnce(ctx context.Context) Report {
	var report Report

	if !w.runMu.TryLock() {
		w.logger.DebugContext(ctx, "Warm-up already running, skipping")
		return report
	}
	defer w.runMu.Unlock()

	cfg := w.configGetter()
	start := time.Now()

	// Errors are logged by the cache; a stale manifest is fine here
	_, _ = w.cache.FetchVersionManifest(ctx)

	for _, ref := range cfg.Warming.CatalogURLs {
		if ctx.Err() != nil {
			return report
		}

		report.Catalogs++
		if _, err := w.cache.CacheJSON(ctx, cfg.ResolveURL(ref), false); err != nil {
			report.CatalogFailures++
		}
	}

	if len(cfg.Warming.ImageURLs) > 0 && ctx.Err() == nil {
		urls := make([]string, 0, len(cfg.Warming.ImageURLs))
		for _, ref := range cfg.Warming.ImageURLs {
			urls = append(urls, cfg.ResolveURL(ref))
		}

		for _, r := range w.cache.PreloadImages(ctx, urls, cfg.GetPreloadBatchSize()) {
			report.Images++
			if !r.Success {
				report.ImageFailures++
			}
		}
	}

	w.runs.Add(1)
	w.logger.InfoContext(ctx, "Cache warm-up finished",
		"catalogs", report.Catalogs,
		"catalog_failures", report.CatalogFailures,
		"images", report.Images,
		"image_failures", report.ImageFailures,
		"duration", time.Since(start))

	return report
}
