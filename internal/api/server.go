package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rbmmusic/assetcache/internal/assetcache"
)

// Config represents API server configuration
type Config struct {
	Prefix string // API path prefix (default: "/api")
}

// DefaultConfig returns default API configuration
func DefaultConfig() *Config {
	return &Config{
		Prefix: "/api",
	}
}

// Cache is the part of the asset cache the HTTP API drives.
type Cache interface {
	CacheImage(ctx context.Context, url string, force bool) (assetcache.ImageResult, error)
	CacheJSON(ctx context.Context, url string, force bool) (assetcache.JSONResult, error)
	CachedImagePathInstant(url string) (string, bool)
	PreloadImages(ctx context.Context, urls []string, batchSize int) []assetcache.PreloadResult
	ClearCache(ctx context.Context, key string) error
	Stats(ctx context.Context) assetcache.Stats
	CheckURL(ctx context.Context, url string) assetcache.URLCheck
	CheckInstant(urls []string) assetcache.InstantReport
	Ready() bool
	State() string
}

// Server represents the API server
type Server struct {
	config    *Config
	cache     Cache
	gatherer  prometheus.Gatherer
	logger    *slog.Logger
	startTime time.Time
}

// NewServer creates a new API server. A nil gatherer disables /metrics.
func NewServer(config *Config, cache Cache, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		config:    config,
		cache:     cache,
		gatherer:  gatherer,
		logger:    logger.With("component", "api"),
		startTime: time.Now(),
	}
}

// SetupRoutes registers all API routes on app under the configured prefix.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group(s.config.Prefix)

	images := api.Group("/images")
	images.Get("/", s.handleGetImage)
	images.Get("/instant", s.handleGetImageInstant)

	api.Get("/json", s.handleGetJSON)
	api.Post("/preload", s.handlePreload)
	api.Delete("/cache", s.handleClearCache)
	api.Get("/stats", s.handleGetStats)
	api.Get("/check", s.handleCheckURL)
	api.Post("/debug/instant", s.handleDebugInstant)

	api.Get("/system/health", s.handleGetSystemHealth)

	if s.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}
