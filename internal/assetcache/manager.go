// Package assetcache is an offline-first cache for CDN catalog JSON and
// cover-art images. A Manager keeps downloaded bytes in a flat content
// directory, provenance in a persisted metadata table and an in-memory index
// of cached images that answers lookups without I/O.
package assetcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/rbmmusic/assetcache/internal/config"
	"github.com/rbmmusic/assetcache/internal/httpclient"
	"github.com/rbmmusic/assetcache/internal/kvstore"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultMetadataKey          = "cache_metadata"
	DefaultVersionCheckInterval = 5 * time.Minute
	DefaultMaxAge               = 24 * time.Hour
	DefaultPreloadBatchSize     = 5
	DefaultPreloadBatchDelay    = 100 * time.Millisecond
	DefaultInitTimeout          = 30 * time.Second
)

// Options configures a Manager. Store and Dir are required.
type Options struct {
	Store       kvstore.Store
	Fs          afero.Fs
	Dir         string
	Fetcher     Fetcher
	ManifestURL string

	MetadataKey          string
	VersionCheckInterval time.Duration
	ManifestTimeout      time.Duration
	MaxAge               time.Duration
	PreloadBatchSize     int
	PreloadBatchDelay    time.Duration
	JSONMemoryEntries    int
	InitTimeout          time.Duration

	Logger  *slog.Logger
	Metrics *Metrics
	Now     func() time.Time
}

type initState int

const (
	stateUninitialized initState = iota
	stateInitializing
	stateReady
	stateFailed
)

func (s initState) String() string {
	switch s {
	case stateInitializing:
		return "initializing"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	default:
		return "uninitialized"
	}
}

// initCall is the shared future for an in-flight initialization.
type initCall struct {
	done chan struct{}
	err  error
}

// Manager is the asset cache. It is safe for concurrent use and is meant to be
// constructed once per process and passed to whoever needs it.
type Manager struct {
	content  *ContentStore
	metadata *metadataStore
	index    *imageIndex
	docs     *docCache
	versions *versionChecker
	fetcher  Fetcher
	group    singleflight.Group

	maxAge      time.Duration
	batchSize   int
	batchDelay  time.Duration
	initTimeout time.Duration
	now         func() time.Time

	logger  *slog.Logger
	metrics *Metrics

	initMu   sync.Mutex
	state    initState
	inflight *initCall
}

// New builds a Manager from opts. Nothing touches disk or network until
// Initialize or the first cache operation.
func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("assetcache: metadata store is required")
	}
	if opts.Dir == "" {
		return nil, fmt.Errorf("assetcache: content directory is required")
	}

	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Fetcher == nil {
		opts.Fetcher = NewHTTPFetcher(FetcherOptions{}, opts.Logger)
	}
	if opts.MetadataKey == "" {
		opts.MetadataKey = DefaultMetadataKey
	}
	if opts.VersionCheckInterval <= 0 {
		opts.VersionCheckInterval = DefaultVersionCheckInterval
	}
	if opts.ManifestTimeout <= 0 {
		opts.ManifestTimeout = httpclient.ManifestTimeout
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.PreloadBatchSize <= 0 {
		opts.PreloadBatchSize = DefaultPreloadBatchSize
	}
	if opts.PreloadBatchDelay < 0 {
		opts.PreloadBatchDelay = 0
	}
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = DefaultInitTimeout
	}

	docs, err := newDocCache(opts.JSONMemoryEntries, opts.Metrics.docLookups)
	if err != nil {
		return nil, fmt.Errorf("assetcache: failed to create document cache: %w", err)
	}

	logger := opts.Logger.With("component", "assetcache")

	return &Manager{
		content:  NewContentStore(opts.Fs, opts.Dir),
		metadata: newMetadataStore(opts.Store, opts.MetadataKey, logger),
		index:    newImageIndex(),
		docs:     docs,
		versions: &versionChecker{
			fetcher:     opts.Fetcher,
			manifestURL: opts.ManifestURL,
			interval:    opts.VersionCheckInterval,
			timeout:     opts.ManifestTimeout,
			now:         opts.Now,
			logger:      logger,
			metrics:     opts.Metrics,
		},
		fetcher:     opts.Fetcher,
		maxAge:      opts.MaxAge,
		batchSize:   opts.PreloadBatchSize,
		batchDelay:  opts.PreloadBatchDelay,
		initTimeout: opts.InitTimeout,
		now:         opts.Now,
		logger:      logger,
		metrics:     opts.Metrics,
	}, nil
}

// NewFromConfig wires a Manager with an HTTPFetcher built from cfg.CDN.
func NewFromConfig(cfg *config.Config, store kvstore.Store, logger *slog.Logger, metrics *Metrics) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fetcher := NewHTTPFetcher(FetcherOptions{
		Timeout:     cfg.GetCDNTimeout(),
		MaxRetries:  cfg.CDN.MaxRetries,
		RateLimit:   cfg.CDN.RateLimit,
		RateBurst:   cfg.CDN.RateBurst,
		MaxBodySize: cfg.GetMaxBodySize(),
		UserAgent:   cfg.CDN.UserAgent,
	}, logger)

	return New(Options{
		Store:                store,
		Dir:                  cfg.Cache.Dir,
		Fetcher:              fetcher,
		ManifestURL:          cfg.ManifestURL(),
		MetadataKey:          cfg.GetMetadataKey(),
		VersionCheckInterval: cfg.GetVersionCheckInterval(),
		MaxAge:               cfg.GetMaxAge(),
		PreloadBatchSize:     cfg.GetPreloadBatchSize(),
		PreloadBatchDelay:    cfg.Cache.PreloadBatchDelay,
		JSONMemoryEntries:    cfg.Cache.JSONMemoryEntries,
		InitTimeout:          cfg.GetInitTimeout(),
		Logger:               logger,
		Metrics:              metrics,
	})
}

// Initialize prepares the content directory, loads metadata and rebuilds the
// image index. It is idempotent: concurrent callers share one in-flight run,
// and once it has succeeded later calls return immediately. After a failure
// the next call tries again. The work is not cancelled when ctx is; ctx only
// bounds how long this caller waits.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initMu.Lock()
	switch m.state {
	case stateReady:
		m.initMu.Unlock()
		return nil
	case stateInitializing:
		call := m.inflight
		m.initMu.Unlock()
		return waitInit(ctx, call)
	}

	call := &initCall{done: make(chan struct{})}
	m.state = stateInitializing
	m.inflight = call
	m.initMu.Unlock()

	go func() {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.initTimeout)
		defer cancel()

		err := m.doInitialize(runCtx)
		if err != nil {
			m.logger.ErrorContext(runCtx, "Failed to initialize asset cache", "error", err)
		}

		m.initMu.Lock()
		call.err = err
		if err != nil {
			m.state = stateFailed
		} else {
			m.state = stateReady
		}
		m.inflight = nil
		m.initMu.Unlock()

		close(call.done)
	}()

	return waitInit(ctx, call)
}

func waitInit(ctx context.Context, call *initCall) error {
	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return newCacheError("initialize", "", ErrKindNotInitialized, ctx.Err())
	}
}

// Ready reports whether initialization has completed successfully.
func (m *Manager) Ready() bool {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	return m.state == stateReady
}

// State returns the initialization state name.
func (m *Manager) State() string {
	m.initMu.Lock()
	defer m.initMu.Unlock()
	return m.state.String()
}

func (m *Manager) doInitialize(ctx context.Context) error {
	created, err := m.content.EnsureDir()
	if err != nil {
		return newCacheError("initialize", "", ErrKindStorage, err)
	}
	if created {
		m.logger.InfoContext(ctx, "Created cache directory", "dir", m.content.Dir())
	}

	if err := m.metadata.load(ctx); err != nil {
		return newCacheError("initialize", "", ErrKindStorage, err)
	}

	if err := m.rebuildIndex(); err != nil {
		return newCacheError("initialize", "", ErrKindStorage, err)
	}

	m.logger.InfoContext(ctx, "Asset cache initialized",
		"images", m.index.len(),
		"metadata_entries", m.metadata.count(),
		"dir", m.content.Dir())

	return nil
}

// rebuildIndex intersects image metadata with the directory listing. Entries
// whose file is gone are dropped.
func (m *Manager) rebuildIndex() error {
	m.metrics.initScans.Inc()

	files, err := m.content.List()
	if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}

	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f.Name()] = struct{}{}
	}

	paths := make(map[string]string)
	for key, entry := range m.metadata.snapshot() {
		if entry.Type != KindImage || entry.URL == "" {
			continue
		}

		ext := entry.Extension
		if ext == "" {
			ext = Extension(entry.URL)
		}

		name := fileName(key, ext)
		if _, ok := present[name]; ok {
			paths[entry.URL] = m.content.Path(name)
		}
	}

	m.index.replace(paths)
	m.metrics.indexEntries.Set(float64(len(paths)))

	return nil
}

// IsImageCachedInstant reports whether url is in the in-memory image index.
// It never does I/O and returns false before initialization.
func (m *Manager) IsImageCachedInstant(url string) bool {
	_, ok := m.index.get(url)
	return ok
}

// CachedImagePathInstant returns the indexed local path for url.
func (m *Manager) CachedImagePathInstant(url string) (string, bool) {
	return m.index.get(url)
}

// CacheKey returns the cache key for url.
func (m *Manager) CacheKey(url string) string {
	return CacheKey(url)
}

// NeedsUpdate applies the staleness policy to key: no metadata means update;
// a non-empty remoteVersion that differs from the stored one means update;
// otherwise the entry is updated once it is older than the max age.
func (m *Manager) NeedsUpdate(key, remoteVersion string) bool {
	entry, ok := m.metadata.get(key)
	if !ok {
		return true
	}

	if remoteVersion != "" && entry.Version != remoteVersion {
		return true
	}

	return entry.Age(m.now()) > m.maxAge
}

// ShouldCheckVersion reports whether the manifest refresh interval has elapsed.
func (m *Manager) ShouldCheckVersion() bool {
	return m.versions.shouldCheck()
}

// FetchVersionManifest refreshes the version manifest. On failure the
// previous manifest is kept and the error is returned for logging only.
func (m *Manager) FetchVersionManifest(ctx context.Context) (VersionManifest, error) {
	return m.versions.fetch(ctx)
}

// Metadata returns the stored entry for key.
func (m *Manager) Metadata(key string) (Entry, bool) {
	return m.metadata.get(key)
}

// ensureInitialized runs Initialize and carries on in degraded mode when it fails.
func (m *Manager) ensureInitialized(ctx context.Context) {
	if err := m.Initialize(ctx); err != nil {
		m.logger.DebugContext(ctx, "Asset cache not initialized, continuing without index", "error", err)
	}
}
