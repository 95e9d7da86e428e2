package assetcache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/rbmmusic/assetcache/internal/kvstore"
)

const testDir = "/cache"

// fakeCDN serves predictable bodies and counts requests per path.
type fakeCDN struct {
	srv *httptest.Server

	mu     sync.Mutex
	hits   map[string]int
	status map[string]int
	bodies map[string]string

	down        atomic.Bool
	delay       time.Duration
	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func newFakeCDN(t *testing.T) *fakeCDN {
	t.Helper()

	cdn := &fakeCDN{
		hits:   make(map[string]int),
		status: make(map[string]int),
		bodies: make(map[string]string),
	}

	cdn.srv = httptest.NewServer(http.HandlerFunc(cdn.serve))
	t.Cleanup(cdn.srv.Close)

	return cdn
}

func (c *fakeCDN) serve(w http.ResponseWriter, r *http.Request) {
	n := c.inflight.Add(1)
	defer c.inflight.Add(-1)
	for {
		cur := c.maxInflight.Load()
		if n <= cur || c.maxInflight.CompareAndSwap(cur, n) {
			break
		}
	}

	c.mu.Lock()
	c.hits[r.URL.Path]++
	status, failing := c.status[r.URL.Path]
	body, hasBody := c.bodies[r.URL.Path]
	delay := c.delay
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if c.down.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if failing {
		w.WriteHeader(status)
		return
	}

	if !hasBody {
		if strings.HasSuffix(r.URL.Path, ".json") {
			body = `{"path":"` + r.URL.Path + `"}`
		} else {
			body = "image-bytes:" + r.URL.Path
		}
	}
	_, _ = io.WriteString(w, body)
}

func (c *fakeCDN) url(path string) string {
	return c.srv.URL + path
}

func (c *fakeCDN) hitCount(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[path]
}

func (c *fakeCDN) setStatus(path string, status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status[path] = status
}

func (c *fakeCDN) clearStatus(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.status, path)
}

func (c *fakeCDN) setBody(path, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies[path] = body
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// flakyStore wraps a Store and fails Get while broken is set.
type flakyStore struct {
	kvstore.Store
	broken atomic.Bool
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.broken.Load() {
		return nil, false, errors.New("store unavailable")
	}
	return s.Store.Get(ctx, key)
}

type testEnv struct {
	fs      afero.Fs
	store   kvstore.Store
	clock   *testClock
	cdn     *fakeCDN
	metrics *Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fs := afero.NewMemMapFs()
	store, err := kvstore.NewFileStore(fs, "/kv")
	require.NoError(t, err)

	return &testEnv{
		fs:      fs,
		store:   store,
		clock:   newTestClock(),
		cdn:     newFakeCDN(t),
		metrics: NewMetrics(nil),
	}
}

func (e *testEnv) options() Options {
	return Options{
		Store:             e.store,
		Fs:                e.fs,
		Dir:               testDir,
		Fetcher:           NewHTTPFetcher(FetcherOptions{Timeout: 5 * time.Second}, discardLogger()),
		ManifestURL:       e.cdn.url("/jsonMaster/data-version.json"),
		PreloadBatchDelay: time.Millisecond,
		JSONMemoryEntries: 16,
		Logger:            discardLogger(),
		Metrics:           e.metrics,
		Now:               e.clock.Now,
	}
}

func (e *testEnv) manager(t *testing.T) *Manager {
	t.Helper()

	m, err := New(e.options())
	require.NoError(t, err)
	return m
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
