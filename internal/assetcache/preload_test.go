package assetcache

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreloadImages_PartialFailureIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.cdn.setStatus("/covers/3.jpg", http.StatusNotFound)
	m := env.manager(t)

	urls := make([]string, 5)
	for i := range urls {
		urls[i] = env.cdn.url(fmt.Sprintf("/covers/%d.jpg", i+1))
	}

	results := m.PreloadImages(context.Background(), urls, 5)
	require.Len(t, results, 5)

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
			assert.NotEmpty(t, r.LocalPath)
			assert.True(t, m.IsImageCachedInstant(r.URL))
			continue
		}
		assert.Equal(t, urls[2], r.URL)
		assert.Error(t, r.Err)
	}
	assert.Equal(t, 4, succeeded)
}

func TestPreloadImages_BatchesSequentially(t *testing.T) {
	env := newTestEnv(t)
	env.cdn.delay = 20 * time.Millisecond
	m := env.manager(t)

	var urls []string
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		urls = append(urls, env.cdn.url("/artists/"+name+".png"))
	}

	results := m.PreloadImages(context.Background(), urls, 5)
	require.Len(t, results, 6)

	seen := make(map[string]int)
	for _, r := range results {
		assert.True(t, r.Success)
		seen[r.URL]++
	}
	for _, u := range urls {
		assert.Equal(t, 1, seen[u], u)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.PreloadBatches()))
	assert.LessOrEqual(t, env.cdn.maxInflight.Load(), int32(5))
}

func TestPreloadImages_DefaultBatchSize(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)

	urls := make([]string, 7)
	for i := range urls {
		urls[i] = env.cdn.url(fmt.Sprintf("/covers/default-%d.jpg", i))
	}

	results := m.PreloadImages(context.Background(), urls, 0)
	assert.Len(t, results, 7)
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.PreloadBatches()))
}

func TestPreloadImages_CancelledContext(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)
	require.NoError(t, m.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	urls := []string{env.cdn.url("/covers/x.jpg"), env.cdn.url("/covers/y.jpg")}
	results := m.PreloadImages(ctx, urls, 1)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Success)
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestPreloadImages_Empty(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)

	assert.Empty(t, m.PreloadImages(context.Background(), nil, 5))
}
