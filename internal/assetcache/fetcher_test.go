package assetcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedErrors "github.com/rbmmusic/assetcache/internal/errors"
)

func TestHTTPFetcher_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{MaxRetries: 3}, discardLogger())

	data, err := f.Fetch(context.Background(), srv.URL+"/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPFetcher_DoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{MaxRetries: 3}, discardLogger())

	_, err := f.Fetch(context.Background(), srv.URL+"/a.jpg")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, sharedErrors.StatusCode(err))
	assert.True(t, sharedErrors.IsNonRetryable(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_BodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{MaxBodySize: 16, MaxRetries: 2}, discardLogger())

	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, sharedErrors.ErrBodyTooLarge)
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{Timeout: 50 * time.Millisecond}, discardLogger())

	start := time.Now()
	_, err := f.Fetch(context.Background(), srv.URL+"/slow.jpg")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHTTPFetcher_InvalidURL(t *testing.T) {
	f := NewHTTPFetcher(FetcherOptions{}, discardLogger())

	for _, u := range []string{"", "not a url", "ftp://cdn.example/a.jpg", "/relative.jpg"} {
		_, err := f.Fetch(context.Background(), u)
		assert.ErrorIs(t, err, sharedErrors.ErrInvalidURL, u)
	}
}

func TestHTTPFetcher_SendsUserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{UserAgent: "assetcache-test"}, discardLogger())
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "assetcache-test", ua.Load())
}
