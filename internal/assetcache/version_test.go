package assetcache

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbmmusic/assetcache/internal/httpclient"
)

func TestParseManifest(t *testing.T) {
	manifest, err := parseManifest([]byte(`{"songIndexFlat":"2024-05-01","artists":7,"genres":1.5,"gone":null}`))
	require.NoError(t, err)

	assert.Equal(t, VersionManifest{
		"songIndexFlat": "2024-05-01",
		"artists":       "7",
		"genres":        "1.5",
	}, manifest)

	_, err = parseManifest([]byte(`["not","an","object"]`))
	assert.Error(t, err)

	_, err = parseManifest([]byte(`{broken`))
	assert.Error(t, err)
}

func TestShouldCheckVersion(t *testing.T) {
	env := newTestEnv(t)
	env.cdn.setBody(manifestPath, `{"artists":"v1"}`)
	m := env.manager(t)
	ctx := context.Background()

	assert.True(t, m.ShouldCheckVersion())

	manifest, err := m.FetchVersionManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", manifest["artists"])
	assert.False(t, m.ShouldCheckVersion())

	env.clock.Advance(4 * time.Minute)
	assert.False(t, m.ShouldCheckVersion())

	env.clock.Advance(2 * time.Minute)
	assert.True(t, m.ShouldCheckVersion())
}

func TestFetchVersionManifest_FailureKeepsPrevious(t *testing.T) {
	env := newTestEnv(t)
	env.cdn.setBody(manifestPath, `{"artists":"v1"}`)
	m := env.manager(t)
	ctx := context.Background()

	_, err := m.FetchVersionManifest(ctx)
	require.NoError(t, err)

	env.cdn.setStatus(manifestPath, http.StatusInternalServerError)

	_, err = m.FetchVersionManifest(ctx)
	require.Error(t, err)
	assert.Equal(t, "v1", m.versions.version("artists"))

	// The failed attempt still counts toward the interval
	assert.False(t, m.ShouldCheckVersion())

	env.cdn.clearStatus(manifestPath)
	env.cdn.setBody(manifestPath, `{"artists":"v2"}`)
	_, err = m.FetchVersionManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", m.versions.version("artists"))
}

func TestFetchVersionManifest_NoURL(t *testing.T) {
	env := newTestEnv(t)
	opts := env.options()
	opts.ManifestURL = ""
	m, err := New(opts)
	require.NoError(t, err)

	_, err = m.FetchVersionManifest(context.Background())
	assert.Error(t, err)
}

func TestFetchVersionManifest_Timeout(t *testing.T) {
	env := newTestEnv(t)
	env.cdn.setBody(manifestPath, `{"artists":"v1"}`)
	opts := env.options()
	opts.ManifestTimeout = 20 * time.Millisecond
	m, err := New(opts)
	require.NoError(t, err)

	env.cdn.delay = 300 * time.Millisecond

	start := time.Now()
	_, err = m.FetchVersionManifest(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
	assert.Empty(t, m.versions.version("artists"))
}

func TestNew_DefaultManifestTimeout(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)

	assert.Equal(t, httpclient.ManifestTimeout, m.versions.timeout)
}
