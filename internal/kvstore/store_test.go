package kvstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbmmusic/assetcache/internal/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "cache_metadata")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "cache_metadata", []byte(`{"k":{"version":"1"}}`)))

	value, ok, err := s.Get(ctx, "cache_metadata")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"k":{"version":"1"}}`, string(value))

	require.NoError(t, s.Set(ctx, "cache_metadata", []byte(`{}`)))
	value, _, err = s.Get(ctx, "cache_metadata")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(value))

	require.NoError(t, s.Delete(ctx, "cache_metadata"))
	require.NoError(t, s.Delete(ctx, "cache_metadata"))

	_, ok, err = s.Get(ctx, "cache_metadata")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(afero.NewMemMapFs(), "/kv")
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestFileStore_KeyWithSlashes(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := NewFileStore(fs, "/kv")
	require.NoError(t, err)

	require.NoError(t, s.Set(context.Background(), "a/b", []byte("x")))

	entries, err := afero.ReadDir(fs, "/kv")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a%2Fb.kv", entries[0].Name())
}

func TestSQLiteStore(t *testing.T) {
	s, err := New(config.MetadataStoreConfig{
		Backend:    config.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "assetcache.db"),
	})
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}

	s, err := NewRedisStore(RedisConfig{URL: redisURL, Prefix: "assetcache-test:"})
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	pgURL := os.Getenv("POSTGRES_URL")
	if pgURL == "" {
		t.Skip("POSTGRES_URL not set")
	}

	s, err := NewPostgresStore(t.Context(), PostgresConfig{URL: pgURL, Table: "assetcache_kv_test"})
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestNewPostgresStore_Validation(t *testing.T) {
	_, err := NewPostgresStore(t.Context(), PostgresConfig{})
	assert.ErrorContains(t, err, "URL is required")

	_, err = NewPostgresStore(t.Context(), PostgresConfig{URL: "postgres://localhost/db", Table: "bad;name"})
	assert.ErrorContains(t, err, "invalid table name")
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(config.MetadataStoreConfig{Backend: "etcd"})
	assert.Error(t, err)
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{URL: "not a url"})
	assert.Error(t, err)
}
