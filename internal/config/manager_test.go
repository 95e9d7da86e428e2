package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	enabled := true

	tests := []struct {
		name        string
		modify      func(c *Config)
		wantErr     bool
		errContains string
	}{
		{
			name:    "defaults are valid",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:        "empty cache dir",
			modify:      func(c *Config) { c.Cache.Dir = "" },
			wantErr:     true,
			errContains: "cache dir cannot be empty",
		},
		{
			name:        "zero max age",
			modify:      func(c *Config) { c.Cache.MaxAge = 0 },
			wantErr:     true,
			errContains: "max_age must be greater than 0",
		},
		{
			name:        "zero batch size",
			modify:      func(c *Config) { c.Cache.PreloadBatchSize = 0 },
			wantErr:     true,
			errContains: "preload_batch_size",
		},
		{
			name:        "unknown backend",
			modify:      func(c *Config) { c.MetadataStore.Backend = "mongo" },
			wantErr:     true,
			errContains: "backend must be one of",
		},
		{
			name: "redis backend without url",
			modify: func(c *Config) {
				c.MetadataStore.Backend = BackendRedis
				c.MetadataStore.RedisURL = ""
			},
			wantErr:     true,
			errContains: "redis_url cannot be empty",
		},
		{
			name: "postgres backend without url",
			modify: func(c *Config) {
				c.MetadataStore.Backend = BackendPostgres
			},
			wantErr:     true,
			errContains: "postgres_url cannot be empty",
		},
		{
			name: "file backend with dir",
			modify: func(c *Config) {
				c.MetadataStore.Backend = BackendFile
				c.MetadataStore.FileDir = "/tmp/kv"
			},
			wantErr: false,
		},
		{
			name:        "invalid port",
			modify:      func(c *Config) { c.API.Port = 70000 },
			wantErr:     true,
			errContains: "api port",
		},
		{
			name: "warming enabled without schedule",
			modify: func(c *Config) {
				c.Warming.Enabled = &enabled
				c.Warming.Schedule = ""
			},
			wantErr:     true,
			errContains: "warming schedule",
		},
		{
			name:        "invalid log level",
			modify:      func(c *Config) { c.Log.Level = "verbose" },
			wantErr:     true,
			errContains: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_DeepCopy(t *testing.T) {
	enabled := true
	cfg := DefaultConfig()
	cfg.Warming.Enabled = &enabled
	cfg.Warming.ImageURLs = []string{"https://cdn.example/a.png"}

	cp := cfg.DeepCopy()
	*cp.Warming.Enabled = false
	cp.Warming.ImageURLs[0] = "changed"

	assert.True(t, *cfg.Warming.Enabled)
	assert.Equal(t, "https://cdn.example/a.png", cfg.Warming.ImageURLs[0])
	assert.Nil(t, (*Config)(nil).DeepCopy())
}

func TestManager_ValidateConfigUpdate(t *testing.T) {
	m := NewManager(DefaultConfig(), "")

	changedDir := DefaultConfig()
	changedDir.Cache.Dir = "/elsewhere"
	assert.ErrorContains(t, m.ValidateConfigUpdate(changedDir), "requires restart")

	changedStore := DefaultConfig()
	changedStore.MetadataStore.SQLitePath = "/elsewhere.db"
	assert.ErrorContains(t, m.ValidateConfigUpdate(changedStore), "requires restart")

	changedAge := DefaultConfig()
	changedAge.Cache.MaxAge = time.Hour
	assert.NoError(t, m.ValidateConfigUpdate(changedAge))
}

func TestManager_UpdateConfigNotifiesCallbacks(t *testing.T) {
	m := NewManager(DefaultConfig(), "")

	var oldLevel, newLevel string
	m.OnConfigChange(func(oldConfig, newConfig *Config) {
		oldLevel = oldConfig.Log.Level
		newLevel = newConfig.Log.Level
	})

	updated := DefaultConfig()
	updated.Log.Level = "debug"
	require.NoError(t, m.UpdateConfig(updated))

	assert.Equal(t, "info", oldLevel)
	assert.Equal(t, "debug", newLevel)
	assert.Equal(t, "debug", m.GetConfig().Log.Level)
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
cache:
  dir: /var/cache/assets
  max_age: 12h
  preload_batch_size: 8
cdn:
  base_url: https://cdn.example
metadata_store:
  backend: file
  file_dir: /var/lib/assetcache
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/assets", cfg.Cache.Dir)
	assert.Equal(t, 12*time.Hour, cfg.Cache.MaxAge)
	assert.Equal(t, 8, cfg.Cache.PreloadBatchSize)
	assert.Equal(t, "cache_metadata", cfg.Cache.MetadataKey)
	assert.Equal(t, 5*time.Minute, cfg.Cache.VersionCheckInterval)
	assert.Equal(t, BackendFile, cfg.MetadataStore.Backend)
	assert.Equal(t, "https://cdn.example/jsonMaster/data-version.json", cfg.ManifestURL())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Log.Level = "debug"
	cfg.Cache.MaxAge = 6 * time.Hour

	require.NoError(t, SaveToFile(cfg, path))

	m := NewManager(DefaultConfig(), path)
	require.NoError(t, m.ReloadConfig())
	assert.Equal(t, "debug", m.GetConfig().Log.Level)
	assert.Equal(t, 6*time.Hour, m.GetConfig().Cache.MaxAge)
}

func TestManager_ReloadRejectsPortChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.API.Port = 9000

	require.NoError(t, SaveToFile(cfg, path))

	m := NewManager(DefaultConfig(), path)
	assert.ErrorContains(t, m.ReloadConfig(), "api port cannot be changed at runtime")
	assert.Equal(t, DefaultConfig().API.Port, m.GetConfig().API.Port)
}

func TestConfig_ResolveURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CDN.BaseURL = "https://cdn.example/"

	assert.Equal(t, "https://cdn.example/images/a.png", cfg.ResolveURL("/images/a.png"))
	assert.Equal(t, "https://other.example/x.json", cfg.ResolveURL("https://other.example/x.json"))
}

func TestConfig_Accessors(t *testing.T) {
	cfg := &Config{}

	assert.Equal(t, 5*time.Minute, cfg.GetVersionCheckInterval())
	assert.Equal(t, 24*time.Hour, cfg.GetMaxAge())
	assert.Equal(t, 5, cfg.GetPreloadBatchSize())
	assert.Equal(t, "cache_metadata", cfg.GetMetadataKey())
	assert.False(t, cfg.GetWarmingEnabled())
	assert.Equal(t, int64(32<<20), cfg.GetMaxBodySize())
}
