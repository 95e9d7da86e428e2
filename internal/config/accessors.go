package config

import (
	"net/url"
	"strings"
	"time"
)

// Cache config accessor methods with default fallbacks.

// GetVersionCheckInterval returns the manifest refresh interval with a default fallback.
func (c *Config) GetVersionCheckInterval() time.Duration {
	if c.Cache.VersionCheckInterval <= 0 {
		return 5 * time.Minute // Default: 5 minutes
	}
	return c.Cache.VersionCheckInterval
}

// GetMaxAge returns the staleness threshold with a default fallback.
func (c *Config) GetMaxAge() time.Duration {
	if c.Cache.MaxAge <= 0 {
		return 24 * time.Hour // Default: 24 hours
	}
	return c.Cache.MaxAge
}

// GetPreloadBatchSize returns the preload batch size with a default fallback.
func (c *Config) GetPreloadBatchSize() int {
	if c.Cache.PreloadBatchSize <= 0 {
		return 5 // Default: 5 URLs per batch
	}
	return c.Cache.PreloadBatchSize
}

// GetInitTimeout returns the initialization timeout with a default fallback.
func (c *Config) GetInitTimeout() time.Duration {
	if c.Cache.InitTimeout <= 0 {
		return 30 * time.Second
	}
	return c.Cache.InitTimeout
}

// GetMetadataKey returns the key the metadata blob is stored under.
func (c *Config) GetMetadataKey() string {
	if c.Cache.MetadataKey == "" {
		return "cache_metadata"
	}
	return c.Cache.MetadataKey
}

// CDN config accessor methods.

// GetCDNTimeout returns the per-request timeout with a default fallback.
func (c *Config) GetCDNTimeout() time.Duration {
	if c.CDN.Timeout <= 0 {
		return 30 * time.Second
	}
	return c.CDN.Timeout
}

// GetMaxBodySize returns the response size limit in bytes with a default fallback.
func (c *Config) GetMaxBodySize() int64 {
	if c.CDN.MaxBodySize <= 0 {
		return 32 << 20 // Default: 32MB
	}
	return c.CDN.MaxBodySize
}

// ManifestURL returns the absolute URL of the version manifest.
func (c *Config) ManifestURL() string {
	return c.ResolveURL(c.CDN.ManifestPath)
}

// ResolveURL turns a CDN-relative path into an absolute URL.
// Absolute URLs are returned unchanged.
func (c *Config) ResolveURL(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	return strings.TrimRight(c.CDN.BaseURL, "/") + "/" + strings.TrimLeft(ref, "/")
}

// Warming config accessor methods.

// GetWarmingEnabled returns whether the background warming job runs.
func (c *Config) GetWarmingEnabled() bool {
	if c.Warming.Enabled == nil {
		return false // Default: false
	}
	return *c.Warming.Enabled
}

// GetWarmingStartDelay returns the delay before the first warm-up run.
func (c *Config) GetWarmingStartDelay() time.Duration {
	if c.Warming.StartDelay < 0 {
		return 0
	}
	return c.Warming.StartDelay
}
