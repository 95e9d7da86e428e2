package assetcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// versionChecker owns the remote version manifest and its refresh schedule.
type versionChecker struct {
	fetcher     Fetcher
	manifestURL string
	interval    time.Duration
	timeout     time.Duration
	now         func() time.Time
	logger      *slog.Logger
	metrics     *Metrics

	mu        sync.RWMutex
	manifest  VersionManifest
	lastCheck time.Time
}

// shouldCheck reports whether the refresh interval has elapsed since the
// last fetch attempt.
func (v *versionChecker) shouldCheck() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.now().Sub(v.lastCheck) > v.interval
}

// fetch downloads and parses the manifest. The attempt time is recorded even
// on failure so an unreachable CDN is not asked again before the interval.
// On failure the previous manifest stays in place.
func (v *versionChecker) fetch(ctx context.Context) (VersionManifest, error) {
	v.mu.Lock()
	v.lastCheck = v.now()
	v.mu.Unlock()

	if v.manifestURL == "" {
		return nil, fmt.Errorf("no manifest URL configured")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	data, err := v.fetcher.Fetch(fetchCtx, v.manifestURL)
	if err != nil {
		v.metrics.manifestFetches.WithLabelValues("error").Inc()
		v.logger.WarnContext(ctx, "Failed to fetch version manifest", "url", v.manifestURL, "error", err)
		return nil, err
	}

	manifest, err := parseManifest(data)
	if err != nil {
		v.metrics.manifestFetches.WithLabelValues("error").Inc()
		v.logger.WarnContext(ctx, "Version manifest is not a JSON object", "url", v.manifestURL, "error", err)
		return nil, err
	}

	v.mu.Lock()
	v.manifest = manifest
	v.mu.Unlock()

	v.metrics.manifestFetches.WithLabelValues("ok").Inc()
	v.logger.DebugContext(ctx, "Version manifest fetched", "assets", len(manifest))

	return manifest, nil
}

// version returns the remote tag for assetName, or "" when unknown.
func (v *versionChecker) version(assetName string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.manifest[assetName]
}

// parseManifest reads a flat JSON object of asset name to version. String
// values are used as-is; numbers and other values use their raw JSON text.
func parseManifest(data []byte) (VersionManifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("expected object, got %s", root.Type)
	}

	manifest := make(VersionManifest)
	root.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.String:
			manifest[key.String()] = value.Str
		case gjson.Null:
		default:
			manifest[key.String()] = value.Raw
		}
		return true
	})

	return manifest, nil
}
