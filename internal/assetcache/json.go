package assetcache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rbmmusic/assetcache/internal/slogutil"
)

// CacheJSON returns the JSON document at url, served from the local copy
// while it is fresh. Freshness consults the version manifest (refreshed at
// most once per interval) under the asset name derived from the URL, then the
// max age. When the download fails a previously cached copy is returned with
// Stale set; with no usable copy the error wraps ErrNoFallback.
func (m *Manager) CacheJSON(ctx context.Context, url string, force bool) (JSONResult, error) {
	m.ensureInitialized(ctx)
	ctx = slogutil.With(ctx, "url", url)

	key := CacheKey(url)
	name := fileName(key, "json")
	path := m.content.Path(name)

	if !force && m.versions.shouldCheck() {
		// Failures keep the previous manifest and are already logged
		_, _ = m.versions.fetch(ctx)
	}

	remoteVersion := m.versions.version(AssetName(url))

	if !force && !m.NeedsUpdate(key, remoteVersion) && m.content.Exists(path) {
		if doc, ok := m.docs.get(key); ok {
			m.metrics.requests.WithLabelValues(string(KindJSON), "hit").Inc()
			return JSONResult{Data: doc, FromCache: true}, nil
		}

		doc, err := m.readJSON(path)
		if err == nil {
			m.docs.add(key, doc)
			m.metrics.requests.WithLabelValues(string(KindJSON), "hit").Inc()
			return JSONResult{Data: doc, FromCache: true}, nil
		}
		m.logger.WarnContext(ctx, "Cached JSON is unreadable, downloading again", "error", err)
	}

	m.metrics.requests.WithLabelValues(string(KindJSON), "miss").Inc()

	v, err, _ := m.group.Do("json:"+key, func() (any, error) {
		return m.downloadJSON(context.WithoutCancel(ctx), url, key, name, remoteVersion)
	})
	if err == nil {
		return JSONResult{Data: v.(json.RawMessage)}, nil
	}

	m.metrics.downloadFailures.WithLabelValues(string(KindJSON)).Inc()

	if doc, readErr := m.readJSON(path); readErr == nil {
		m.logger.WarnContext(ctx, "Using stale cached JSON as fallback", "error", err)
		m.metrics.requests.WithLabelValues(string(KindJSON), "stale").Inc()
		return JSONResult{Data: doc, FromCache: true, Stale: true}, nil
	}

	m.logger.ErrorContext(ctx, "Failed to cache JSON", "error", err)
	m.metrics.requests.WithLabelValues(string(KindJSON), "error").Inc()

	return JSONResult{}, noFallback("cache json", url, err)
}

// CacheJSONInto is CacheJSON followed by decoding the document into v.
func (m *Manager) CacheJSONInto(ctx context.Context, url string, force bool, v any) (JSONResult, error) {
	res, err := m.CacheJSON(ctx, url, force)
	if err != nil {
		return res, err
	}

	if err := json.Unmarshal(res.Data, v); err != nil {
		return res, newCacheError("cache json", url, ErrKindDecode, err)
	}

	return res, nil
}

func (m *Manager) downloadJSON(ctx context.Context, url, key, name, version string) (json.RawMessage, error) {
	m.logger.DebugContext(ctx, "Downloading JSON", "asset", AssetName(url))

	data, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, newCacheError("cache json", url, ErrKindNetwork, err)
	}

	if !json.Valid(data) {
		return nil, newCacheError("cache json", url, ErrKindDecode, fmt.Errorf("response is not valid JSON"))
	}

	if _, err := m.content.WriteAtomic(name, data); err != nil {
		return nil, newCacheError("cache json", url, ErrKindStorage, err)
	}

	entry := Entry{
		URL:       url,
		Type:      KindJSON,
		Extension: "json",
		Version:   version,
		CachedAt:  m.now().UnixMilli(),
		Size:      int64(len(data)),
	}
	if err := m.metadata.put(ctx, key, entry); err != nil {
		m.logger.ErrorContext(ctx, "Failed to save cache metadata", "error", err)
	}

	doc := json.RawMessage(data)
	m.docs.add(key, doc)

	m.metrics.downloads.WithLabelValues(string(KindJSON)).Inc()
	m.metrics.downloadBytes.WithLabelValues(string(KindJSON)).Add(float64(len(data)))

	m.logger.InfoContext(ctx, "Cached JSON", "asset", AssetName(url), "version", version, "size", len(data))

	return doc, nil
}

func (m *Manager) readJSON(path string) (json.RawMessage, error) {
	data, err := m.content.Read(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}
