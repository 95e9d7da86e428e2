package assetcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbmmusic/assetcache/internal/slogutil"
)

// CacheImage returns a local path for the image at url, downloading it when
// it is missing, stale or force is set. When the download fails but an older
// copy exists on disk, that copy is returned with Stale set. With no usable
// copy the error wraps ErrNoFallback and the path is empty; the remote URL is
// never returned in its place.
func (m *Manager) CacheImage(ctx context.Context, url string, force bool) (ImageResult, error) {
	m.ensureInitialized(ctx)
	ctx = slogutil.With(ctx, "url", url)

	key := CacheKey(url)
	ext := Extension(url)
	name := fileName(key, ext)
	path := m.content.Path(name)

	if !force && m.content.Exists(path) && !m.NeedsUpdate(key, "") {
		m.metrics.requests.WithLabelValues(string(KindImage), "hit").Inc()
		return ImageResult{Path: path, FromCache: true}, nil
	}

	m.metrics.requests.WithLabelValues(string(KindImage), "miss").Inc()

	v, err, _ := m.group.Do("image:"+key, func() (any, error) {
		return m.downloadImage(context.WithoutCancel(ctx), url, key, ext, name)
	})
	if err == nil {
		return ImageResult{Path: v.(string)}, nil
	}

	m.metrics.downloadFailures.WithLabelValues(string(KindImage)).Inc()

	if m.content.Exists(path) {
		m.logger.WarnContext(ctx, "Using stale cached image as fallback", "error", err)
		m.metrics.requests.WithLabelValues(string(KindImage), "stale").Inc()
		m.index.set(url, path)
		return ImageResult{Path: path, FromCache: true, Stale: true}, nil
	}

	m.logger.ErrorContext(ctx, "Failed to cache image", "error", err)
	m.metrics.requests.WithLabelValues(string(KindImage), "error").Inc()

	return ImageResult{}, noFallback("cache image", url, err)
}

func (m *Manager) downloadImage(ctx context.Context, url, key, ext, name string) (string, error) {
	m.logger.DebugContext(ctx, "Downloading image")

	data, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", newCacheError("cache image", url, ErrKindNetwork, err)
	}

	path, err := m.content.WriteAtomic(name, data)
	if err != nil {
		return "", newCacheError("cache image", url, ErrKindStorage, err)
	}

	entry := Entry{
		URL:       url,
		Type:      KindImage,
		Extension: ext,
		CachedAt:  m.now().UnixMilli(),
		Size:      int64(len(data)),
	}
	if err := m.metadata.put(ctx, key, entry); err != nil {
		m.logger.ErrorContext(ctx, "Failed to save cache metadata", "error", err)
	}

	m.metrics.indexEntries.Set(float64(m.index.set(url, path)))
	m.metrics.downloads.WithLabelValues(string(KindImage)).Inc()
	m.metrics.downloadBytes.WithLabelValues(string(KindImage)).Add(float64(len(data)))

	m.logger.InfoContext(ctx, "Cached image", "size", len(data))

	return path, nil
}

// noFallback wraps a failed download as a CacheError that also matches ErrNoFallback.
func noFallback(op, url string, err error) error {
	kind := ErrKindNetwork
	var ce *CacheError
	if errors.As(err, &ce) {
		kind = ce.Kind
		err = ce.Err
	}
	return newCacheError(op, url, kind, fmt.Errorf("%w: %w", ErrNoFallback, err))
}
