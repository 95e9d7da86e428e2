package assetcache

import (
	"context"
	"math"
	"path/filepath"
	"strings"
)

// ClearCache deletes cached content. With a key it removes every file whose
// name starts with key plus the key's metadata entry; with an empty key it
// wipes the content directory and all metadata. The index and in-memory
// documents follow. It keeps going after individual failures and returns
// the first one.
func (m *Manager) ClearCache(ctx context.Context, key string) error {
	m.ensureInitialized(ctx)

	var firstErr error
	record := func(err error) {
		if err == nil {
			return
		}
		m.logger.ErrorContext(ctx, "Failed to clear cache", "key", key, "error", err)
		if firstErr == nil {
			firstErr = newCacheError("clear cache", "", ErrKindStorage, err)
		}
	}

	if key != "" {
		removed, err := m.content.RemovePrefix(key)
		record(err)

		size := m.index.removeWhere(func(_, path string) bool {
			return strings.HasPrefix(filepath.Base(path), key)
		})
		m.metrics.indexEntries.Set(float64(size))
		m.docs.removePrefix(key)

		record(m.metadata.remove(ctx, key))

		m.logger.InfoContext(ctx, "Cleared cache entry", "key", key, "files", removed)
		return firstErr
	}

	record(m.content.Reset())

	m.index.replace(make(map[string]string))
	m.metrics.indexEntries.Set(0)
	m.docs.purge()

	record(m.metadata.reset(ctx))

	m.logger.InfoContext(ctx, "Cleared all cached assets")
	return firstErr
}

// Stats reports the files in the content directory and the metadata count.
// A listing failure is logged and yields zero file counts.
func (m *Manager) Stats(ctx context.Context) Stats {
	m.ensureInitialized(ctx)

	stats := Stats{MetadataCount: m.metadata.count()}

	files, err := m.content.List()
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to get cache stats", "error", err)
		return stats
	}

	stats.FileCount = len(files)
	for _, f := range files {
		stats.TotalSize += f.Size()
	}
	stats.TotalSizeMB = math.Round(float64(stats.TotalSize)/(1024*1024)*100) / 100

	return stats
}

// IsCached reports whether the file for url exists on disk.
func (m *Manager) IsCached(ctx context.Context, url string) bool {
	_, ok := m.LocalPath(ctx, url)
	return ok
}

// LocalPath returns the on-disk path for url when the file exists. Unlike
// CachedImagePathInstant it checks the filesystem and covers JSON too.
func (m *Manager) LocalPath(ctx context.Context, url string) (string, bool) {
	m.ensureInitialized(ctx)

	path := m.content.Path(fileName(CacheKey(url), extensionFor(ClassifyURL(url), url)))
	if !m.content.Exists(path) {
		return "", false
	}
	return path, true
}
