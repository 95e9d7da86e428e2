package assetcache

import (
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/rbmmusic/assetcache/internal/slogutil"
)

// CacheKey derives the filesystem-safe key for rawURL by replacing every
// character outside [A-Za-z0-9] with an underscore. The case of the URL is kept.
func CacheKey(rawURL string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, rawURL)
}

const fallbackExtension = "bin"

// Extension returns the lowercased file extension of the URL path without the
// dot. URLs without a usable extension get "bin".
func Extension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if ext == "" {
		return fallbackExtension
	}

	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return fallbackExtension
		}
	}

	return ext
}

// ClassifyURL decides once whether a URL is served as an image or a JSON
// document. Anything that is not ".json" is treated as an image.
func ClassifyURL(rawURL string) AssetKind {
	if Extension(rawURL) == "json" {
		return KindJSON
	}
	return KindImage
}

// AssetName is the manifest lookup name: the last path segment without ".json".
func AssetName(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}

	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}

	return strings.TrimSuffix(p, ".json")
}

func fileName(key, ext string) string {
	return key + "." + ext
}

// extensionFor returns the on-disk extension for kind.
func extensionFor(kind AssetKind, rawURL string) string {
	if kind == KindJSON {
		return "json"
	}
	return Extension(rawURL)
}

// LogKeyHook returns a log hook that stamps the cache key of the url carried
// by the context, so log lines can be matched against content file names.
func LogKeyHook() slogutil.Hook {
	return slogutil.Derive("url", "key", func(v slog.Value) slog.Value {
		return slog.StringValue(CacheKey(v.String()))
	})
}
