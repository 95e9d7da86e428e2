package assetcache

import (
	"encoding/json"
	"time"
)

// AssetKind tags how an asset is stored and returned.
type AssetKind string

const (
	KindImage AssetKind = "image"
	KindJSON  AssetKind = "json"
)

// Entry is the persisted provenance record for one cached asset.
type Entry struct {
	URL       string    `json:"url"`
	Type      AssetKind `json:"type"`
	Extension string    `json:"extension,omitempty"`
	Version   string    `json:"version,omitempty"`
	CachedAt  int64     `json:"cachedAt"` // ms since epoch
	Size      int64     `json:"size,omitempty"`
}

// Age returns how long ago the entry was (re)downloaded.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(e.CachedAt))
}

// ImageResult is returned by CacheImage.
type ImageResult struct {
	Path      string `json:"path"`
	FromCache bool   `json:"from_cache"`
	// Stale is set when the download failed and an older copy was returned.
	Stale bool `json:"stale"`
}

// JSONResult is returned by CacheJSON.
type JSONResult struct {
	Data      json.RawMessage `json:"data"`
	FromCache bool            `json:"from_cache"`
	Stale     bool            `json:"stale"`
}

// PreloadResult reports the outcome for one URL passed to PreloadImages.
type PreloadResult struct {
	URL       string `json:"url"`
	LocalPath string `json:"local_path,omitempty"`
	Success   bool   `json:"success"`
	Err       error  `json:"-"`
}

// Stats summarizes the content directory and the metadata table.
type Stats struct {
	FileCount     int     `json:"fileCount"`
	TotalSize     int64   `json:"totalSize"`
	TotalSizeMB   float64 `json:"totalSizeMB"`
	MetadataCount int     `json:"metadataCount"`
}

// VersionManifest maps asset names to remote version tags.
type VersionManifest map[string]string
