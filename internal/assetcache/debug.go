package assetcache

import "context"

// URLCheck is a diagnostic snapshot for one URL.
type URLCheck struct {
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	Kind        AssetKind `json:"kind"`
	Cached      bool      `json:"cached"`
	LocalPath   string    `json:"local_path,omitempty"`
	Instant     bool      `json:"instant"`
	InstantPath string    `json:"instant_path,omitempty"`
	NeedsUpdate bool      `json:"needs_update"`
	Metadata    *Entry    `json:"metadata,omitempty"`
}

// InstantStatus is the in-memory index answer for one URL.
type InstantStatus struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	Cached bool   `json:"cached"`
	Path   string `json:"path,omitempty"`
}

// InstantReport is the result of CheckInstant.
type InstantReport struct {
	Ready     bool            `json:"ready"`
	IndexSize int             `json:"index_size"`
	Results   []InstantStatus `json:"results"`
}

// CheckURL reports both the disk-verified and the instant view of url.
func (m *Manager) CheckURL(ctx context.Context, url string) URLCheck {
	key := CacheKey(url)
	path, cached := m.LocalPath(ctx, url)
	instantPath, instant := m.CachedImagePathInstant(url)

	check := URLCheck{
		URL:         url,
		Key:         key,
		Kind:        ClassifyURL(url),
		Cached:      cached,
		LocalPath:   path,
		Instant:     instant,
		InstantPath: instantPath,
		NeedsUpdate: m.NeedsUpdate(key, ""),
	}
	if entry, ok := m.metadata.get(key); ok {
		check.Metadata = &entry
	}

	m.logger.DebugContext(ctx, "URL check", "name", AssetName(url), "cached", cached, "instant", instant)

	return check
}

// CheckInstant reports the instant index answer for each URL without any I/O.
func (m *Manager) CheckInstant(urls []string) InstantReport {
	report := InstantReport{
		Ready:     m.Ready(),
		IndexSize: m.index.len(),
		Results:   make([]InstantStatus, 0, len(urls)),
	}

	for _, url := range urls {
		path, ok := m.index.get(url)
		report.Results = append(report.Results, InstantStatus{
			URL:    url,
			Name:   AssetName(url),
			Cached: ok,
			Path:   path,
		})
	}

	return report
}
