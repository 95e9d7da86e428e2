package api

import "github.com/rbmmusic/assetcache/internal/assetcache"

// PreloadRequest is the body of POST /preload.
type PreloadRequest struct {
	URLs      []string `json:"urls"`
	BatchSize int      `json:"batch_size"`
}

// PreloadItem reports the outcome for one preloaded URL.
type PreloadItem struct {
	URL       string `json:"url"`
	LocalPath string `json:"local_path,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// PreloadResponse summarizes a preload run.
type PreloadResponse struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Results   []PreloadItem `json:"results"`
}

// InstantRequest is the body of POST /debug/instant.
type InstantRequest struct {
	URLs []string `json:"urls"`
}

// InstantImageResponse is the answer of GET /images/instant.
type InstantImageResponse struct {
	URL    string `json:"url"`
	Cached bool   `json:"cached"`
	Path   string `json:"path,omitempty"`
}

// HealthResponse is the answer of GET /system/health.
type HealthResponse struct {
	Status string `json:"status"`
	State  string `json:"state"`
	Ready  bool   `json:"ready"`
	Uptime string `json:"uptime"`
}

// ToPreloadResponse converts preload results into the API shape.
func ToPreloadResponse(results []assetcache.PreloadResult) *PreloadResponse {
	resp := &PreloadResponse{
		Total:   len(results),
		Results: make([]PreloadItem, 0, len(results)),
	}

	for _, r := range results {
		item := PreloadItem{
			URL:       r.URL,
			LocalPath: r.LocalPath,
			Success:   r.Success,
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		if r.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
		resp.Results = append(resp.Results, item)
	}

	return resp
}
