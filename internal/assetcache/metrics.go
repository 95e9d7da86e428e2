package assetcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the cache's Prometheus collectors.
type Metrics struct {
	requests         *prometheus.CounterVec
	downloads        *prometheus.CounterVec
	downloadFailures *prometheus.CounterVec
	downloadBytes    *prometheus.CounterVec
	manifestFetches  *prometheus.CounterVec
	docLookups       *prometheus.CounterVec
	indexEntries     prometheus.Gauge
	initScans        prometheus.Counter
	preloadBatches   prometheus.Counter
	preloadDuration  prometheus.Histogram
}

// NewMetrics registers the collectors with reg. A nil reg keeps them
// unregistered, which tests use to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assetcache_requests_total",
			Help: "Cache lookups by asset kind and outcome",
		}, []string{"kind", "result"}), // result: hit/miss/stale/error
		downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assetcache_downloads_total",
			Help: "Successful downloads from the CDN",
		}, []string{"kind"}),
		downloadFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assetcache_download_failures_total",
			Help: "Failed downloads from the CDN",
		}, []string{"kind"}),
		downloadBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assetcache_download_bytes_total",
			Help: "Bytes written to the content directory",
		}, []string{"kind"}),
		manifestFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assetcache_manifest_fetches_total",
			Help: "Version manifest fetch attempts",
		}, []string{"result"}),
		docLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "assetcache_json_memory_lookups_total",
			Help: "In-memory JSON document lookups",
		}, []string{"result"}), // result: hit/miss
		indexEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "assetcache_index_entries",
			Help: "Images currently in the in-memory index",
		}),
		initScans: factory.NewCounter(prometheus.CounterOpts{
			Name: "assetcache_init_scans_total",
			Help: "Directory scans performed to rebuild the index",
		}),
		preloadBatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "assetcache_preload_batches_total",
			Help: "Preload batches processed",
		}),
		preloadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "assetcache_preload_duration_seconds",
			Help:    "Wall time of PreloadImages calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// InitScans exposes the index rebuild counter.
func (m *Metrics) InitScans() prometheus.Counter {
	return m.initScans
}

// PreloadBatches exposes the preload batch counter.
func (m *Metrics) PreloadBatches() prometheus.Counter {
	return m.preloadBatches
}

// Downloads exposes the download counter for kind.
func (m *Metrics) Downloads(kind AssetKind) prometheus.Counter {
	return m.downloads.WithLabelValues(string(kind))
}

// Requests exposes the request counter for kind and result.
func (m *Metrics) Requests(kind AssetKind, result string) prometheus.Counter {
	return m.requests.WithLabelValues(string(kind), result)
}

// DocLookups exposes the in-memory JSON lookup counter for result.
func (m *Metrics) DocLookups(result string) prometheus.Counter {
	return m.docLookups.WithLabelValues(result)
}
