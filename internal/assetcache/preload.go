package assetcache

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
)

// PreloadImages caches urls in fixed-size batches. The images of one batch are
// fetched concurrently and the next batch starts only after the whole batch
// has settled, followed by a short pause. A failed URL yields a result with
// Success false and never stops the rest. batchSize <= 0 uses the configured
// default. Results are not guaranteed to follow input order.
func (m *Manager) PreloadImages(ctx context.Context, urls []string, batchSize int) []PreloadResult {
	m.ensureInitialized(ctx)

	if batchSize <= 0 {
		batchSize = m.batchSize
	}

	start := time.Now()
	results := make([]PreloadResult, 0, len(urls))

	for i := 0; i < len(urls); i += batchSize {
		if err := ctx.Err(); err != nil {
			for _, url := range urls[i:] {
				results = append(results, PreloadResult{URL: url, Err: err})
			}
			break
		}

		end := min(i+batchSize, len(urls))
		results = append(results, m.preloadBatch(ctx, urls[i:end])...)
		m.metrics.preloadBatches.Inc()

		if end < len(urls) && m.batchDelay > 0 {
			select {
			case <-time.After(m.batchDelay):
			case <-ctx.Done():
			}
		}
	}

	m.metrics.preloadDuration.Observe(time.Since(start).Seconds())

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	if succeeded < len(urls) {
		m.logger.WarnContext(ctx, "Preload finished with failures", "succeeded", succeeded, "total", len(urls))
	} else {
		m.logger.DebugContext(ctx, "Preload finished", "total", len(urls), "duration", time.Since(start))
	}

	return results
}

func (m *Manager) preloadBatch(ctx context.Context, batch []string) []PreloadResult {
	p := pool.NewWithResults[PreloadResult]().WithMaxGoroutines(len(batch))

	for _, url := range batch {
		p.Go(func() PreloadResult {
			res, err := m.CacheImage(ctx, url, false)
			if err != nil {
				return PreloadResult{URL: url, Err: err}
			}
			return PreloadResult{URL: url, LocalPath: res.Path, Success: true}
		})
	}

	return p.Wait()
}
