package assetcache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/rbmmusic/assetcache/internal/errors"
	"github.com/rbmmusic/assetcache/internal/httpclient"
)

// Fetcher downloads the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetcherOptions configures an HTTPFetcher.
type FetcherOptions struct {
	Timeout     time.Duration
	MaxRetries  int
	RateLimit   float64 // requests per second, 0 = unlimited
	RateBurst   int
	MaxBodySize int64
	UserAgent   string
	Transport   http.RoundTripper
}

// HTTPFetcher is the CDN fetch primitive: one GET per attempt, bounded by a
// per-request timeout, throttled by a shared token bucket and retried with
// backoff on transient failures.
type HTTPFetcher struct {
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	maxBody    int64
	timeout    time.Duration
	logger     *slog.Logger
}

// NewHTTPFetcher creates a fetcher from opts.
func NewHTTPFetcher(opts FetcherOptions, logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = httpclient.DefaultTimeout
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 32 << 20
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 1
	}

	clientOpts := []httpclient.Option{httpclient.WithTimeout(opts.Timeout)}
	if opts.UserAgent != "" {
		clientOpts = append(clientOpts, httpclient.WithUserAgent(opts.UserAgent))
	}
	if opts.Transport != nil {
		clientOpts = append(clientOpts, httpclient.WithTransport(opts.Transport))
	}

	return &HTTPFetcher{
		client:     httpclient.New(clientOpts...),
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: max(opts.MaxRetries, 0),
		maxBody:    opts.MaxBodySize,
		timeout:    opts.Timeout,
		logger:     logger,
	}
}

// Fetch GETs rawURL and returns the body. HTTP 4xx (other than 408/429),
// malformed URLs and oversized bodies fail without retrying.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidURL, rawURL)
	}

	var body []byte
	err = retry.Do(
		func() error {
			data, err := f.fetchOnce(ctx, rawURL)
			if err != nil {
				return err
			}
			body = data
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(f.maxRetries+1)),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.IsNonRetryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			f.logger.DebugContext(ctx, "Retrying CDN fetch", "url", rawURL, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.NewNonRetryableError("failed to build request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, errors.NewHTTPStatusError(rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", rawURL, err)
	}
	if int64(len(data)) > f.maxBody {
		return nil, fmt.Errorf("%w: %s", errors.ErrBodyTooLarge, rawURL)
	}

	return data, nil
}
