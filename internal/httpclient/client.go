// Package httpclient provides a centralized HTTP client factory with preset configurations.
package httpclient

import (
	"net/http"
	"time"
)

// Preset timeout durations for common use cases.
const (
	// DefaultTimeout is the standard timeout for most HTTP requests (30s).
	DefaultTimeout = 30 * time.Second

	// ManifestTimeout bounds the small version manifest request (10s).
	ManifestTimeout = 10 * time.Second

	// DefaultUserAgent identifies the cache to the CDN.
	DefaultUserAgent = "assetcache/1.0"
)

// Options configures an HTTP client.
type Options struct {
	Timeout   time.Duration
	Transport http.RoundTripper
	UserAgent string
}

// Option is a functional option for configuring HTTP clients.
type Option func(*Options)

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithTransport sets a custom transport.
func WithTransport(t http.RoundTripper) Option {
	return func(o *Options) {
		o.Transport = t
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(o *Options) {
		o.UserAgent = ua
	}
}

// New creates a new HTTP client with the given options.
// If no timeout is specified, DefaultTimeout (30s) is used.
func New(opts ...Option) *http.Client {
	cfg := &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.UserAgent != "" {
		client.Transport = &userAgentTransport{base: base, userAgent: cfg.UserAgent}
	} else if cfg.Transport != nil {
		client.Transport = cfg.Transport
	}

	return client
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}
