package assetcache

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a CacheError.
type ErrorKind string

const (
	ErrKindNetwork        ErrorKind = "network"
	ErrKindStorage        ErrorKind = "storage"
	ErrKindDecode         ErrorKind = "decode"
	ErrKindNotInitialized ErrorKind = "not_initialized"
)

// ErrNoFallback is wrapped by a CacheError when a fetch failed and nothing
// usable was cached locally.
var ErrNoFallback = errors.New("no cached copy available")

// CacheError describes a failed cache operation. Callers that only care about
// success can treat any non-nil error as "not cached".
type CacheError struct {
	Op   string
	URL  string
	Kind ErrorKind
	Err  error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("assetcache: %s %s (%s): %v", e.Op, e.URL, e.Kind, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

func newCacheError(op, url string, kind ErrorKind, err error) *CacheError {
	return &CacheError{Op: op, URL: url, Kind: kind, Err: err}
}

// IsKind reports whether err is a CacheError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CacheError
	return errors.As(err, &ce) && ce.Kind == kind
}
