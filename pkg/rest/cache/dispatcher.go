package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// Dispatcher serves GET requests of descriptors with a cache TTL from a
// cache and forwards everything else.
type Dispatcher struct {
	next   rest.Dispatcher
	cache  Cache
	logger rest.Logger
	now    func() time.Time
}

// DispatcherOption configures the caching dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger rest.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// NewDispatcher wraps next with cache.
func NewDispatcher(next rest.Dispatcher, cache Cache, opts ...DispatcherOption) *Dispatcher {
	dispatcher := &Dispatcher{
		next:   next,
		cache:  cache,
		logger: rest.NopLogger(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(dispatcher)
	}

	return dispatcher
}

// Key returns the cache key of a request: its request line, the media types
// it accepts and a digest of its credentials. Callers with different
// Authorization values never share entries.
func Key(req *rest.Request) string {
	key := req.RequestLine() + "\n" + req.Header.Get(constants.HeaderAccept)

	credentials := req.Header.Values(constants.HeaderAuthorization)
	if len(credentials) == 0 {
		return key
	}

	digest := sha256.Sum256([]byte(strings.Join(credentials, "\n")))

	return key + "\n" + hex.EncodeToString(digest[:])
}

func ttl(req *rest.Request) time.Duration {
	d := req.Descriptor()
	if d == nil || req.Method != http.MethodGet {
		return 0
	}

	return d.CacheTTL()
}

// Dispatch implements rest.Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, req *rest.Request) (*rest.Response, error) {
	lifetime := ttl(req)
	if lifetime <= 0 {
		return d.next.Dispatch(ctx, req)
	}

	key := Key(req)

	entry, err := d.cache.Get(ctx, key)
	if err == nil {
		d.logger.Debug("Cache hit", map[string]interface{}{"request": req.RequestLine()})

		return entry.response(), nil
	}

	resp, err := d.next.Dispatch(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := resp.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading cacheable response: %w", err)
	}

	entry = &Entry{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.HTTP(),
		Data:       data,
		ETag:       resp.Header.Get("ETag"),
		ExpiresAt:  d.now().Add(lifetime),
	}

	err = d.cache.Set(ctx, key, entry)
	if err != nil {
		d.logger.Warn("Failed to cache response", map[string]interface{}{
			"request": req.RequestLine(),
			"error":   err.Error(),
		})
	}

	return entry.response(), nil
}

// Invalidate drops the cached response of req.
func (d *Dispatcher) Invalidate(ctx context.Context, req *rest.Request) error {
	return d.cache.Delete(ctx, Key(req))
}

func (e *Entry) response() *rest.Response {
	return &rest.Response{
		StatusCode: e.StatusCode,
		Status:     fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode)),
		Header:     rest.HeadersFrom(http.Header(e.Header)),
		Body:       io.NopCloser(bytes.NewReader(e.Data)),
	}
}
