// Package cache stores successful GET responses of descriptors that declare
// a cache TTL. Backends: in-memory LRU, NATS JetStream key-value, and a
// no-op cache; Chain layers them as L1/L2.
package cache

import (
	"context"
	"errors"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrKeyNotFound           = errors.New("key not found")
	ErrEntryExpired          = errors.New("entry expired")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
)

// Entry is a cached response.
type Entry struct {
	StatusCode int                 `json:"status_code"`
	Header     map[string][]string `json:"header,omitempty"`
	Data       []byte              `json:"data"`
	ETag       string              `json:"etag,omitempty"`
	ExpiresAt  time.Time           `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Cache is a response cache backend.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}
