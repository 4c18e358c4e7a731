package cache

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/restpipe/internal/constants"
)

// Type represents the type of cache backend.
type Type string

const (
	// TypeMemory represents in-memory cache.
	TypeMemory Type = "memory"

	// TypeNATS represents NATS KV cache.
	TypeNATS Type = "nats"

	// TypeNone represents no caching.
	TypeNone Type = "none"
)

// Config configures the cache backend.
type Config struct {
	// Type is the cache backend type
	Type Type `yaml:"type" mapstructure:"type"`

	// MaxSize bounds the memory cache.
	MaxSize int `yaml:"max_size" mapstructure:"max_size"`

	// NATS KV cache configuration
	NATS *NATSKVConfig `yaml:"nats" mapstructure:"nats"`
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		Type:    TypeMemory,
		MaxSize: constants.DefaultCacheSize,
	}
}

// NewFromConfig creates a cache backend from configuration.
func NewFromConfig(config *Config) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Type {
	case TypeMemory, "":
		return NewMemoryCache(config.MaxSize), nil

	case TypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)

	case TypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always returns an error (nothing cached).
func (c *NoOpCache) Get(context.Context, string) (*Entry, error) {
	return nil, ErrCacheDisabled
}

// Set does nothing.
func (c *NoOpCache) Set(context.Context, string, *Entry) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(context.Context, string) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(context.Context) error {
	return nil
}

// Has always returns false.
func (c *NoOpCache) Has(context.Context, string) bool {
	return false
}

// Chain implements a chain of cache backends (L1, L2, etc.)
type Chain struct {
	caches []Cache
}

// NewChain creates a new cache chain.
func NewChain(caches ...Cache) *Chain {
	return &Chain{
		caches: caches,
	}
}

// Get retrieves an item from the cache chain and copies it into the
// faster levels it was missing from.
func (c *Chain) Get(ctx context.Context, key string) (*Entry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err == nil {
			for j := range i {
				_ = c.caches[j].Set(ctx, key, entry)
			}

			return entry, nil
		}
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set stores an item in all caches.
func (c *Chain) Set(ctx context.Context, key string, entry *Entry) error {
	var lastErr error

	for _, cache := range c.caches {
		err := cache.Set(ctx, key, entry)
		if err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Delete removes an item from all caches.
func (c *Chain) Delete(ctx context.Context, key string) error {
	var lastErr error

	for _, cache := range c.caches {
		err := cache.Delete(ctx, key)
		if err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Clear removes all items from all caches.
func (c *Chain) Clear(ctx context.Context) error {
	var lastErr error

	for _, cache := range c.caches {
		err := cache.Clear(ctx)
		if err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Has checks if a key exists in any cache.
func (c *Chain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}
