package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/fivetwenty-io/restpipe/internal/constants"
	"github.com/fivetwenty-io/restpipe/pkg/rest"
)

// NATSKVConfig configures the NATS key-value cache.
type NATSKVConfig struct {
	// URL of the NATS server. Ignored when Conn is set.
	URL string `yaml:"url" mapstructure:"url"`
	// Bucket is the key-value bucket, created when missing.
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
	// TTL is the bucket level expiry.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
	// Name identifies the connection on the server.
	Name string `yaml:"name" mapstructure:"name"`
	// Conn reuses an existing connection. It is not closed by Close.
	Conn *comms.Conn `yaml:"-" mapstructure:"-"`
	// Logger reports connection state changes.
	Logger rest.Logger `yaml:"-" mapstructure:"-"`
}

// NATSKVCache stores entries in a JetStream key-value bucket, so several
// processes share one cache.
type NATSKVCache struct {
	conn    *comms.Conn
	ownConn bool
	kv      comms.KeyValue
}

// NewNATSKVCache connects to NATS and opens or creates the bucket.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	if config == nil {
		return nil, ErrNATSConfigRequired
	}

	bucket := config.Bucket
	if bucket == "" {
		bucket = constants.DefaultNATSBucket
	}

	conn := config.Conn
	ownConn := false

	if conn == nil {
		var err error

		conn, err = connect(config)
		if err != nil {
			return nil, err
		}

		ownConn = true
	}

	js, err := conn.JetStream()
	if err != nil {
		closeOwned(conn, ownConn)

		return nil, fmt.Errorf("failed to open JetStream context: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if errors.Is(err, comms.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&comms.KeyValueConfig{
			Bucket:      bucket,
			Description: "restpipe response cache",
			TTL:         config.TTL,
		})
	}

	if err != nil {
		closeOwned(conn, ownConn)

		return nil, fmt.Errorf("failed to open key-value bucket %s: %w", bucket, err)
	}

	return &NATSKVCache{conn: conn, ownConn: ownConn, kv: kv}, nil
}

func connect(config *NATSKVConfig) (*comms.Conn, error) {
	logger := config.Logger
	if logger == nil {
		logger = rest.NopLogger()
	}

	name := config.Name
	if name == "" {
		name = "restpipe-cache"
	}

	url := config.URL
	if url == "" {
		url = comms.DefaultURL
	}

	conn, err := comms.Connect(url,
		comms.Name(name),
		comms.Timeout(constants.DefaultNATSTimeout),
		comms.ReconnectWait(2*time.Second),
		comms.MaxReconnects(60),
		comms.DisconnectErrHandler(func(_ *comms.Conn, err error) {
			logger.Warn("NATS disconnected", map[string]interface{}{"error": fmt.Sprint(err)})
		}),
		comms.ReconnectHandler(func(nc *comms.Conn) {
			logger.Info("NATS reconnected", map[string]interface{}{"url": nc.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	return conn, nil
}

func closeOwned(conn *comms.Conn, owned bool) {
	if owned {
		conn.Close()
	}
}

// storageKey maps arbitrary cache keys onto the key-value key alphabet.
func storageKey(key string) string {
	sum := sha256.Sum256([]byte(key))

	return hex.EncodeToString(sum[:])
}

// Get returns a live entry.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*Entry, error) {
	stored, err := c.kv.Get(storageKey(key))
	if errors.Is(err, comms.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry Entry

	err = json.Unmarshal(stored.Value(), &entry)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}

	if entry.Expired(time.Now()) {
		_ = c.Delete(ctx, key)

		return nil, ErrEntryExpired
	}

	return &entry, nil
}

// Set stores an entry.
func (c *NATSKVCache) Set(_ context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	_, err = c.kv.Put(storageKey(key), data)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Delete removes an entry.
func (c *NATSKVCache) Delete(_ context.Context, key string) error {
	err := c.kv.Delete(storageKey(key))
	if err != nil && !errors.Is(err, comms.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// Clear purges every key of the bucket.
func (c *NATSKVCache) Clear(_ context.Context) error {
	keys, err := c.kv.Keys()
	if errors.Is(err, comms.ErrNoKeysFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to list cache keys: %w", err)
	}

	for _, key := range keys {
		err := c.kv.Purge(key)
		if err != nil {
			return fmt.Errorf("failed to purge cache key: %w", err)
		}
	}

	return nil
}

// Has reports whether a live entry exists.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Close closes the connection when the cache opened it.
func (c *NATSKVCache) Close() {
	closeOwned(c.conn, c.ownConn)
}
