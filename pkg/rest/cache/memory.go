package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/fivetwenty-io/restpipe/internal/constants"
)

type memoryItem struct {
	key   string
	entry *Entry
}

// MemoryCache is an in-process LRU cache.
type MemoryCache struct {
	mutex   sync.Mutex
	maxSize int
	order   *list.List
	items   map[string]*list.Element
}

// NewMemoryCache creates a cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	return &MemoryCache{
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[string]*list.Element),
	}
}

// Get returns a live entry.
func (c *MemoryCache) Get(_ context.Context, key string) (*Entry, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	element, ok := c.items[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	item, _ := element.Value.(*memoryItem)
	if item.entry.Expired(time.Now()) {
		c.remove(element)

		return nil, ErrEntryExpired
	}

	c.order.MoveToFront(element)

	return item.entry, nil
}

// Set stores an entry, evicting the least recently used one when full.
func (c *MemoryCache) Set(_ context.Context, key string, entry *Entry) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if element, ok := c.items[key]; ok {
		item, _ := element.Value.(*memoryItem)
		item.entry = entry
		c.order.MoveToFront(element)

		return nil
	}

	c.items[key] = c.order.PushFront(&memoryItem{key: key, entry: entry})

	for c.order.Len() > c.maxSize {
		c.remove(c.order.Back())
	}

	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if element, ok := c.items[key]; ok {
		c.remove(element)
	}

	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element)

	return nil
}

// Has reports whether a live entry exists.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.order.Len()
}

func (c *MemoryCache) remove(element *list.Element) {
	item, _ := element.Value.(*memoryItem)
	c.order.Remove(element)
	delete(c.items, item.key)
}
