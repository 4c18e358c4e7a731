package rest

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DescriptorFactory builds a descriptor on first use.
type DescriptorFactory func() (*Descriptor, error)

// Registry is a process-wide, read-mostly cache of descriptors keyed by
// method ID. Factories run at most once per key even under concurrent first
// access; a failed build is not memoized.
type Registry struct {
	mutex       sync.RWMutex
	descriptors map[string]*Descriptor
	factories   map[string]DescriptorFactory
	group       singleflight.Group
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
		factories:   make(map[string]DescriptorFactory),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register declares a lazily built descriptor.
func (r *Registry) Register(id string, factory DescriptorFactory) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.factories[id] = factory
}

// Add stores an already built descriptor under its ID.
func (r *Registry) Add(descriptors ...*Descriptor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, d := range descriptors {
		r.descriptors[d.ID()] = d
	}
}

// Lookup returns the descriptor for id, building it on first access.
func (r *Registry) Lookup(id string) (*Descriptor, error) {
	r.mutex.RLock()
	d, ok := r.descriptors[id]
	r.mutex.RUnlock()

	if ok {
		return d, nil
	}

	result, err, _ := r.group.Do(id, func() (interface{}, error) {
		r.mutex.RLock()
		built, ok := r.descriptors[id]
		factory, registered := r.factories[id]
		r.mutex.RUnlock()

		if ok {
			return built, nil
		}

		if !registered {
			return nil, fmt.Errorf("%w: %s", ErrDescriptorNotFound, id)
		}

		built, err := factory()
		if err != nil {
			return nil, fmt.Errorf("building descriptor %s: %w", id, err)
		}

		r.mutex.Lock()
		r.descriptors[id] = built
		r.mutex.Unlock()

		return built, nil
	})
	if err != nil {
		return nil, err
	}

	descriptor, _ := result.(*Descriptor)

	return descriptor, nil
}

// IDs returns every known method ID, sorted.
func (r *Registry) IDs() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	seen := make(map[string]bool, len(r.descriptors)+len(r.factories))
	for id := range r.descriptors {
		seen[id] = true
	}

	for id := range r.factories {
		seen[id] = true
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Register declares a lazily built descriptor in the default registry.
func Register(id string, factory DescriptorFactory) {
	defaultRegistry.Register(id, factory)
}

// Lookup resolves id in the default registry.
func Lookup(id string) (*Descriptor, error) {
	return defaultRegistry.Lookup(id)
}
