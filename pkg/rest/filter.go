package rest

import (
	"context"
	"fmt"
)

// Filter mutates a synthesized request, e.g. to authenticate it. Filters must
// be idempotent: applying the same filter twice leaves the request as
// applying it once. Each filter only replaces the headers it owns.
type Filter interface {
	Name() string
	Filter(ctx context.Context, req *Request) error
}

type funcFilter struct {
	name string
	fn   func(ctx context.Context, req *Request) error
}

func (f funcFilter) Name() string { return f.name }

func (f funcFilter) Filter(ctx context.Context, req *Request) error {
	return f.fn(ctx, req)
}

// FilterFunc names a function as a Filter.
func FilterFunc(name string, fn func(ctx context.Context, req *Request) error) Filter {
	return funcFilter{name: name, fn: fn}
}

// FilterChain applies filters in a fixed order.
type FilterChain struct {
	filters []Filter
}

// NewFilterChain creates a chain.
func NewFilterChain(filters ...Filter) *FilterChain {
	return &FilterChain{filters: append([]Filter(nil), filters...)}
}

// Append returns a new chain with filters added at the end.
func (c *FilterChain) Append(filters ...Filter) *FilterChain {
	combined := make([]Filter, 0, len(c.filters)+len(filters))
	combined = append(combined, c.filters...)
	combined = append(combined, filters...)

	return &FilterChain{filters: combined}
}

// Len returns the number of filters.
func (c *FilterChain) Len() int {
	return len(c.filters)
}

// Apply runs every filter on req. Replaying the chain recomputes each
// filter's headers in place.
func (c *FilterChain) Apply(ctx context.Context, req *Request) error {
	for _, filter := range c.filters {
		err := filter.Filter(ctx, req)
		if err != nil {
			return fmt.Errorf("filter %s failed: %w", filter.Name(), err)
		}

		req.markApplied(filter.Name())
	}

	return nil
}
