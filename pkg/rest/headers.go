package rest

import (
	"net/http"
	"strings"
)

// Headers is a multi-valued header map with case-insensitive keys. The
// casing a key was first added with is kept and used on the wire.
type Headers struct {
	keys   []string
	values map[string][]string
	names  map[string]string
}

// NewHeaders creates an empty header set.
func NewHeaders() *Headers {
	return &Headers{
		values: make(map[string][]string),
		names:  make(map[string]string),
	}
}

// HeadersFrom copies an http.Header. Keys keep the casing they have in h.
func HeadersFrom(h http.Header) *Headers {
	headers := NewHeaders()

	for key, values := range h {
		for _, value := range values {
			headers.Add(key, value)
		}
	}

	return headers
}

func (h *Headers) init() {
	if h.values == nil {
		h.values = make(map[string][]string)
		h.names = make(map[string]string)
	}
}

// Add appends value to key.
func (h *Headers) Add(key, value string) {
	h.init()

	folded := strings.ToLower(key)
	if _, ok := h.names[folded]; !ok {
		h.names[folded] = key
		h.keys = append(h.keys, folded)
	}

	h.values[folded] = append(h.values[folded], value)
}

// Set replaces every value of key with value. The original casing of an
// existing key is kept.
func (h *Headers) Set(key, value string) {
	h.init()

	folded := strings.ToLower(key)
	if _, ok := h.names[folded]; !ok {
		h.names[folded] = key
		h.keys = append(h.keys, folded)
	}

	h.values[folded] = []string{value}
}

// Get returns the first value of key or "".
func (h *Headers) Get(key string) string {
	values := h.Values(key)
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

// Values returns all values of key.
func (h *Headers) Values(key string) []string {
	if h == nil || h.values == nil {
		return nil
	}

	return h.values[strings.ToLower(key)]
}

// Has reports whether key is present.
func (h *Headers) Has(key string) bool {
	return len(h.Values(key)) > 0
}

// Del removes key.
func (h *Headers) Del(key string) {
	if h == nil || h.values == nil {
		return
	}

	folded := strings.ToLower(key)
	if _, ok := h.names[folded]; !ok {
		return
	}

	delete(h.values, folded)
	delete(h.names, folded)

	for i, k := range h.keys {
		if k == folded {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)

			break
		}
	}
}

// Keys returns the keys in insertion order with their original casing.
func (h *Headers) Keys() []string {
	if h == nil {
		return nil
	}

	keys := make([]string, 0, len(h.keys))
	for _, folded := range h.keys {
		keys = append(keys, h.names[folded])
	}

	return keys
}

// Len returns the number of distinct keys.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}

	return len(h.keys)
}

// Clone returns a deep copy.
func (h *Headers) Clone() *Headers {
	clone := NewHeaders()
	if h == nil {
		return clone
	}

	for _, folded := range h.keys {
		clone.keys = append(clone.keys, folded)
		clone.names[folded] = h.names[folded]
		clone.values[folded] = append([]string(nil), h.values[folded]...)
	}

	return clone
}

// Equal reports whether both sets hold the same keys and values, ignoring
// key casing and key order.
func (h *Headers) Equal(other *Headers) bool {
	if h.Len() != other.Len() {
		return false
	}

	for _, folded := range h.keys {
		left := h.values[folded]
		right := other.Values(folded)

		if len(left) != len(right) {
			return false
		}

		for i := range left {
			if left[i] != right[i] {
				return false
			}
		}
	}

	return true
}

// HTTP renders the set as an http.Header. Keys are stored verbatim rather
// than canonicalized so the wire casing matches the casing they were added
// with.
func (h *Headers) HTTP() http.Header {
	out := make(http.Header, h.Len())
	if h == nil {
		return out
	}

	for _, folded := range h.keys {
		out[h.names[folded]] = append([]string(nil), h.values[folded]...)
	}

	return out
}
