package selector

import (
	"slices"
	"sync"
)

// Registry maps discriminator values to entries. It is append-only: an entry
// is never replaced or removed once stored.
//
// Registry is safe for concurrent use. Writes are serialized; lookups take a
// read lock and never mutate state.
type Registry[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

// NewRegistry creates an empty Registry.
func NewRegistry[V any]() *Registry[V] {
	return &Registry[V]{entries: make(map[string]V)}
}

// LoadOrStore stores v under key unless key is already taken. It returns
// the entry now stored under key and whether it was already present, in
// which case the registry is unchanged.
func (r *Registry[V]) LoadOrStore(key string, v V) (actual V, loaded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[key]; ok {
		return existing, true
	}
	r.entries[key] = v
	return v, false
}

// Load returns the entry registered under key.
func (r *Registry[V]) Load(key string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.entries[key]
	return v, ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry[V]) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	r.mu.RUnlock()

	slices.Sort(keys)
	return keys
}

// Len returns the number of registered entries.
func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
