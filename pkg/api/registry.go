package api

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Item is anything stored in a Registry.
type Item interface {
	RegistryKey() string
}

// Registry stores immutable items by case-insensitive key.
type Registry[T Item] struct {
	mu    sync.RWMutex
	kind  string
	items map[string]T
}

// NewRegistry creates an empty registry. kind is used in error messages.
func NewRegistry[T Item](kind string) *Registry[T] {
	return &Registry[T]{
		kind:  kind,
		items: make(map[string]T),
	}
}

func normalizeKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// Register adds item, failing with ErrDuplicateKey if the key exists.
func (r *Registry[T]) Register(item T) error {
	return r.registerWith(item, nil)
}

// registerWith runs conflict against every existing item under the write
// lock before inserting.
func (r *Registry[T]) registerWith(item T, conflict func(existing T) error) error {
	key := normalizeKey(item.RegistryKey())
	if key == "" {
		return fmt.Errorf("%w: %s key is required", ErrInvalidMetadata, r.kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[key]; exists {
		return fmt.Errorf("%w: %s %q already registered", ErrDuplicateKey, r.kind, item.RegistryKey())
	}
	if conflict != nil {
		for _, existing := range r.items {
			if err := conflict(existing); err != nil {
				return err
			}
		}
	}
	r.items[key] = item
	return nil
}

// RegisterMany registers items in order and stops at the first failure.
func (r *Registry[T]) RegisterMany(items ...T) error {
	for _, item := range items {
		if err := r.Register(item); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the item for key.
func (r *Registry[T]) Get(key string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[normalizeKey(key)]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", ErrNotFound, r.kind, key)
	}
	return item, nil
}

// Has reports whether key is registered.
func (r *Registry[T]) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.items[normalizeKey(key)]
	return ok
}

// GetMany looks up every key, failing on the first missing one.
func (r *Registry[T]) GetMany(keys ...string) ([]T, error) {
	out := make([]T, 0, len(keys))
	for _, key := range keys {
		item, err := r.Get(key)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// All returns a snapshot copy keyed by the canonical upper-case key.
func (r *Registry[T]) All() map[string]T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]T, len(r.items))
	for k, v := range r.items {
		out[k] = v
	}
	return out
}

// Keys returns the canonical keys in sorted order.
func (r *Registry[T]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.items))
	for k := range r.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered items.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// scan calls fn for every item until it returns true.
func (r *Registry[T]) scan(fn func(T) bool) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if fn(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}
