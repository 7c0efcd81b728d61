package api

import (
	"fmt"
	"strings"
	"sync"
)

// HandlerRegistry maps property keys to user handlers. Registering a handler
// also registers its metadata in the bound property registry.
type HandlerRegistry struct {
	mu       sync.RWMutex
	props    *PropertyRegistry
	handlers map[string]PropertyHandler
}

// NewHandlerRegistry creates a handler registry bound to props.
func NewHandlerRegistry(props *PropertyRegistry) *HandlerRegistry {
	return &HandlerRegistry{
		props:    props,
		handlers: make(map[string]PropertyHandler),
	}
}

// Properties returns the property registry the handlers are bound to.
func (h *HandlerRegistry) Properties() *PropertyRegistry { return h.props }

// Register adds meta to the property registry and binds fn to its key. A
// key already present in either registry fails with ErrDuplicateKey.
func (h *HandlerRegistry) Register(meta PropertyMetadata, fn PropertyHandler) error {
	if fn == nil {
		return fmt.Errorf("%w: property %q has nil handler", ErrInvalidMetadata, meta.Key)
	}
	key := strings.ToUpper(strings.TrimSpace(meta.Key))
	if key == "" {
		return fmt.Errorf("%w: property key is required", ErrInvalidMetadata)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.handlers[key]; exists {
		return fmt.Errorf("%w: handler %q already registered", ErrDuplicateKey, key)
	}
	if err := h.props.registerHandled(meta); err != nil {
		return err
	}
	h.handlers[key] = fn
	return nil
}

// Lookup returns the handler for a property key.
func (h *HandlerRegistry) Lookup(key string) (PropertyHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	fn, ok := h.handlers[strings.ToUpper(strings.TrimSpace(key))]
	return fn, ok
}

// Len returns the number of registered handlers.
func (h *HandlerRegistry) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}
