package mdfluids

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gpbraun/mdfluids/pkg/api"
)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]api.PrimaryFactory)
)

// RegisterBackend makes a primary backend factory available under name to
// OpenSession, which selects it through backend.name. Names are case
// insensitive. Registering a name twice or a nil factory panics.
func RegisterBackend(name string, factory api.PrimaryFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()

	if factory == nil {
		panic("mdfluids: RegisterBackend factory is nil")
	}
	key := strings.ToUpper(name)
	if _, dup := backends[key]; dup {
		panic("mdfluids: RegisterBackend called twice for backend " + name)
	}
	backends[key] = factory
}

// Backends returns the sorted names of the registered backends.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupBackend(name string) (api.PrimaryFactory, error) {
	backendsMu.RLock()
	f, ok := backends[strings.ToUpper(name)]
	backendsMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: backend %q (registered: %s)", api.ErrNotFound, name, strings.Join(Backends(), ", "))
	}
	return f, nil
}
