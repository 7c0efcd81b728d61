package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gpbraun/mdfluids/pkg/api"
)

// EnvBackendPath is the variable the backend library reads its install
// directory from.
const EnvBackendPath = "RPPREFIX"

// ErrBackendPathUnset is returned by BackendPath before ApplyBackendPath.
var ErrBackendPathUnset = errors.New("backend path not set")

var (
	backendMu   sync.Mutex
	backendPath string
)

// ApplyBackendPath points the backend library at path for the rest of the
// process. Repeating the same path is a no-op; a different path fails with
// api.ErrBackendPathSet.
func ApplyBackendPath(path string) error {
	if path == "" {
		return errors.New("backend path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	backendMu.Lock()
	defer backendMu.Unlock()

	switch backendPath {
	case "":
		if err := os.Setenv(EnvBackendPath, abs); err != nil {
			return err
		}
		backendPath = abs
		return nil
	case abs:
		return nil
	default:
		return fmt.Errorf("%w: %s", api.ErrBackendPathSet, backendPath)
	}
}

// BackendPath returns the path set by ApplyBackendPath.
func BackendPath() (string, error) {
	backendMu.Lock()
	defer backendMu.Unlock()

	if backendPath == "" {
		return "", ErrBackendPathUnset
	}
	return backendPath, nil
}
