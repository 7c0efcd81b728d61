package api

import "sync"

// Normalizer holds the fluid that normalized ("*") values are expressed
// against. It is shared by every fluid of a session and is not owned by any
// of them.
type Normalizer struct {
	mu    sync.RWMutex
	fluid Fluid
}

// NewNormalizer returns an empty Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Set declares the normalizing fluid. A nil fluid clears it. Normalized
// properties need a fluid created by mdfluids; other implementations fail
// with ErrUnsupportedProperty.
func (n *Normalizer) Set(f Fluid) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fluid = f
}

// Get returns the normalizing fluid or ErrNoNormalizingFluid.
func (n *Normalizer) Get() (Fluid, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.fluid == nil {
		return nil, ErrNoNormalizingFluid
	}
	return n.fluid, nil
}
