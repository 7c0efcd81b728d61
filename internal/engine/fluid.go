package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gpbraun/mdfluids/pkg/api"
)

// fluidImpl is the synchronous, single-owner Fluid implementation.
type fluidImpl struct {
	cfg Config

	id          string
	composition string
	components  []string
	backend     api.PrimaryBackend

	phase        *api.PhaseMetadata
	phaseImposed bool
	last         *api.State

	roundDecimals int // < 0 disables rounding
}

// Config describes the collaborators shared by the fluids of a session.
type Config struct {
	Properties *api.PropertyRegistry
	Phases     *api.PhaseRegistry
	Handlers   *api.HandlerRegistry
	Normalizer *api.Normalizer
	// Reference is optional; properties that need it fail without one.
	Reference  api.ReferenceBackend
	Observer   api.Observer
	RootSearch api.RootSearchPolicy
	// RoundDecimals is the rounding precision; negative disables rounding.
	RoundDecimals int
}

// DefaultRoundDecimals is the precision used when none is configured.
const DefaultRoundDecimals = 6

// DefaultConfig returns a Config with default registries, no reference
// backend and 6-decimal rounding.
func DefaultConfig() Config {
	props := api.NewDefaultPropertyRegistry()
	return Config{
		Properties:    props,
		Phases:        api.NewDefaultPhaseRegistry(),
		Handlers:      api.NewHandlerRegistry(props),
		Normalizer:    api.NewNormalizer(),
		Observer:      api.NoopObserver{},
		RootSearch:    api.DefaultRootSearchPolicy(),
		RoundDecimals: DefaultRoundDecimals,
	}
}

func (c Config) withDefaults() (Config, error) {
	if c.Properties == nil {
		if c.Handlers != nil {
			c.Properties = c.Handlers.Properties()
		} else {
			c.Properties = api.NewDefaultPropertyRegistry()
		}
	}
	if c.Handlers == nil {
		c.Handlers = api.NewHandlerRegistry(c.Properties)
	}
	if c.Handlers.Properties() != c.Properties {
		return c, errors.New("handler registry is bound to a different property registry")
	}
	if c.Phases == nil {
		c.Phases = api.NewDefaultPhaseRegistry()
	}
	if c.Normalizer == nil {
		c.Normalizer = api.NewNormalizer()
	}
	if c.Observer == nil {
		c.Observer = api.NoopObserver{}
	}
	if c.RootSearch.Tolerance <= 0 {
		c.RootSearch.Tolerance = api.DefaultRootSearchPolicy().Tolerance
	}
	if c.RootSearch.MaxIterations <= 0 {
		c.RootSearch.MaxIterations = api.DefaultRootSearchPolicy().MaxIterations
	}
	return c, nil
}

// NewFluid creates a Fluid for composition that exclusively owns backend.
func NewFluid(cfg Config, composition string, backend api.PrimaryBackend) (api.Fluid, error) {
	if backend == nil {
		return nil, errors.New("primary backend is required")
	}
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	components := append([]string(nil), backend.FluidNames()...)
	if len(components) == 0 {
		components = splitComposition(composition)
	}

	return &fluidImpl{
		cfg:           cfg,
		id:            uuid.NewString(),
		composition:   composition,
		components:    components,
		backend:       backend,
		roundDecimals: cfg.RoundDecimals,
	}, nil
}

func splitComposition(composition string) []string {
	var out []string
	for _, part := range strings.Split(composition, "&") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (f *fluidImpl) ID() string          { return f.id }
func (f *fluidImpl) Composition() string { return f.composition }

func (f *fluidImpl) Components() []string {
	return append([]string(nil), f.components...)
}

func (f *fluidImpl) IsMixture() bool { return len(f.components) > 1 }

func (f *fluidImpl) Backend() api.PrimaryBackend { return f.backend }

// SetMoleFractions forwards the composition to the backend. The previous
// converged state no longer describes this mixture and is dropped.
func (f *fluidImpl) SetMoleFractions(z []float64) error {
	if len(z) != len(f.components) {
		return fmt.Errorf("mole fractions: got %d values for %d components", len(z), len(f.components))
	}
	for i, x := range z {
		if x < 0 {
			return fmt.Errorf("mole fractions: negative value %g for %s", x, f.components[i])
		}
	}
	if err := f.backend.SetMoleFractions(append([]float64(nil), z...)); err != nil {
		return err
	}
	f.last = nil
	return nil
}

func (f *fluidImpl) MoleFractions() []float64 {
	return append([]float64(nil), f.backend.MoleFractions()...)
}

func (f *fluidImpl) SpecifyPhase(key string, impose bool) error {
	phase, err := f.cfg.Phases.Get(key)
	if err != nil {
		return err
	}
	if phase.PrimaryIndex != api.PhaseUnknown {
		if err := f.backend.SpecifyPhase(phase.PrimaryIndex); err != nil {
			return err
		}
	}
	f.phase = &phase
	if impose {
		f.phaseImposed = true
	}
	return nil
}

func (f *fluidImpl) Phase() (api.PhaseMetadata, bool) {
	if f.phase == nil {
		return api.PhaseMetadata{}, false
	}
	return *f.phase, true
}

func (f *fluidImpl) PhaseImposed() bool { return f.phaseImposed }

func (f *fluidImpl) LastState() (api.State, bool) {
	if f.last == nil {
		return api.State{}, false
	}
	return *f.last, true
}

func (f *fluidImpl) RoundDecimals() (int, bool) {
	if f.roundDecimals < 0 {
		return 0, false
	}
	return f.roundDecimals, true
}

func (f *fluidImpl) Close() error {
	return f.backend.Close()
}
