package mdfluids

import (
	"context"
	"errors"
	"fmt"

	"github.com/gpbraun/mdfluids/internal/engine"
	"github.com/gpbraun/mdfluids/pkg/api"
)

// DefaultRoundDecimals is the output precision of fluids created without an
// explicit one.
const DefaultRoundDecimals = engine.DefaultRoundDecimals

// NoRounding disables output rounding when used as a precision.
const NoRounding = -1

// SessionConfig configures a Session. Only Backend is required.
type SessionConfig struct {
	// Backend creates the primary backend handle of each fluid.
	Backend api.PrimaryFactory
	// Reference resolves properties the primary backend cannot compute.
	Reference api.ReferenceBackend

	// Properties and Phases default to the built-in registries.
	Properties *api.PropertyRegistry
	Phases     *api.PhaseRegistry

	Observer   api.Observer
	RootSearch api.RootSearchPolicy

	// RoundDecimals is the default output precision. Nil selects
	// DefaultRoundDecimals and a negative value disables rounding.
	RoundDecimals *int

	// Archive, when set, stores every table produced by Sweep.
	Archive TableStore
}

// Session shares registries, handlers, the normalizing fluid and the
// backends between the fluids it creates.
//
// Typical usage:
//
//	s, _ := mdfluids.NewSession(mdfluids.SessionConfig{Backend: refprop.Open})
//	air, _ := s.NewFluid("Nitrogen&Oxygen", mdfluids.WithMoleFractions(0.79, 0.21))
//	_ = air.SetState(ctx, "T", "P", [2]float64{300, 101325}, false)
//	vals, _ := air.CalcProps(ctx, []string{"D", "VIS", "PHASE"})
type Session struct {
	cfg     engine.Config
	factory api.PrimaryFactory
	archive TableStore

	closers []func() error
}

// Decimals returns a pointer to n for SessionConfig.RoundDecimals.
func Decimals(n int) *int { return &n }

// NewSession builds a session and registers the built-in PHASE, TR and PR
// handlers on keys not already present in the property registry.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Backend == nil {
		return nil, errors.New("mdfluids: primary backend factory is required")
	}

	props := cfg.Properties
	if props == nil {
		props = api.NewDefaultPropertyRegistry()
	}
	phases := cfg.Phases
	if phases == nil {
		phases = api.NewDefaultPhaseRegistry()
	}
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}

	decimals := DefaultRoundDecimals
	if cfg.RoundDecimals != nil {
		decimals = *cfg.RoundDecimals
	}
	if decimals < 0 {
		decimals = NoRounding
	}

	handlers := api.NewHandlerRegistry(props)
	if err := RegisterBuiltinHandlers(handlers); err != nil {
		return nil, err
	}

	return &Session{
		cfg: engine.Config{
			Properties:    props,
			Phases:        phases,
			Handlers:      handlers,
			Normalizer:    api.NewNormalizer(),
			Reference:     cfg.Reference,
			Observer:      obs,
			RootSearch:    cfg.RootSearch,
			RoundDecimals: decimals,
		},
		factory: cfg.Backend,
		archive: cfg.Archive,
	}, nil
}

// Properties returns the session property registry.
func (s *Session) Properties() *api.PropertyRegistry { return s.cfg.Properties }

// Phases returns the session phase registry.
func (s *Session) Phases() *api.PhaseRegistry { return s.cfg.Phases }

// Handlers returns the session handler registry.
func (s *Session) Handlers() *api.HandlerRegistry { return s.cfg.Handlers }

// Archive returns the configured table store, nil when none.
func (s *Session) Archive() TableStore { return s.archive }

// Close releases the stores the session opened itself, see OpenSession.
// Fluids are closed by their owners.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// FluidOption configures a fluid created by Session.NewFluid.
type FluidOption func(*fluidOptions)

type fluidOptions struct {
	decimals  *int
	fractions []float64
	phase     string
	impose    bool
}

// WithRoundDecimals overrides the session precision; NoRounding disables
// rounding.
func WithRoundDecimals(n int) FluidOption {
	return func(o *fluidOptions) { o.decimals = &n }
}

// WithMoleFractions sets the mixture composition right after creation.
func WithMoleFractions(z ...float64) FluidOption {
	return func(o *fluidOptions) { o.fractions = append([]float64(nil), z...) }
}

// WithPhase specifies the phase by key; with impose the phase is kept for
// the fluid's lifetime.
func WithPhase(key string, impose bool) FluidOption {
	return func(o *fluidOptions) {
		o.phase = key
		o.impose = impose
	}
}

// NewFluid creates a fluid for composition with a fresh backend handle.
func (s *Session) NewFluid(composition string, opts ...FluidOption) (Fluid, error) {
	var o fluidOptions
	for _, opt := range opts {
		opt(&o)
	}

	backend, err := s.factory(composition)
	if err != nil {
		return nil, fmt.Errorf("mdfluids: open backend for %q: %w", composition, err)
	}

	cfg := s.cfg
	if o.decimals != nil {
		cfg.RoundDecimals = *o.decimals
	}
	f, err := engine.NewFluid(cfg, composition, backend)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	if o.fractions != nil {
		if err := f.SetMoleFractions(o.fractions); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	if o.phase != "" {
		if err := f.SpecifyPhase(o.phase, o.impose); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

// SetNormalizingFluid declares the fluid "*" tokens are divided by. The
// session does not take ownership of f.
func (s *Session) SetNormalizingFluid(f Fluid) {
	s.cfg.Normalizer.Set(f)
}

// NormalizingFluid returns the declared normalizing fluid or
// ErrNoNormalizingFluid.
func (s *Session) NormalizingFluid() (Fluid, error) {
	return s.cfg.Normalizer.Get()
}

// Sweep flashes f at every row of values for the state tokens a and b and
// evaluates tokens at each state. The table is archived when the session
// has an archive.
func (s *Session) Sweep(ctx context.Context, f Fluid, a, b string, rows [][2]float64, tokens []string) (*Table, error) {
	t, err := f.SetStatesCalcProps(ctx, a, b, rows, tokens)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Session) save(ctx context.Context, t *Table) error {
	if s.archive == nil {
		return nil
	}
	if err := s.archive.SaveTable(ctx, t); err != nil {
		return fmt.Errorf("mdfluids: archive table %s: %w", t.ID, err)
	}
	return nil
}
