package testutil

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gpbraun/mdfluids/pkg/api"
)

// Constants of the synthetic equation of state used by FakePrimary.
const (
	FakeR  = 8.314462618
	FakeTc = 126.2
	FakePc = 3.3958e6
	FakeDc = 11183.9

	// fakeA shapes the saturation curve, fakeW is the envelope width of
	// mixtures at zero pressure.
	fakeA = 5.0
	fakeW = 8.0
)

// FakePrimary is a deterministic in-memory primary backend. It models an
// ideal gas with a synthetic saturation envelope: pure fluids have a single
// saturation curve, mixtures a band between bubble and dew temperatures in
// which (P, T) flashes fail the way real two-phase flashes do.
type FakePrimary struct {
	names []string
	z     []float64

	flashed    bool
	t, p, d, q float64
	specified  api.PhaseIndex

	// UpdateErr, when set, is returned by every update.
	UpdateErr error
	// PhaseErr, when set, is returned by Phase.
	PhaseErr error

	Updates          int
	GuessedUpdates   int
	LastGuesses      api.Guesses
	SpecifiedPhases  []api.PhaseIndex
	UnspecifiedCount int
	Closed           bool
}

var _ api.PrimaryBackend = (*FakePrimary)(nil)
var _ api.VectorBackend = (*FakePrimary)(nil)

// NewFakePrimary creates a backend for an "&"-separated composition with
// equal mole fractions.
func NewFakePrimary(composition string) *FakePrimary {
	var names []string
	for _, n := range strings.Split(composition, "&") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	z := make([]float64, len(names))
	for i := range z {
		z[i] = 1 / float64(len(names))
	}
	return &FakePrimary{names: names, z: z}
}

// FakeFactory is an api.PrimaryFactory producing FakePrimary backends.
func FakeFactory(composition string) (api.PrimaryBackend, error) {
	b := NewFakePrimary(composition)
	if len(b.names) == 0 {
		return nil, fmt.Errorf("empty composition %q", composition)
	}
	return b, nil
}

func (b *FakePrimary) width() float64 {
	if len(b.names) > 1 {
		return fakeW
	}
	return 0
}

// BubbleT is the bubble temperature at pressure p (p < FakePc).
func (b *FakePrimary) BubbleT(p float64) float64 {
	return FakeTc / (1 - math.Log(p/FakePc)/fakeA)
}

// DewT is the dew temperature at pressure p (p < FakePc).
func (b *FakePrimary) DewT(p float64) float64 {
	return b.BubbleT(p) + b.width()*(1-p/FakePc)
}

func (b *FakePrimary) quality(t, p float64) float64 {
	if p >= FakePc {
		if t >= FakeTc {
			return 1.5
		}
		return -0.5
	}
	tb, td := b.BubbleT(p), b.DewT(p)
	switch {
	case t < tb:
		return -0.5
	case t > td:
		return 1.5
	case td == tb:
		return 1
	default:
		return (t - tb) / (td - tb)
	}
}

func (b *FakePrimary) FluidNames() []string { return append([]string(nil), b.names...) }

func (b *FakePrimary) SetMoleFractions(z []float64) error {
	if len(z) != len(b.names) {
		return fmt.Errorf("expected %d mole fractions, got %d", len(b.names), len(z))
	}
	b.z = append([]float64(nil), z...)
	b.flashed = false
	return nil
}

func (b *FakePrimary) MoleFractions() []float64 { return append([]float64(nil), b.z...) }

func (b *FakePrimary) Update(a api.Param, va float64, c api.Param, vc float64) error {
	b.Updates++
	if b.UpdateErr != nil {
		return b.UpdateErr
	}
	in := map[api.Param]float64{a: va, c: vc}
	if len(in) != 2 {
		return fmt.Errorf("duplicate input %s", a)
	}

	t, hasT := in[api.ParamT]
	p, hasP := in[api.ParamP]
	d, hasD := in[api.ParamDmolar]
	q, hasQ := in[api.ParamQ]

	switch {
	case hasP && hasT:
		if t <= 0 || p <= 0 {
			return fmt.Errorf("invalid inputs T=%g P=%g", t, p)
		}
		if p < FakePc && b.width() > 0 && t > b.BubbleT(p) && t < b.DewT(p) {
			return errors.New("two-phase flash failed to converge for PT inputs")
		}
	case hasD && hasT:
		if t <= 0 || d <= 0 {
			return fmt.Errorf("invalid inputs T=%g D=%g", t, d)
		}
		// re-flashing the current state keeps it bit-identical
		if b.flashed && d == b.d && t == b.t {
			p = b.p
		} else {
			p = d * FakeR * t
		}
	case hasQ && hasP:
		if q < 0 || q > 1 || p <= 0 || p >= FakePc {
			return fmt.Errorf("invalid saturation inputs Q=%g P=%g", q, p)
		}
		tb := b.BubbleT(p)
		t = tb + q*(b.DewT(p)-tb)
	case hasQ && hasT:
		if q < 0 || q > 1 || t <= 0 || t >= FakeTc {
			return fmt.Errorf("invalid saturation inputs Q=%g T=%g", q, t)
		}
		p = b.saturationP(q, t)
	default:
		return fmt.Errorf("input pair %s, %s not supported", a, c)
	}

	b.t, b.p = t, p
	if hasD {
		b.d = d
	} else {
		b.d = p / (FakeR * t)
	}
	if hasQ {
		b.q = q
	} else {
		b.q = b.quality(t, p)
	}
	b.flashed = true
	return nil
}

// saturationP finds the pressure at which quality q sits at temperature t.
// T(q, P) increases with P, so bisection on P is enough.
func (b *FakePrimary) saturationP(q, t float64) float64 {
	lo, hi := FakePc*1e-9, FakePc*(1-1e-12)
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		tb := b.BubbleT(mid)
		if tb+q*(b.DewT(mid)-tb) < t {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

func (b *FakePrimary) UpdateWithGuesses(a api.Param, va float64, c api.Param, vc float64, g api.Guesses) error {
	b.GuessedUpdates++
	b.LastGuesses = g
	return b.Update(a, va, c, vc)
}

func (b *FakePrimary) KeyedOutput(p api.Param) (float64, error) {
	switch p {
	case api.ParamTCritical:
		return FakeTc, nil
	case api.ParamPCritical:
		return FakePc, nil
	case api.ParamDmolarCritical:
		return FakeDc, nil
	}
	if !b.flashed {
		return 0, errors.New("state not set")
	}
	switch p {
	case api.ParamT:
		return b.t, nil
	case api.ParamP:
		return b.p, nil
	case api.ParamDmolar:
		return b.d, nil
	case api.ParamQ:
		return b.q, nil
	case api.ParamPIP:
		return 1 + b.t/FakeTc, nil
	case api.ParamViscosity:
		return 1e-5 * math.Pow(b.t/FakeTc, 0.7) * (1 + b.d/FakeDc), nil
	case api.ParamConductivity:
		return 0.02 * b.t / FakeTc, nil
	default:
		return 0, fmt.Errorf("output %s is not scalar", p)
	}
}

func (b *FakePrimary) KeyedOutputVector(p api.Param) ([]float64, error) {
	if p != api.ParamMoleFractions {
		return nil, fmt.Errorf("output %s is not a vector", p)
	}
	return b.MoleFractions(), nil
}

// Phase classifies the current state. Only pure fluids are supported, like
// backends that cannot classify mixture states.
func (b *FakePrimary) Phase() (api.PhaseIndex, error) {
	if b.PhaseErr != nil {
		return api.PhaseUnknown, b.PhaseErr
	}
	if len(b.names) > 1 {
		return api.PhaseUnknown, api.ErrPhaseUnsupported
	}
	if !b.flashed {
		return api.PhaseUnknown, errors.New("state not set")
	}
	switch {
	case b.t >= FakeTc && b.p >= FakePc:
		return api.PhaseSupercritical, nil
	case b.t >= FakeTc:
		return api.PhaseSupercriticalGas, nil
	case b.p >= FakePc:
		return api.PhaseSupercriticalLiquid, nil
	case b.q > 1:
		return api.PhaseGas, nil
	case b.q < 0:
		return api.PhaseLiquid, nil
	default:
		return api.PhaseTwoPhase, nil
	}
}

func (b *FakePrimary) SpecifyPhase(idx api.PhaseIndex) error {
	b.specified = idx
	b.SpecifiedPhases = append(b.SpecifiedPhases, idx)
	return nil
}

func (b *FakePrimary) UnspecifyPhase() error {
	b.specified = api.PhaseUnknown
	b.UnspecifiedCount++
	return nil
}

// SpecifiedPhase returns the phase currently imposed on the backend.
func (b *FakePrimary) SpecifiedPhase() api.PhaseIndex { return b.specified }

func (b *FakePrimary) Close() error {
	b.Closed = true
	return nil
}

// FakeReference is a reference backend answering from a fixed table of
// output labels. Unknown labels yield an error code above the threshold.
type FakeReference struct {
	mu     sync.Mutex
	Values map[string]float64
	// Err, when set, is returned as a transport failure.
	Err   error
	calls []api.ReferenceRequest
}

var _ api.ReferenceBackend = (*FakeReference)(nil)

func NewFakeReference(values map[string]float64) *FakeReference {
	return &FakeReference{Values: values}
}

func (r *FakeReference) Call(ctx context.Context, req api.ReferenceRequest) (api.ReferenceResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
	if r.Err != nil {
		return api.ReferenceResult{}, r.Err
	}
	v, ok := r.Values[req.Output]
	if !ok {
		return api.ReferenceResult{ErrCode: 201, ErrText: fmt.Sprintf("unknown output %q", req.Output)}, nil
	}
	return api.ReferenceResult{Output: []float64{v}}, nil
}

// Calls returns the requests received so far.
func (r *FakeReference) Calls() []api.ReferenceRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.ReferenceRequest(nil), r.calls...)
}
