package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gpbraun/mdfluids/internal/rootfind"
	"github.com/gpbraun/mdfluids/pkg/api"
)

// SetState flashes the backend from two state properties. Normalized inputs
// are scaled by the normalizing fluid's value of the same property before
// they reach the backend.
func (f *fluidImpl) SetState(ctx context.Context, a, b string, values [2]float64, useGuesses bool) (err error) {
	start := time.Now()
	ev := api.FlashEvent{A: a, B: b, ValueA: values[0], ValueB: values[1]}
	defer func() {
		f.cfg.Observer.OnFlash(ctx, f, ev, err, time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	reqA, err := f.parseStateToken(a)
	if err != nil {
		return err
	}
	reqB, err := f.parseStateToken(b)
	if err != nil {
		return err
	}

	va, err := f.denormalizeInput(ctx, reqA, values[0])
	if err != nil {
		return err
	}
	vb, err := f.denormalizeInput(ctx, reqB, values[1])
	if err != nil {
		return err
	}
	ev.ValueA, ev.ValueB = va, vb

	pa, pb := reqA.Property.PrimaryIndex, reqB.Property.PrimaryIndex
	if useGuesses && f.last != nil {
		ev.Guessed = true
		g := api.Guesses{T: f.last.T, P: f.last.P, D: f.last.D}
		err = f.backend.UpdateWithGuesses(pa, va, pb, vb, g)
	} else {
		err = f.backend.Update(pa, va, pb, vb)
	}

	if err != nil {
		err = api.ClassifyFlashError(err)
		var ce *api.ConvergenceError
		if !errors.As(err, &ce) || ce.Kind != api.ConvergenceTwoPhase {
			return err
		}
		if err := f.twoPhaseFallback(ctx, pa, va, pb, vb); err != nil {
			return err
		}
	} else if err := f.inferPhase(ctx); err != nil {
		return err
	}

	return f.recordState()
}

// parseStateToken resolves a state token. State properties must map to a
// primary backend input and cannot be indexed.
func (f *fluidImpl) parseStateToken(token string) (api.PropertyRequest, error) {
	req, err := api.ParsePropertyString(f.cfg.Properties, token)
	if err != nil {
		return req, err
	}
	if req.HasIndex() {
		return req, fmt.Errorf("%w: state property %q cannot be indexed", api.ErrInvalidFormat, token)
	}
	if !req.Property.HasPrimary() || req.Property.PrimaryIndex.IsVector() {
		return req, fmt.Errorf("%w: %s is not a state input", api.ErrUnsupportedProperty, req.Property.Key)
	}
	return req, nil
}

func (f *fluidImpl) denormalizeInput(ctx context.Context, req api.PropertyRequest, v float64) (float64, error) {
	if !req.Normalized {
		return v, nil
	}
	ref, err := f.normalizingValue(ctx, api.StrategyPrimary, req)
	if err != nil {
		return 0, err
	}
	x, ok := toFloat(ref)
	if !ok {
		return 0, fmt.Errorf("%w: normalizing %s", api.ErrNotNumeric, req.Property.Key)
	}
	return v * x, nil
}

// twoPhaseFallback searches the vapor quality in [0, 1] that reproduces vb
// for property pb at fixed (pa, va). The backend is left flashed at the root.
func (f *fluidImpl) twoPhaseFallback(ctx context.Context, pa api.Param, va float64, pb api.Param, vb float64) error {
	twophase, err := f.cfg.Phases.Get(api.PhaseKeyTwoPhase)
	if err != nil {
		return err
	}
	if err := f.backend.SpecifyPhase(twophase.PrimaryIndex); err != nil {
		return err
	}

	residual := func(q float64) (float64, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := f.backend.Update(api.ParamQ, q, pa, va); err != nil {
			return 0, err
		}
		got, err := f.backend.KeyedOutput(pb)
		if err != nil {
			return 0, err
		}
		return got - vb, nil
	}

	policy := f.cfg.RootSearch
	res, err := rootfind.Brent(residual, 0, 1, policy.Tolerance, policy.MaxIterations)
	if err == nil {
		_, err = residual(res.Root)
	}
	f.cfg.Observer.OnTwoPhaseFallback(ctx, f, res.Root, res.Iterations, err)

	if rerr := f.restoreBackendPhase(); err == nil {
		err = rerr
	}
	if err != nil {
		return rootSearchError(res, err)
	}

	if !f.phaseImposed {
		f.phase = &twophase
	}
	return nil
}

// restoreBackendPhase drops a temporary backend imposition, re-asserting the
// caller-imposed phase if there is one.
func (f *fluidImpl) restoreBackendPhase() error {
	if f.phaseImposed && f.phase != nil && f.phase.PrimaryIndex != api.PhaseUnknown {
		return f.backend.SpecifyPhase(f.phase.PrimaryIndex)
	}
	return f.backend.UnspecifyPhase()
}

func rootSearchError(res rootfind.Result, err error) error {
	out := &api.RootSearchError{
		Lo:         0,
		Hi:         1,
		FLo:        res.FLo,
		FHi:        res.FHi,
		Iterations: res.Iterations,
	}
	switch {
	case errors.Is(err, rootfind.ErrNotBracketed):
		out.Reason = api.RootNotBracketed
	case errors.Is(err, rootfind.ErrMaxIterations):
		out.Reason = api.RootMaxIterations
	default:
		out.Err = err
	}
	return out
}

func (f *fluidImpl) recordState() error {
	var st api.State
	var err error
	if st.T, err = f.backend.KeyedOutput(api.ParamT); err != nil {
		return err
	}
	if st.P, err = f.backend.KeyedOutput(api.ParamP); err != nil {
		return err
	}
	if st.D, err = f.backend.KeyedOutput(api.ParamDmolar); err != nil {
		return err
	}
	f.last = &st
	return nil
}
