package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gpbraun/mdfluids/pkg/api"
)

// inferPhase records the phase of the freshly flashed state and re-flashes
// the backend with that phase imposed so later outputs stay on the same
// branch. A caller-imposed phase disables inference.
func (f *fluidImpl) inferPhase(ctx context.Context) error {
	if f.phaseImposed {
		return nil
	}

	phase, manual, err := f.classifyPhase()
	if err != nil {
		return err
	}
	f.phase = &phase
	f.cfg.Observer.OnPhaseInferred(ctx, f, phase, manual)

	if phase.PrimaryIndex == api.PhaseUnknown {
		return nil
	}
	return f.reassertPhase(phase)
}

// classifyPhase asks the backend first and falls back to the reduced
// property rules when the backend cannot classify the state.
func (f *fluidImpl) classifyPhase() (api.PhaseMetadata, bool, error) {
	idx, err := f.backend.Phase()
	switch {
	case err == nil:
		phase, lerr := f.cfg.Phases.GetByPrimaryIndex(idx)
		if lerr == nil {
			return phase, false, nil
		}
		if !errors.Is(lerr, api.ErrNotFound) {
			return api.PhaseMetadata{}, false, lerr
		}
	case !errors.Is(err, api.ErrPhaseUnsupported):
		return api.PhaseMetadata{}, false, err
	}

	key, err := f.manualPhaseKey()
	if err != nil {
		return api.PhaseMetadata{}, true, err
	}
	phase, err := f.cfg.Phases.Get(key)
	return phase, true, err
}

func (f *fluidImpl) manualPhaseKey() (string, error) {
	out := make(map[api.Param]float64, 5)
	for _, p := range []api.Param{api.ParamQ, api.ParamT, api.ParamP, api.ParamTCritical, api.ParamPCritical} {
		v, err := f.backend.KeyedOutput(p)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", api.ErrPhaseInference, p, err)
		}
		out[p] = v
	}
	if out[api.ParamTCritical] == 0 || out[api.ParamPCritical] == 0 {
		return "", fmt.Errorf("%w: zero critical point", api.ErrPhaseInference)
	}
	return api.ClassifyPhase(
		out[api.ParamQ],
		out[api.ParamT]/out[api.ParamTCritical],
		out[api.ParamP]/out[api.ParamPCritical],
	)
}

func (f *fluidImpl) reassertPhase(phase api.PhaseMetadata) error {
	d, err := f.backend.KeyedOutput(api.ParamDmolar)
	if err != nil {
		return err
	}
	t, err := f.backend.KeyedOutput(api.ParamT)
	if err != nil {
		return err
	}
	if err := f.backend.SpecifyPhase(phase.PrimaryIndex); err != nil {
		return err
	}
	err = f.backend.Update(api.ParamDmolar, d, api.ParamT, t)
	if uerr := f.backend.UnspecifyPhase(); err == nil {
		err = uerr
	}
	if err != nil {
		return fmt.Errorf("re-flash in phase %s: %w", phase.Key, err)
	}
	return nil
}
