package mdfluids

import (
	"context"
	"fmt"

	"github.com/gpbraun/mdfluids/pkg/api"
)

// Built-in handler metadata.
var (
	PhaseProperty              = api.PropertyMetadata{Key: "PHASE", Name: "phase", Symbol: "phase"}
	ReducedTemperatureProperty = api.PropertyMetadata{Key: "TR", Name: "reduced temperature", Symbol: "T_r"}
	ReducedPressureProperty    = api.PropertyMetadata{Key: "PR", Name: "reduced pressure", Symbol: "p_r"}
)

// BuiltinProperties returns the metadata of the built-in handler
// properties.
func BuiltinProperties() []api.PropertyMetadata {
	return []api.PropertyMetadata{PhaseProperty, ReducedTemperatureProperty, ReducedPressureProperty}
}

// RegisterBuiltinHandlers registers PHASE, TR and PR on h, skipping keys
// already present in its property registry.
func RegisterBuiltinHandlers(h *api.HandlerRegistry) error {
	builtins := []struct {
		meta api.PropertyMetadata
		fn   api.PropertyHandler
	}{
		{PhaseProperty, PhaseHandler},
		{ReducedTemperatureProperty, ReducedHandler(api.ParamT, api.ParamTCritical)},
		{ReducedPressureProperty, ReducedHandler(api.ParamP, api.ParamPCritical)},
	}
	for _, b := range builtins {
		if h.Properties().Has(b.meta.Key) {
			continue
		}
		if err := h.Register(b.meta, b.fn); err != nil {
			return fmt.Errorf("mdfluids: builtin handler %s: %w", b.meta.Key, err)
		}
	}
	return nil
}

// PhaseHandler returns the display name of the fluid's current phase.
func PhaseHandler(ctx context.Context, f api.Fluid) (any, error) {
	phase, ok := f.Phase()
	if !ok {
		return nil, api.ErrNoPhase
	}
	return phase.Name, nil
}

// ReducedHandler returns a handler dividing the state output p by the
// critical value crit.
func ReducedHandler(p, crit api.Param) api.PropertyHandler {
	return func(ctx context.Context, f api.Fluid) (any, error) {
		v, err := f.Backend().KeyedOutput(p)
		if err != nil {
			return nil, err
		}
		c, err := f.Backend().KeyedOutput(crit)
		if err != nil {
			return nil, err
		}
		if c == 0 {
			return nil, fmt.Errorf("%w: critical %s is zero", api.ErrDivisionByZero, p)
		}
		return v / c, nil
	}
}

// CriticalPoint returns the critical temperature, pressure and molar density
// of f's current composition.
func CriticalPoint(f api.Fluid) (api.State, error) {
	b := f.Backend()
	t, err := b.KeyedOutput(api.ParamTCritical)
	if err != nil {
		return api.State{}, err
	}
	p, err := b.KeyedOutput(api.ParamPCritical)
	if err != nil {
		return api.State{}, err
	}
	d, err := b.KeyedOutput(api.ParamDmolarCritical)
	if err != nil {
		return api.State{}, err
	}
	return api.State{T: t, P: p, D: d}, nil
}
