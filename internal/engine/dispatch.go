package engine

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gpbraun/mdfluids/pkg/api"
)

// CalcProp evaluates token at the current state. Strategies are tried in
// order: registered handler, primary backend output, reference backend.
func (f *fluidImpl) CalcProp(ctx context.Context, token string) (any, error) {
	req, err := api.ParsePropertyString(f.cfg.Properties, token)
	if err != nil {
		return nil, err
	}
	return f.calc(ctx, req)
}

func (f *fluidImpl) CalcProps(ctx context.Context, tokens []string) ([]any, error) {
	reqs, err := api.ParsePropertyStrings(f.cfg.Properties, tokens...)
	if err != nil {
		return nil, err
	}
	return f.calcMany(ctx, reqs)
}

func (f *fluidImpl) calcMany(ctx context.Context, reqs []api.PropertyRequest) ([]any, error) {
	out := make([]any, len(reqs))
	for i, req := range reqs {
		v, err := f.calc(ctx, req)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// SetStatesCalcProps evaluates tokens over every row of state values. The
// first failing row aborts the batch.
func (f *fluidImpl) SetStatesCalcProps(ctx context.Context, a, b string, rows [][2]float64, tokens []string) (*api.Table, error) {
	reqs, err := api.ParsePropertyStrings(f.cfg.Properties, tokens...)
	if err != nil {
		return nil, err
	}

	t := &api.Table{
		ID:          uuid.NewString(),
		Composition: f.composition,
		StateProps:  [2]string{a, b},
		Props:       append([]string(nil), tokens...),
		Inputs:      append([][2]float64(nil), rows...),
		Cells:       make([][]any, 0, len(rows)),
		CreatedAt:   time.Now().UTC(),
	}
	for i, row := range rows {
		if err := f.SetState(ctx, a, b, row, true); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		vals, err := f.calcMany(ctx, reqs)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		t.Cells = append(t.Cells, vals)
	}
	return t, nil
}

func (f *fluidImpl) calc(ctx context.Context, req api.PropertyRequest) (v any, err error) {
	start := time.Now()
	var s api.Strategy
	defer func() {
		f.cfg.Observer.OnPropertyComputed(ctx, f, req, s, err, time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s, err = f.strategyFor(req.Property)
	if err != nil {
		return nil, err
	}
	v, err = f.compute(ctx, s, req)
	if err != nil {
		return nil, err
	}

	if req.Normalized {
		ref, err := f.normalizingValue(ctx, s, req)
		if err != nil {
			return nil, err
		}
		if v, err = divide(v, ref); err != nil {
			return nil, fmt.Errorf("%s: %w", req, err)
		}
	}
	return f.round(v), nil
}

func (f *fluidImpl) strategyFor(meta api.PropertyMetadata) (api.Strategy, error) {
	if _, ok := f.cfg.Handlers.Lookup(meta.Key); ok {
		return api.StrategyHandler, nil
	}
	if meta.HasPrimary() {
		return api.StrategyPrimary, nil
	}
	if meta.HasReference() {
		return api.StrategyReference, nil
	}
	return "", fmt.Errorf("%w: %s", api.ErrUnsupportedProperty, meta.Key)
}

// compute returns the raw value of req (without normalization or rounding)
// using strategy s.
func (f *fluidImpl) compute(ctx context.Context, s api.Strategy, req api.PropertyRequest) (any, error) {
	switch s {
	case api.StrategyHandler:
		fn, ok := f.cfg.Handlers.Lookup(req.Property.Key)
		if !ok {
			return nil, fmt.Errorf("%w: no handler for %s", api.ErrUnsupportedProperty, req.Property.Key)
		}
		v, err := fn(ctx, f)
		if err != nil {
			return nil, err
		}
		if req.HasIndex() {
			return pickIndex(v, req.Index)
		}
		return v, nil
	case api.StrategyPrimary:
		return f.computePrimary(req)
	case api.StrategyReference:
		return f.computeReference(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %s", api.ErrUnsupportedProperty, req.Property.Key)
	}
}

func (f *fluidImpl) computePrimary(req api.PropertyRequest) (any, error) {
	p := req.Property.PrimaryIndex
	if !p.IsVector() {
		if req.HasIndex() {
			return nil, fmt.Errorf("%w: %s is scalar", api.ErrIndexOutOfRange, req.Property.Key)
		}
		return f.backend.KeyedOutput(p)
	}

	var vec []float64
	if vb, ok := f.backend.(api.VectorBackend); ok {
		var err error
		if vec, err = vb.KeyedOutputVector(p); err != nil {
			return nil, err
		}
	} else if p == api.ParamMoleFractions {
		vec = f.MoleFractions()
	} else {
		return nil, fmt.Errorf("%w: backend has no vector output for %s", api.ErrUnsupportedProperty, req.Property.Key)
	}

	if req.HasIndex() {
		return pickIndex(vec, req.Index)
	}
	return vec, nil
}

// referenceLabel returns the output label for req, with the 1-based
// component number appended for indexed requests.
func referenceLabel(req api.PropertyRequest) string {
	if req.HasIndex() {
		return req.Property.ReferenceLabel + strconv.Itoa(req.Index+1)
	}
	return req.Property.ReferenceLabel
}

func (f *fluidImpl) computeReference(ctx context.Context, req api.PropertyRequest) (any, error) {
	if f.cfg.Reference == nil {
		return nil, fmt.Errorf("%w: %s needs a reference backend", api.ErrUnsupportedProperty, req.Property.Key)
	}
	t, err := f.backend.KeyedOutput(api.ParamT)
	if err != nil {
		return nil, err
	}
	d, err := f.backend.KeyedOutput(api.ParamDmolar)
	if err != nil {
		return nil, err
	}

	res, err := f.cfg.Reference.Call(ctx, api.ReferenceRequest{
		Fluids: strings.Join(f.components, ";"),
		Mode:   api.ReferenceModeTD,
		Output: referenceLabel(req),
		Units:  api.MolarBaseSI,
		T:      t,
		D:      d,
		Z:      f.MoleFractions(),
	})
	if err != nil {
		return nil, err
	}
	if res.ErrCode > api.ReferenceErrorThreshold {
		return nil, &api.DomainError{Code: res.ErrCode, Text: res.ErrText}
	}
	if len(res.Output) == 0 {
		return nil, fmt.Errorf("reference backend returned no output for %s", referenceLabel(req))
	}
	return res.Output[0], nil
}

// rawCalculator is implemented by fluids that can evaluate a request with a
// given strategy, skipping normalization and rounding.
type rawCalculator interface {
	compute(ctx context.Context, s api.Strategy, req api.PropertyRequest) (any, error)
}

// normalizingValue evaluates the raw request on the normalizing fluid using
// the same strategy as the requesting fluid. Only fluids created by this
// package can be evaluated that way.
func (f *fluidImpl) normalizingValue(ctx context.Context, s api.Strategy, req api.PropertyRequest) (any, error) {
	norm, err := f.cfg.Normalizer.Get()
	if err != nil {
		return nil, err
	}
	rc, ok := norm.(rawCalculator)
	if !ok {
		return nil, fmt.Errorf("%w: normalizing fluid %T cannot evaluate %s unrounded", api.ErrUnsupportedProperty, norm, req.Raw())
	}
	return rc.compute(ctx, s, req.Raw())
}

func (f *fluidImpl) round(v any) any {
	if f.roundDecimals < 0 {
		return v
	}
	x, ok := v.(float64)
	if !ok {
		return v
	}
	return roundTo(x, f.roundDecimals)
}

func roundTo(x float64, decimals int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	scale := math.Pow(10, float64(decimals))
	r := math.RoundToEven(x*scale) / scale
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return x
	}
	return r
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func checkDivisor(x float64) error {
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return fmt.Errorf("%w: %g", api.ErrDivisionByZero, x)
	}
	return nil
}

func divide(v, ref any) (any, error) {
	if num, ok := toFloat(v); ok {
		den, ok := toFloat(ref)
		if !ok {
			return nil, api.ErrNotNumeric
		}
		if err := checkDivisor(den); err != nil {
			return nil, err
		}
		return num / den, nil
	}

	num, ok := v.([]float64)
	if !ok {
		return nil, api.ErrNotNumeric
	}
	den, ok := ref.([]float64)
	if !ok || len(den) != len(num) {
		return nil, fmt.Errorf("%w: vector shape mismatch", api.ErrNotNumeric)
	}
	out := make([]float64, len(num))
	for i := range num {
		if err := checkDivisor(den[i]); err != nil {
			return nil, err
		}
		out[i] = num[i] / den[i]
	}
	return out, nil
}

func pickIndex(v any, idx int) (any, error) {
	var n int
	switch x := v.(type) {
	case []float64:
		n = len(x)
		if idx < n {
			return x[idx], nil
		}
	case []any:
		n = len(x)
		if idx < n {
			return x[idx], nil
		}
	case []string:
		n = len(x)
		if idx < n {
			return x[idx], nil
		}
	case []int:
		n = len(x)
		if idx < n {
			return x[idx], nil
		}
	default:
		return nil, fmt.Errorf("%w: %T is not indexable", api.ErrIndexOutOfRange, v)
	}
	return nil, fmt.Errorf("%w: index %d, length %d", api.ErrIndexOutOfRange, idx, n)
}
