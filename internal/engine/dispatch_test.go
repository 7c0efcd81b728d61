package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpbraun/mdfluids/internal/testutil"
	"github.com/gpbraun/mdfluids/pkg/api"
)

func flashed(t *testing.T, fx *fixture, p, temp float64) {
	t.Helper()
	require.NoError(t, fx.fluid.SetState(context.Background(), "P", "T", [2]float64{p, temp}, false))
}

func TestCalcProp_PrimaryOutputIsRounded(t *testing.T) {
	fx := newFixture(t, "Nitrogen")
	flashed(t, fx, 1e5, 300)

	d, err := fx.fluid.CalcProp(context.Background(), "D")
	require.NoError(t, err)
	raw := 1e5 / (testutil.FakeR * 300)
	assert.InDelta(t, raw, d.(float64), 5e-7)
	assert.Equal(t, math.RoundToEven(raw*1e6)/1e6, d)

	require.Len(t, fx.obs.props, 1)
	assert.Equal(t, api.StrategyPrimary, fx.obs.props[0].Strategy)
}

func TestCalcProp_RoundingDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RoundDecimals = -1
	backend := testutil.NewFakePrimary("Nitrogen")
	f, err := NewFluid(cfg, "Nitrogen", backend)
	require.NoError(t, err)
	require.NoError(t, f.SetState(context.Background(), "P", "T", [2]float64{1e5, 300}, false))

	_, ok := f.RoundDecimals()
	assert.False(t, ok)

	d, err := f.CalcProp(context.Background(), "D")
	require.NoError(t, err)
	assert.Equal(t, 1e5/(testutil.FakeR*300), d)
}

func TestCalcProp_HandlerTakesPrecedence(t *testing.T) {
	fx := newFixture(t, "Nitrogen")
	flashed(t, fx, 1e5, 300)

	require.NoError(t, fx.cfg.Handlers.Register(api.PropertyMetadata{Key: "TWICE_T"}, func(ctx context.Context, f api.Fluid) (any, error) {
		temp, err := f.Backend().KeyedOutput(api.ParamT)
		return 2 * temp, err
	}))

	v, err := fx.fluid.CalcProp(context.Background(), "twice_t")
	require.NoError(t, err)
	assert.Equal(t, 600.0, v)

	// a handler shadows primary and reference for its key
	props := api.NewDefaultPropertyRegistry()
	handlers := api.NewHandlerRegistry(props)
	cfg := fx.cfg
	cfg.Properties, cfg.Handlers = nil, handlers
	require.NoError(t, handlers.Register(api.PropertyMetadata{Key: "HANDLED", PrimaryIndex: api.ParamT, ReferenceLabel: "T"},
		func(ctx context.Context, f api.Fluid) (any, error) { return 42.0, nil }))
	f, err := NewFluid(cfg, "Nitrogen", testutil.NewFakePrimary("Nitrogen"))
	require.NoError(t, err)
	require.NoError(t, f.SetState(context.Background(), "P", "T", [2]float64{1e5, 300}, false))

	v, err = f.CalcProp(context.Background(), "HANDLED")
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
	assert.Empty(t, fx.ref.Calls())
}

func TestCalcProp_HandlerErrorsPropagate(t *testing.T) {
	fx := newFixture(t, "Nitrogen")
	flashed(t, fx, 1e5, 300)
	boom := errors.New("boom")
	require.NoError(t, fx.cfg.Handlers.Register(api.PropertyMetadata{Key: "BROKEN"}, func(ctx context.Context, f api.Fluid) (any, error) {
		return nil, boom
	}))

	_, err := fx.fluid.CalcProp(context.Background(), "BROKEN")
	assert.ErrorIs(t, err, boom)
	require.Len(t, fx.obs.props, 1)
	assert.Equal(t, api.StrategyHandler, fx.obs.props[0].Strategy)
	assert.Error(t, fx.obs.props[0].Err)
}

func TestCalcProp_ReferenceBackend(t *testing.T) {
	fx := newFixture(t, "Nitrogen&Argon")
	flashed(t, fx, 1e5, 300)
	require.NoError(t, fx.cfg.Properties.Register(api.PropertyMetadata{Key: "H", Name: "enthalpy", ReferenceLabel: "H"}))
	require.NoError(t, fx.cfg.Properties.Register(api.PropertyMetadata{Key: "XLIQ", Name: "liquid composition", ReferenceLabel: "XLIQ"}))
	fx.ref.Values["H"] = 1234.5
	fx.ref.Values["XLIQ2"] = 0.42

	v, err := fx.fluid.CalcProp(context.Background(), "H")
	require.NoError(t, err)
	assert.Equal(t, 1234.5, v)

	v, err = fx.fluid.CalcProp(context.Background(), "XLIQ(1)")
	require.NoError(t, err)
	assert.Equal(t, 0.42, v)

	calls := fx.ref.Calls()
	require.Len(t, calls, 2)
	want := api.ReferenceRequest{
		Fluids: "Nitrogen;Argon",
		Mode:   api.ReferenceModeTD,
		Output: "H",
		Units:  api.MolarBaseSI,
		T:      300,
		D:      1e5 / (testutil.FakeR * 300),
		Z:      []float64{0.5, 0.5},
	}
	if diff := cmp.Diff(want, calls[0]); diff != "" {
		t.Fatalf("reference request mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "XLIQ2", calls[1].Output)
}

func TestCalcProp_ReferenceDomainError(t *testing.T) {
	fx := newFixture(t, "Nitrogen")
	flashed(t, fx, 1e5, 300)
	require.NoError(t, fx.cfg.Properties.Register(api.PropertyMetadata{Key: "CP0", ReferenceLabel: "CP0"}))

	_, err := fx.fluid.CalcProp(context.Background(), "CP0")
	var de *api.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 201, de.Code)
	assert.Contains(t, de.Text, "CP0")
}

func TestCalcProp_ReferenceMissing(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Properties.Register(api.PropertyMetadata{Key: "H", ReferenceLabel: "H"}))
	f, err := NewFluid(cfg, "Nitrogen", testutil.NewFakePrimary("Nitrogen"))
	require.NoError(t, err)
	require.NoError(t, f.SetState(context.Background(), "P", "T", [2]float64{1e5, 300}, false))

	_, err = f.CalcProp(context.Background(), "H")
	assert.ErrorIs(t, err, api.ErrUnsupportedProperty)
}

func TestCalcProp_VectorOutputs(t *testing.T) {
	fx := newFixture(t, "Nitrogen&Argon")
	flashed(t, fx, 1e5, 300)
	ctx := context.Background()

	x, err := fx.fluid.CalcProp(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, x)

	x1, err := fx.fluid.CalcProp(ctx, "X(1)")
	require.NoError(t, err)
	assert.Equal(t, 0.5, x1)

	_, err = fx.fluid.CalcProp(ctx, "X(2)")
	assert.ErrorIs(t, err, api.ErrIndexOutOfRange)

	_, err = fx.fluid.CalcProp(ctx, "T(0)")
	assert.ErrorIs(t, err, api.ErrIndexOutOfRange)
}

func TestCalcProp_IndexedHandler(t *testing.T) {
	fx := newFixture(t, "Nitrogen")
	flashed(t, fx, 1e5, 300)
	require.NoError(t, fx.cfg.Handlers.Register(api.PropertyMetadata{Key: "NAMES"}, func(ctx context.Context, f api.Fluid) (any, error) {
		return []string{"a", "b"}, nil
	}))
	require.NoError(t, fx.cfg.Handlers.Register(api.PropertyMetadata{Key: "SCALAR"}, func(ctx context.Context, f api.Fluid) (any, error) {
		return 1.0, nil
	}))

	v, err := fx.fluid.CalcProp(context.Background(), "NAMES(1)")
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	_, err = fx.fluid.CalcProp(context.Background(), "SCALAR(0)")
	assert.ErrorIs(t, err, api.ErrIndexOutOfRange)
}

func TestCalcProp_Normalized(t *testing.T) {
	fx := newFixture(t, "Nitrogen&Argon")
	flashed(t, fx, 2e5, 300)
	ctx := context.Background()

	_, err := fx.fluid.CalcProp(ctx, "T*")
	require.ErrorIs(t, err, api.ErrNoNormalizingFluid)

	norm, _ := fx.sibling(t, "Nitrogen&Argon")
	require.NoError(t, norm.SetState(ctx, "P", "T", [2]float64{1e5, 150}, false))
	fx.cfg.Normalizer.Set(norm)

	v, err := fx.fluid.CalcProp(ctx, "T*")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	v, err = fx.fluid.CalcProp(ctx, "X*")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1}, v)

	// the normalizing fluid is evaluated through the same reference path
	require.NoError(t, fx.cfg.Properties.Register(api.PropertyMetadata{Key: "H", ReferenceLabel: "H"}))
	fx.ref.Values["H"] = 10
	v, err = fx.fluid.CalcProp(ctx, "H*")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
	assert.Len(t, fx.ref.Calls(), 2)
}

func TestCalcProp_NormalizedBySelfIsOne(t *testing.T) {
	fx := newFixture(t, "Nitrogen&Argon")
	flashed(t, fx, 2e5, 300)
	ctx := context.Background()

	require.NoError(t, fx.cfg.Handlers.Register(api.PropertyMetadata{Key: "TWICE_T"}, func(ctx context.Context, f api.Fluid) (any, error) {
		v, err := f.Backend().KeyedOutput(api.ParamT)
		return 2 * v, err
	}))
	require.NoError(t, fx.cfg.Properties.Register(api.PropertyMetadata{Key: "H", ReferenceLabel: "H"}))
	fx.ref.Values["H"] = 10
	fx.cfg.Normalizer.Set(fx.fluid)

	tests := []struct {
		token string
		want  any
	}{
		{"T*", 1.0},
		{"P*", 1.0},
		{"D*", 1.0},
		{"VIS*", 1.0},
		{"TCX*", 1.0},
		{"X(1)*", 1.0},
		{"X*", []float64{1, 1}},
		{"TWICE_T*", 1.0},
		{"H*", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			v, err := fx.fluid.CalcProp(ctx, tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

// opaqueFluid hides the engine implementation behind the public interface.
type opaqueFluid struct {
	api.Fluid
}

func TestCalcProp_NormalizingFluidMustBeEngineFluid(t *testing.T) {
	fx := newFixture(t, "Nitrogen")
	flashed(t, fx, 1e5, 300)
	ctx := context.Background()

	norm, _ := fx.sibling(t, "Nitrogen")
	require.NoError(t, norm.SetState(ctx, "P", "T", [2]float64{1e5, 150}, false))
	fx.cfg.Normalizer.Set(opaqueFluid{norm})

	_, err := fx.fluid.CalcProp(ctx, "T*")
	assert.ErrorIs(t, err, api.ErrUnsupportedProperty)

	fx.cfg.Normalizer.Set(norm)
	v, err := fx.fluid.CalcProp(ctx, "T*")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)
}

func TestCalcProp_NormalizedDivisionByZero(t *testing.T) {
	fx := newFixture(t, "Nitrogen")
	flashed(t, fx, 1e5, 300)
	ctx := context.Background()

	norm, _ := fx.sibling(t, "Nitrogen")
	fx.cfg.Normalizer.Set(norm)
	require.NoError(t, fx.cfg.Handlers.Register(api.PropertyMetadata{Key: "SELF_ID"}, func(ctx context.Context, f api.Fluid) (any, error) {
		if f == norm {
			return 0.0, nil
		}
		return 3.0, nil
	}))
	require.NoError(t, fx.cfg.Handlers.Register(api.PropertyMetadata{Key: "LABEL"}, func(ctx context.Context, f api.Fluid) (any, error) {
		return "x", nil
	}))

	_, err := fx.fluid.CalcProp(ctx, "SELF_ID*")
	assert.ErrorIs(t, err, api.ErrDivisionByZero)

	_, err = fx.fluid.CalcProp(ctx, "LABEL*")
	assert.ErrorIs(t, err, api.ErrNotNumeric)
}

func TestCalcProps_UnknownTokenFailsBeforeComputing(t *testing.T) {
	fx := newFixture(t, "Nitrogen")
	flashed(t, fx, 1e5, 300)

	_, err := fx.fluid.CalcProps(context.Background(), []string{"T", "NOPE"})
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Empty(t, fx.obs.props)

	vals, err := fx.fluid.CalcProps(context.Background(), []string{"T", "P", "Q"})
	require.NoError(t, err)
	assert.Equal(t, []any{300.0, 1e5, 1.5}, vals)
}

func TestSetStatesCalcProps_MatchesSequentialEvaluation(t *testing.T) {
	ctx := context.Background()
	rows := [][2]float64{{1e5, 300}, {2e5, 250}, {5e6, 100}, {1e5, 60}}
	tokens := []string{"T", "P", "D", "VIS", "TCX", "Q", "X(0)"}

	batch := newFixture(t, "Nitrogen&Argon")
	table, err := batch.fluid.SetStatesCalcProps(ctx, "P", "T", rows, tokens)
	require.NoError(t, err)
	assert.NotEmpty(t, table.ID)
	assert.Equal(t, len(rows), table.Rows())
	assert.Equal(t, len(tokens), table.Cols())
	assert.Equal(t, [2]string{"P", "T"}, table.StateProps)

	seq := newFixture(t, "Nitrogen&Argon")
	var want [][]any
	for _, row := range rows {
		require.NoError(t, seq.fluid.SetState(ctx, "P", "T", row, true))
		vals, err := seq.fluid.CalcProps(ctx, tokens)
		require.NoError(t, err)
		want = append(want, vals)
	}
	if diff := cmp.Diff(want, table.Cells); diff != "" {
		t.Fatalf("batch mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, len(rows)-1, batch.backend.GuessedUpdates)
}

func TestSetStatesCalcProps_AbortsOnFailedRow(t *testing.T) {
	fx := newFixture(t, "Nitrogen")
	rows := [][2]float64{{1e5, 300}, {1e5, -1}, {1e5, 310}}

	table, err := fx.fluid.SetStatesCalcProps(context.Background(), "P", "T", rows, []string{"T"})
	require.Error(t, err)
	assert.Nil(t, table)
	assert.Contains(t, err.Error(), "row 1")
	assert.Len(t, fx.obs.flashes, 2)
}

func TestCalcProp_ObservedByBasicMetrics(t *testing.T) {
	metrics := &api.BasicMetrics{}
	cfg := DefaultConfig()
	cfg.Observer = metrics
	f, err := NewFluid(cfg, "Nitrogen&Argon", testutil.NewFakePrimary("Nitrogen&Argon"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, f.SetState(ctx, "P", "T", [2]float64{1e5, 300}, false))
	_, err = f.CalcProps(ctx, []string{"T", "P"})
	require.NoError(t, err)
	_, err = f.CalcProp(ctx, "X(5)")
	require.Error(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Flashes)
	assert.Equal(t, int64(1), snap.ManualPhases)
	assert.Equal(t, int64(2), snap.PrimaryProperties)
	assert.Equal(t, int64(1), snap.PropertyFailures)
}

func TestNewFluid_RejectsMismatchedRegistries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Handlers = api.NewHandlerRegistry(api.NewDefaultPropertyRegistry())
	_, err := NewFluid(cfg, "Nitrogen", testutil.NewFakePrimary("Nitrogen"))
	assert.Error(t, err)

	_, err = NewFluid(cfg, "Nitrogen", nil)
	assert.Error(t, err)
}
