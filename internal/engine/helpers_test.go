package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gpbraun/mdfluids/internal/testutil"
	"github.com/gpbraun/mdfluids/pkg/api"
)

// recordingObserver records every callback so tests can assert on them.
type recordingObserver struct {
	mu sync.Mutex

	flashes   []flashRecord
	phases    []phaseRecord
	fallbacks []fallbackRecord
	props     []propRecord
}

type flashRecord struct {
	Event api.FlashEvent
	Err   error
}

type phaseRecord struct {
	Phase  string
	Manual bool
}

type fallbackRecord struct {
	Q          float64
	Iterations int
	Err        error
}

type propRecord struct {
	Token    string
	Strategy api.Strategy
	Err      error
}

func (o *recordingObserver) OnFlash(ctx context.Context, f api.Fluid, ev api.FlashEvent, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flashes = append(o.flashes, flashRecord{Event: ev, Err: err})
}

func (o *recordingObserver) OnPhaseInferred(ctx context.Context, f api.Fluid, phase api.PhaseMetadata, manual bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, phaseRecord{Phase: phase.Key, Manual: manual})
}

func (o *recordingObserver) OnTwoPhaseFallback(ctx context.Context, f api.Fluid, q float64, iterations int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks = append(o.fallbacks, fallbackRecord{Q: q, Iterations: iterations, Err: err})
}

func (o *recordingObserver) OnPropertyComputed(ctx context.Context, f api.Fluid, req api.PropertyRequest, s api.Strategy, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.props = append(o.props, propRecord{Token: req.String(), Strategy: s, Err: err})
}

type fixture struct {
	cfg     Config
	obs     *recordingObserver
	ref     *testutil.FakeReference
	backend *testutil.FakePrimary
	fluid   api.Fluid
}

func newFixture(t *testing.T, composition string) *fixture {
	t.Helper()

	cfg := DefaultConfig()
	obs := &recordingObserver{}
	ref := testutil.NewFakeReference(map[string]float64{})
	cfg.Observer = obs
	cfg.Reference = ref

	backend := testutil.NewFakePrimary(composition)
	f, err := NewFluid(cfg, composition, backend)
	require.NoError(t, err)

	return &fixture{cfg: cfg, obs: obs, ref: ref, backend: backend, fluid: f}
}

// sibling creates another fluid sharing the fixture's registries.
func (fx *fixture) sibling(t *testing.T, composition string) (api.Fluid, *testutil.FakePrimary) {
	t.Helper()
	backend := testutil.NewFakePrimary(composition)
	f, err := NewFluid(fx.cfg, composition, backend)
	require.NoError(t, err)
	return f, backend
}
