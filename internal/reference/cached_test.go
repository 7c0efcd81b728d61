package reference

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gpbraun/mdfluids/internal/persistence"
	"github.com/gpbraun/mdfluids/internal/testutil"
	"github.com/gpbraun/mdfluids/pkg/api"
)

func request(output string, t float64) api.ReferenceRequest {
	return api.ReferenceRequest{
		Fluids: "NITROGEN;ARGON",
		Mode:   api.ReferenceModeTD,
		Output: output,
		Units:  api.MolarBaseSI,
		T:      t,
		D:      40.1,
		Z:      []float64{0.5, 0.5},
	}
}

func TestRequestKey(t *testing.T) {
	base := request("H", 300)
	assert.Equal(t, RequestKey(base), RequestKey(request("H", 300)))

	variants := []api.ReferenceRequest{
		request("S", 300),
		request("H", 300.0000001),
		func() api.ReferenceRequest { r := request("H", 300); r.Z = []float64{0.4, 0.6}; return r }(),
		func() api.ReferenceRequest { r := request("H", 300); r.Flags = 1; return r }(),
		func() api.ReferenceRequest { r := request("H", 300); r.Units = api.MassBaseSI; return r }(),
	}
	for i, v := range variants {
		assert.NotEqual(t, RequestKey(base), RequestKey(v), "variant %d", i)
	}
}

func TestCached_HitsSkipBackend(t *testing.T) {
	ref := testutil.NewFakeReference(map[string]float64{"H": 1234.5})
	c := Cached(ref, persistence.NewInMemoryStore(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := c.Call(ctx, request("H", 300))
		require.NoError(t, err)
		assert.Equal(t, []float64{1234.5}, res.Output)
	}
	assert.Len(t, ref.Calls(), 1)

	_, err := c.Call(ctx, request("H", 310))
	require.NoError(t, err)
	assert.Len(t, ref.Calls(), 2)

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(2), misses)
}

func TestCached_DomainErrorsAreNotStored(t *testing.T) {
	ref := testutil.NewFakeReference(map[string]float64{})
	c := Cached(ref, persistence.NewInMemoryStore(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := c.Call(ctx, request("BOGUS", 300))
		require.NoError(t, err)
		assert.Greater(t, res.ErrCode, api.ReferenceErrorThreshold)
	}
	assert.Len(t, ref.Calls(), 2)
}

func TestCached_TransportErrorsPropagate(t *testing.T) {
	ref := testutil.NewFakeReference(nil)
	ref.Err = errors.New("library not loaded")
	c := Cached(ref, persistence.NewInMemoryStore(), zap.NewNop())

	_, err := c.Call(context.Background(), request("H", 300))
	assert.ErrorIs(t, err, ref.Err)
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) (api.ReferenceResult, error) {
	return api.ReferenceResult{}, errors.New("connection refused")
}

func (brokenCache) Put(ctx context.Context, key string, res api.ReferenceResult) error {
	return errors.New("connection refused")
}

func TestCached_CacheFailuresAreBypassed(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ref := testutil.NewFakeReference(map[string]float64{"H": 1})
	c := Cached(ref, brokenCache{}, zap.New(core))

	res, err := c.Call(context.Background(), request("H", 300))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0}, res.Output)

	assert.Equal(t, 1, logs.FilterMessage("reference_cache_get_failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("reference_cache_put_failed").Len())
}
