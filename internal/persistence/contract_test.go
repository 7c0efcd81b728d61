package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpbraun/mdfluids/pkg/api"
)

func sampleTable(id, composition string, created time.Time) *api.Table {
	return &api.Table{
		ID:          id,
		Composition: composition,
		StateProps:  [2]string{"P", "T"},
		Props:       []string{"T", "PHASE", "X"},
		Inputs:      [][2]float64{{1e5, 300}, {2e5, 310}},
		Cells: [][]any{
			{300.0, "supercritical gas", []float64{0.5, 0.5}},
			{310.0, "supercritical gas", []float64{0.5, 0.5}},
		},
		CreatedAt: created,
	}
}

// testTableStore runs the behaviour every TableStore must provide.
func testTableStore(t *testing.T, store TableStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)

	_, err := store.GetTable(ctx, "missing")
	require.ErrorIs(t, err, ErrTableNotFound)
	require.ErrorIs(t, store.DeleteTable(ctx, "missing"), ErrTableNotFound)

	t1 := sampleTable("t1", "Nitrogen", base.Add(2*time.Second))
	t2 := sampleTable("t2", "Nitrogen&Argon", base)
	t3 := sampleTable("t3", "Nitrogen", base.Add(time.Second))
	for _, tbl := range []*api.Table{t1, t2, t3} {
		require.NoError(t, store.SaveTable(ctx, tbl))
	}

	got, err := store.GetTable(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, t1, got)

	all, err := store.ListTables(ctx, TableFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t3", "t1"}, tableIDs(all))

	pure, err := store.ListTables(ctx, TableFilter{Composition: "Nitrogen"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t1"}, tableIDs(pure))

	// replacing moves t3 to another composition
	moved := sampleTable("t3", "Argon", base.Add(time.Second))
	moved.Cells[0][0] = 299.0
	require.NoError(t, store.SaveTable(ctx, moved))

	got, err = store.GetTable(ctx, "t3")
	require.NoError(t, err)
	assert.Equal(t, moved, got)

	pure, err = store.ListTables(ctx, TableFilter{Composition: "Nitrogen"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, tableIDs(pure))

	require.NoError(t, store.DeleteTable(ctx, "t1"))
	_, err = store.GetTable(ctx, "t1")
	require.ErrorIs(t, err, ErrTableNotFound)

	all, err = store.ListTables(ctx, TableFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t3"}, tableIDs(all))

	none, err := store.ListTables(ctx, TableFilter{Composition: "Helium"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

// testReferenceCache runs the behaviour every ReferenceCache must provide.
func testReferenceCache(t *testing.T, cache ReferenceCache) {
	t.Helper()
	ctx := context.Background()

	_, err := cache.Get(ctx, "k1")
	require.ErrorIs(t, err, ErrCacheMiss)

	want := api.ReferenceResult{Output: []float64{1.25, 0, 0}, ErrCode: 0}
	require.NoError(t, cache.Put(ctx, "k1", want))

	got, err := cache.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	overwrite := api.ReferenceResult{Output: []float64{2}, ErrCode: 4, ErrText: "warning"}
	require.NoError(t, cache.Put(ctx, "k1", overwrite))
	got, err = cache.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, overwrite, got)
}

func tableIDs(tables []*api.Table) []string {
	ids := make([]string, 0, len(tables))
	for _, t := range tables {
		ids = append(ids, t.ID)
	}
	return ids
}

func sampleResult() api.ReferenceResult {
	return api.ReferenceResult{Output: []float64{1.5}}
}
