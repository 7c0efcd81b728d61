package mdfluids

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/gpbraun/mdfluids/internal/persistence"
	"github.com/gpbraun/mdfluids/internal/testutil"
)

// TestSQLiteSession_DurableAcrossRestart checks that archived tables and
// cached reference results survive reopening the database.
func TestSQLiteSession_DurableAcrossRestart(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "mdfluids.db") + "?_journal=WAL"
	ref := testutil.NewFakeReference(map[string]float64{"CV": 20.8})

	open := func() *Session {
		db, err := sql.Open("sqlite", dsn)
		require.NoError(t, err)
		db.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = db.Close() })

		s, err := NewSQLiteSession(ctx, db, SessionConfig{
			Backend:   testutil.FakeFactory,
			Reference: ref,
		})
		require.NoError(t, err)
		Property("CV").Reference("CV").MustRegister(s)
		return s
	}

	// --- first process: sweep and archive.
	s1 := open()
	f1 := newTestFluid(t, s1, "Nitrogen")
	rows := [][2]float64{{300, 1e5}, {320, 1e5}}
	table, err := s1.Sweep(ctx, f1, "T", "P", rows, []string{"CV", "D"})
	require.NoError(t, err)
	require.Len(t, ref.Calls(), 2)

	// --- second process: table is still there, reference calls are cached.
	s2 := open()
	stored, err := s2.Archive().GetTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, table.Cells, stored.Cells)
	assert.Equal(t, table.Inputs, stored.Inputs)

	f2 := newTestFluid(t, s2, "Nitrogen")
	again, err := s2.Sweep(ctx, f2, "T", "P", rows, []string{"CV", "D"})
	require.NoError(t, err)
	assert.Equal(t, table.Cells, again.Cells)
	assert.Len(t, ref.Calls(), 2, "reference results should come from the SQLite cache")
}

func TestSQLiteSession_WithoutReference(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	s, err := NewSQLiteSession(context.Background(), db, SessionConfig{Backend: testutil.FakeFactory})
	require.NoError(t, err)
	assert.NotNil(t, s.Archive())
}

func TestNewSessionWithPersistence_Redis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	p, err := persistence.Open(ctx, persistence.StoreConfig{
		Driver: persistence.DriverRedis,
		DSN:    "redis://" + mr.Addr(),
	})
	require.NoError(t, err)
	defer p.Close()

	ref := testutil.NewFakeReference(map[string]float64{"CV": 20.8})
	s, err := NewSessionWithPersistence(p, SessionConfig{Backend: testutil.FakeFactory, Reference: ref})
	require.NoError(t, err)
	Property("CV").Reference("CV").MustRegister(s)

	f := newTestFluid(t, s, "Nitrogen")
	table, err := s.Sweep(ctx, f, "T", "P", [][2]float64{{300, 1e5}, {300, 1e5}}, []string{"CV"})
	require.NoError(t, err)
	assert.Len(t, ref.Calls(), 1)

	tables, err := p.Tables.ListTables(ctx, persistence.TableFilter{})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, table.ID, tables[0].ID)
}
