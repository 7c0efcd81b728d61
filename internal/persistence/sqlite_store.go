package persistence

import (
	"context"
	"database/sql"
)

var sqliteQueries = sqlQueries{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS property_tables (
			id TEXT PRIMARY KEY,
			composition TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			body BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS property_tables_composition ON property_tables (composition);`,
		`CREATE TABLE IF NOT EXISTS reference_cache (
			key TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);`,
	},
	upsert: `
		INSERT INTO property_tables (id, composition, created_at, body)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			composition = excluded.composition,
			created_at = excluded.created_at,
			body = excluded.body`,
	get: `SELECT composition, created_at, body FROM property_tables WHERE id = ?`,
	list: `
		SELECT id, composition, created_at, body
		FROM property_tables
		WHERE ? = '' OR composition = ?
		ORDER BY created_at, id`,
	del:      `DELETE FROM property_tables WHERE id = ?`,
	cacheGet: `SELECT payload FROM reference_cache WHERE key = ?`,
	cachePut: `
		INSERT INTO reference_cache (key, payload) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET payload = excluded.payload`,
}

// SQLiteTableStore is a TableStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteTableStore struct {
	sqlTableStore
}

var _ TableStore = (*SQLiteTableStore)(nil)

// NewSQLiteTableStore initializes the schema in db and returns a store.
func NewSQLiteTableStore(ctx context.Context, db *sql.DB) (*SQLiteTableStore, error) {
	s := &SQLiteTableStore{sqlTableStore{db: db, q: sqliteQueries}}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// SQLiteReferenceCache is a ReferenceCache backed by SQLite. It shares the
// schema created by NewSQLiteTableStore.
type SQLiteReferenceCache struct {
	sqlReferenceCache
}

var _ ReferenceCache = (*SQLiteReferenceCache)(nil)

// NewSQLiteReferenceCache initializes the schema in db and returns a cache.
func NewSQLiteReferenceCache(ctx context.Context, db *sql.DB) (*SQLiteReferenceCache, error) {
	s := &sqlTableStore{db: db, q: sqliteQueries}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return &SQLiteReferenceCache{sqlReferenceCache{db: db, q: sqliteQueries}}, nil
}
