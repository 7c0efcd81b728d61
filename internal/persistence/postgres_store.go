package persistence

import (
	"context"
	"database/sql"
)

var postgresQueries = sqlQueries{
	schema: []string{
		`CREATE TABLE IF NOT EXISTS property_tables (
			id TEXT PRIMARY KEY,
			composition TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			body BYTEA NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS property_tables_composition ON property_tables (composition);`,
		`CREATE TABLE IF NOT EXISTS reference_cache (
			key TEXT PRIMARY KEY,
			payload BYTEA NOT NULL
		);`,
	},
	upsert: `
		INSERT INTO property_tables (id, composition, created_at, body)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			composition = EXCLUDED.composition,
			created_at  = EXCLUDED.created_at,
			body        = EXCLUDED.body`,
	get: `SELECT composition, created_at, body FROM property_tables WHERE id = $1`,
	list: `
		SELECT id, composition, created_at, body
		FROM property_tables
		WHERE $1 = '' OR composition = $2
		ORDER BY created_at, id`,
	del:      `DELETE FROM property_tables WHERE id = $1`,
	cacheGet: `SELECT payload FROM reference_cache WHERE key = $1`,
	cachePut: `
		INSERT INTO reference_cache (key, payload) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload`,
}

// PostgresTableStore is a TableStore backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresTableStore struct {
	sqlTableStore
}

var _ TableStore = (*PostgresTableStore)(nil)

// NewPostgresTableStore initializes the schema in db and returns a store.
func NewPostgresTableStore(ctx context.Context, db *sql.DB) (*PostgresTableStore, error) {
	s := &PostgresTableStore{sqlTableStore{db: db, q: postgresQueries}}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// PostgresReferenceCache is a ReferenceCache backed by PostgreSQL.
type PostgresReferenceCache struct {
	sqlReferenceCache
}

var _ ReferenceCache = (*PostgresReferenceCache)(nil)

// NewPostgresReferenceCache initializes the schema in db and returns a cache.
func NewPostgresReferenceCache(ctx context.Context, db *sql.DB) (*PostgresReferenceCache, error) {
	s := &sqlTableStore{db: db, q: postgresQueries}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return &PostgresReferenceCache{sqlReferenceCache{db: db, q: postgresQueries}}, nil
}
