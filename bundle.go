package mdfluids

import (
	"context"
	"database/sql"

	"github.com/gpbraun/mdfluids/internal/persistence"
	"github.com/gpbraun/mdfluids/internal/reference"
)

// NewSQLiteSession builds a session whose sweeps are archived in db and
// whose reference backend calls are cached in the same database. Tables
// are created when missing.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:mdfluids.db?_journal=WAL")
//	s, err := mdfluids.NewSQLiteSession(ctx, db, mdfluids.SessionConfig{
//	    Backend:   refprop.Open,
//	    Reference: refprop.Reference{},
//	})
//
// cfg.Archive is replaced by the SQLite store.
func NewSQLiteSession(ctx context.Context, db *sql.DB, cfg SessionConfig) (*Session, error) {
	tables, err := persistence.NewSQLiteTableStore(ctx, db)
	if err != nil {
		return nil, err
	}
	cfg.Archive = tables

	if cfg.Reference != nil {
		cache, err := persistence.NewSQLiteReferenceCache(ctx, db)
		if err != nil {
			return nil, err
		}
		cfg.Reference = reference.Cached(cfg.Reference, cache, nil)
	}

	return NewSession(cfg)
}

// NewSessionWithPersistence wires an opened persistence bundle: its table
// store becomes the archive and its cache, when present, wraps
// cfg.Reference.
func NewSessionWithPersistence(p *persistence.Persistence, cfg SessionConfig) (*Session, error) {
	cfg.Archive = p.Tables
	if cfg.Reference != nil && p.Cache != nil {
		cfg.Reference = reference.Cached(cfg.Reference, p.Cache, nil)
	}
	return NewSession(cfg)
}
