package persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gpbraun/mdfluids/pkg/api"
)

// sqlQueries holds the dialect-specific statements of a SQL TableStore.
type sqlQueries struct {
	schema   []string
	upsert   string
	get      string
	list     string
	del      string
	cacheGet string
	cachePut string
}

// sqlTableStore implements TableStore over database/sql.
type sqlTableStore struct {
	db *sql.DB
	q  sqlQueries
}

func (s *sqlTableStore) initSchema(ctx context.Context) error {
	for _, stmt := range s.q.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqlTableStore) SaveTable(ctx context.Context, t *api.Table) error {
	body, err := encodeTableBody(t)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q.upsert, t.ID, t.Composition, t.CreatedAt.UnixNano(), body)
	return err
}

func (s *sqlTableStore) GetTable(ctx context.Context, id string) (*api.Table, error) {
	var (
		composition string
		createdAt   int64
		body        []byte
	)
	err := s.db.QueryRowContext(ctx, s.q.get, id).Scan(&composition, &createdAt, &body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return decodeTable(id, composition, createdAt, body)
}

func (s *sqlTableStore) ListTables(ctx context.Context, filter TableFilter) ([]*api.Table, error) {
	rows, err := s.db.QueryContext(ctx, s.q.list, filter.Composition, filter.Composition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*api.Table
	for rows.Next() {
		var (
			id, composition string
			createdAt       int64
			body            []byte
		)
		if err := rows.Scan(&id, &composition, &createdAt, &body); err != nil {
			return nil, err
		}
		t, err := decodeTable(id, composition, createdAt, body)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *sqlTableStore) DeleteTable(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q.del, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTableNotFound
	}
	return nil
}

// sqlReferenceCache implements ReferenceCache over database/sql.
type sqlReferenceCache struct {
	db *sql.DB
	q  sqlQueries
}

func (c *sqlReferenceCache) Get(ctx context.Context, key string) (api.ReferenceResult, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx, c.q.cacheGet, key).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.ReferenceResult{}, ErrCacheMiss
		}
		return api.ReferenceResult{}, err
	}
	return DecodeValue[api.ReferenceResult](payload)
}

func (c *sqlReferenceCache) Put(ctx context.Context, key string, res api.ReferenceResult) error {
	payload, err := EncodeValue(res)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, c.q.cachePut, key, payload)
	return err
}
