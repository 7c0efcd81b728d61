package persistence

import (
	"context"
	"errors"
	"sort"

	"github.com/gpbraun/mdfluids/pkg/api"
)

var (
	// ErrTableNotFound is returned when an archived table does not exist.
	ErrTableNotFound = errors.New("table not found")

	// ErrCacheMiss is returned by ReferenceCache.Get for unknown keys.
	ErrCacheMiss = errors.New("cache miss")
)

// TableFilter selects archived tables. An empty field means "no filter".
type TableFilter struct {
	Composition string
}

func (f TableFilter) match(t *api.Table) bool {
	return f.Composition == "" || t.Composition == f.Composition
}

// TableStore archives batch evaluation results.
type TableStore interface {
	// SaveTable inserts t or replaces the table with the same ID.
	SaveTable(ctx context.Context, t *api.Table) error
	GetTable(ctx context.Context, id string) (*api.Table, error)
	// ListTables returns matching tables ordered by creation time.
	ListTables(ctx context.Context, filter TableFilter) ([]*api.Table, error)
	DeleteTable(ctx context.Context, id string) error
}

// ReferenceCache stores reference backend results by request key.
type ReferenceCache interface {
	Get(ctx context.Context, key string) (api.ReferenceResult, error)
	Put(ctx context.Context, key string, res api.ReferenceResult) error
}

func sortTables(tables []*api.Table) {
	sort.Slice(tables, func(i, j int) bool {
		a, b := tables[i], tables[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
