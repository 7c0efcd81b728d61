package persistence

import (
	"context"
	"sync"

	"github.com/gpbraun/mdfluids/pkg/api"
)

// InMemoryStore is a goroutine-safe TableStore and ReferenceCache backed by
// maps. Tables are copied on the way in and out.
type InMemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*api.Table
	refs   map[string]api.ReferenceResult
}

var (
	_ TableStore     = (*InMemoryStore)(nil)
	_ ReferenceCache = (*InMemoryStore)(nil)
)

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tables: make(map[string]*api.Table),
		refs:   make(map[string]api.ReferenceResult),
	}
}

func cloneTable(t *api.Table) *api.Table {
	out := *t
	out.Props = append([]string(nil), t.Props...)
	out.Inputs = append([][2]float64(nil), t.Inputs...)
	out.Cells = make([][]any, len(t.Cells))
	for i, row := range t.Cells {
		out.Cells[i] = append([]any(nil), row...)
	}
	return &out
}

func (s *InMemoryStore) SaveTable(ctx context.Context, t *api.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[t.ID] = cloneTable(t)
	return nil
}

func (s *InMemoryStore) GetTable(ctx context.Context, id string) (*api.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[id]
	if !ok {
		return nil, ErrTableNotFound
	}
	return cloneTable(t), nil
}

func (s *InMemoryStore) ListTables(ctx context.Context, filter TableFilter) ([]*api.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.Table
	for _, t := range s.tables {
		if filter.match(t) {
			result = append(result, cloneTable(t))
		}
	}
	sortTables(result)
	return result, nil
}

func (s *InMemoryStore) DeleteTable(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[id]; !ok {
		return ErrTableNotFound
	}
	delete(s.tables, id)
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, key string) (api.ReferenceResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.refs[key]
	if !ok {
		return api.ReferenceResult{}, ErrCacheMiss
	}
	res.Output = append([]float64(nil), res.Output...)
	return res, nil
}

func (s *InMemoryStore) Put(ctx context.Context, key string, res api.ReferenceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res.Output = append([]float64(nil), res.Output...)
	s.refs[key] = res
	return nil
}
