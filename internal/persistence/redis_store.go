package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gpbraun/mdfluids/pkg/api"
)

// DefaultRedisPrefix namespaces every key written by the Redis stores.
const DefaultRedisPrefix = "mdfluids:"

// RedisTableStore is a TableStore backed by Redis.
// It uses a simple key structure:
//
//	<prefix>table:<id>                => gob-encoded redisTablePayload
//	<prefix>idx:all                   => SET of all table IDs
//	<prefix>idx:fluid:<composition>   => SET of table IDs for a composition
type RedisTableStore struct {
	client *redis.Client
	prefix string
}

var _ TableStore = (*RedisTableStore)(nil)

type redisTablePayload struct {
	ID          string
	Composition string
	CreatedAt   int64
	Body        []byte
}


// NewRedisTableStore creates a RedisTableStore. An empty prefix means
// DefaultRedisPrefix.
func NewRedisTableStore(client *redis.Client, prefix string) *RedisTableStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisTableStore{client: client, prefix: prefix}
}

func (s *RedisTableStore) keyTable(id string) string {
	return s.prefix + "table:" + id
}

func (s *RedisTableStore) keyAll() string {
	return s.prefix + "idx:all"
}

func (s *RedisTableStore) keyFluid(composition string) string {
	return s.prefix + "idx:fluid:" + composition
}

func (s *RedisTableStore) load(ctx context.Context, id string) (redisTablePayload, error) {
	data, err := s.client.Get(ctx, s.keyTable(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return redisTablePayload{}, ErrTableNotFound
		}
		return redisTablePayload{}, err
	}
	return DecodeValue[redisTablePayload](data)
}

func (s *RedisTableStore) SaveTable(ctx context.Context, t *api.Table) error {
	body, err := encodeTableBody(t)
	if err != nil {
		return err
	}
	data, err := EncodeValue(redisTablePayload{
		ID:          t.ID,
		Composition: t.Composition,
		CreatedAt:   t.CreatedAt.UnixNano(),
		Body:        body,
	})
	if err != nil {
		return err
	}

	// A replaced table may have moved to another composition index.
	prev, err := s.load(ctx, t.ID)
	if err != nil && !errors.Is(err, ErrTableNotFound) {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if prev.ID != "" && prev.Composition != t.Composition {
			pipe.SRem(ctx, s.keyFluid(prev.Composition), t.ID)
		}
		pipe.Set(ctx, s.keyTable(t.ID), data, 0)
		pipe.SAdd(ctx, s.keyAll(), t.ID)
		pipe.SAdd(ctx, s.keyFluid(t.Composition), t.ID)
		return nil
	})
	return err
}

func (s *RedisTableStore) GetTable(ctx context.Context, id string) (*api.Table, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return decodeTable(p.ID, p.Composition, p.CreatedAt, p.Body)
}

func (s *RedisTableStore) ListTables(ctx context.Context, filter TableFilter) ([]*api.Table, error) {
	key := s.keyAll()
	if filter.Composition != "" {
		key = s.keyFluid(filter.Composition)
	}
	ids, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	result := make([]*api.Table, 0, len(ids))
	for _, id := range ids {
		t, err := s.GetTable(ctx, id)
		if errors.Is(err, ErrTableNotFound) {
			// stale index entry
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	sortTables(result)
	return result, nil
}

func (s *RedisTableStore) DeleteTable(ctx context.Context, id string) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.keyTable(id))
		pipe.SRem(ctx, s.keyAll(), id)
		pipe.SRem(ctx, s.keyFluid(p.Composition), id)
		return nil
	})
	return err
}

// RedisReferenceCache is a ReferenceCache backed by Redis, storing entries
// under <prefix>ref:<key>. A zero TTL keeps entries forever.
type RedisReferenceCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ ReferenceCache = (*RedisReferenceCache)(nil)

// NewRedisReferenceCache creates a RedisReferenceCache. An empty prefix means
// DefaultRedisPrefix.
func NewRedisReferenceCache(client *redis.Client, prefix string, ttl time.Duration) *RedisReferenceCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisReferenceCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisReferenceCache) key(k string) string {
	return c.prefix + "ref:" + k
}

func (c *RedisReferenceCache) Get(ctx context.Context, key string) (api.ReferenceResult, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return api.ReferenceResult{}, ErrCacheMiss
		}
		return api.ReferenceResult{}, err
	}
	return DecodeValue[api.ReferenceResult](data)
}

func (c *RedisReferenceCache) Put(ctx context.Context, key string, res api.ReferenceResult) error {
	data, err := EncodeValue(res)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), data, c.ttl).Err()
}
