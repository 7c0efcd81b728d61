package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
)

// ErrUnknownDriver is returned by Open for unsupported driver names.
var ErrUnknownDriver = errors.New("unknown store driver")

// StoreConfig selects and addresses a storage backend.
type StoreConfig struct {
	Driver string
	// DSN is the driver-specific address: a SQLite file name, a Postgres
	// connection string, a redis:// URL or a mongodb:// URI.
	DSN string
	// Prefix namespaces Redis keys; for Mongo it names the database.
	Prefix string
	// TTL bounds the lifetime of Redis reference cache entries.
	TTL time.Duration
}

// Persistence bundles the stores opened on one backend so callers can
// depend on a single abstraction. Cache is nil for backends without a
// reference cache.
type Persistence struct {
	Tables TableStore
	Cache  ReferenceCache

	closers []func() error
}

// Close releases the backend connection.
func (p *Persistence) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open connects to the backend named by cfg.Driver and prepares its schema.
func Open(ctx context.Context, cfg StoreConfig) (*Persistence, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory, "":
		mem := NewInMemoryStore()
		return &Persistence{Tables: mem, Cache: mem}, nil
	case DriverSQLite:
		return openSQLite(ctx, cfg)
	case DriverPostgres:
		return openPostgres(ctx, cfg)
	case DriverRedis:
		return openRedis(ctx, cfg)
	case DriverMongo:
		return openMongo(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func openSQLite(ctx context.Context, cfg StoreConfig) (*Persistence, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	tables, err := NewSQLiteTableStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := NewSQLiteReferenceCache(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Persistence{Tables: tables, Cache: cache, closers: []func() error{db.Close}}, nil
}

func openPostgres(ctx context.Context, cfg StoreConfig) (*Persistence, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	tables, err := NewPostgresTableStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := NewPostgresReferenceCache(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Persistence{Tables: tables, Cache: cache, closers: []func() error{db.Close}}, nil
}

func openRedis(ctx context.Context, cfg StoreConfig) (*Persistence, error) {
	opts, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Persistence{
		Tables:  NewRedisTableStore(client, cfg.Prefix),
		Cache:   NewRedisReferenceCache(client, cfg.Prefix, cfg.TTL),
		closers: []func() error{client.Close},
	}, nil
}

func openMongo(ctx context.Context, cfg StoreConfig) (*Persistence, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return &Persistence{
		Tables: NewMongoTableStore(client, cfg.Prefix, ""),
		closers: []func() error{func() error {
			return client.Disconnect(context.Background())
		}},
	}, nil
}
