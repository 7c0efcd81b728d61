package mdfluids

import (
	"context"
	"errors"
	"fmt"

	"github.com/gpbraun/mdfluids/internal/config"
	"github.com/gpbraun/mdfluids/internal/persistence"
	"github.com/gpbraun/mdfluids/internal/reference"
	"github.com/gpbraun/mdfluids/pkg/api"
)

// Config is the mdfluids.yaml configuration.
type Config = config.Config

// LoadConfig reads mdfluids.yaml from path, or from the working directory
// when path is empty, applying MDFLUIDS_* environment overrides.
var LoadConfig = config.Load

// OpenSession builds a session from cfg. Fields already set in sc win over
// the configuration:
//
//   - Backend defaults to the factory registered as backend.name
//   - RoundDecimals defaults to fluid.round_decimals
//   - RootSearch defaults to the root_search section
//   - Archive defaults to the archive store, opened here
//
// When cache.driver is not "none" and sc.Reference is set, reference calls
// are cached in the cache store. A cache addressing the same store as the
// archive shares its connection. Stores opened here are released by
// Session.Close.
func OpenSession(ctx context.Context, cfg *Config, sc SessionConfig) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("mdfluids: config is required")
	}

	if sc.Backend == nil {
		factory, err := lookupBackend(cfg.Backend.Name)
		if err != nil {
			return nil, fmt.Errorf("mdfluids: %w", err)
		}
		sc.Backend = factory
	}
	if sc.RoundDecimals == nil {
		sc.RoundDecimals = Decimals(cfg.Fluid.RoundDecimals)
	}
	if sc.RootSearch == (api.RootSearchPolicy{}) {
		sc.RootSearch = cfg.RootSearchPolicy()
	}

	var closers []func() error
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	var archive *persistence.Persistence
	if sc.Archive == nil {
		store := cfg.ArchiveStore()
		p, err := persistence.Open(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("mdfluids: open %s archive: %w", store.Driver, err)
		}
		closers = append(closers, p.Close)
		sc.Archive = p.Tables
		archive = p
	}

	if store, ok := cfg.CacheStore(); ok && sc.Reference != nil {
		var cache persistence.ReferenceCache
		if archive != nil && archive.Cache != nil && store == cfg.ArchiveStore() {
			cache = archive.Cache
		} else {
			p, err := persistence.Open(ctx, store)
			if err != nil {
				closeAll()
				return nil, fmt.Errorf("mdfluids: open %s cache: %w", store.Driver, err)
			}
			closers = append(closers, p.Close)
			cache = p.Cache
		}
		if cache != nil {
			sc.Reference = reference.Cached(sc.Reference, cache, nil)
		}
	}

	s, err := NewSession(sc)
	if err != nil {
		closeAll()
		return nil, err
	}
	s.closers = closers
	return s, nil
}
