// Package reference decorates reference backends.
package reference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gpbraun/mdfluids/internal/persistence"
	"github.com/gpbraun/mdfluids/pkg/api"
)

// CachedBackend serves repeated reference calls from a ReferenceCache.
// Only successful results (error code at most api.ReferenceErrorThreshold)
// are stored. Cache failures are logged and bypassed.
type CachedBackend struct {
	backend api.ReferenceBackend
	cache   persistence.ReferenceCache
	logger  *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

var _ api.ReferenceBackend = (*CachedBackend)(nil)

// Cached wraps backend with cache. A nil logger means zap.L().
func Cached(backend api.ReferenceBackend, cache persistence.ReferenceCache, logger *zap.Logger) *CachedBackend {
	if logger == nil {
		logger = zap.L()
	}
	return &CachedBackend{backend: backend, cache: cache, logger: logger}
}

// RequestKey returns a deterministic key covering every field of req.
func RequestKey(req api.ReferenceRequest) string {
	var b strings.Builder
	b.WriteString(req.Fluids)
	b.WriteByte('|')
	b.WriteString(req.Mode)
	b.WriteByte('|')
	b.WriteString(req.Output)
	for _, n := range []int{int(req.Units), req.MassBasis, req.Flags} {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(n))
	}
	for _, x := range append([]float64{req.T, req.D}, req.Z...) {
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func (c *CachedBackend) Call(ctx context.Context, req api.ReferenceRequest) (api.ReferenceResult, error) {
	key := RequestKey(req)

	res, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		c.hits.Add(1)
		return res, nil
	case !errors.Is(err, persistence.ErrCacheMiss):
		c.logger.Warn("reference_cache_get_failed", zap.String("output", req.Output), zap.Error(err))
	}
	c.misses.Add(1)

	res, err = c.backend.Call(ctx, req)
	if err != nil {
		return res, err
	}
	if res.ErrCode <= api.ReferenceErrorThreshold {
		if err := c.cache.Put(ctx, key, res); err != nil {
			c.logger.Warn("reference_cache_put_failed", zap.String("output", req.Output), zap.Error(err))
		}
	}
	return res, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *CachedBackend) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
