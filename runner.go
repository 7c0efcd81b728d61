package mdfluids

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/gpbraun/mdfluids/pkg/api"
)

// SweepRunner evaluates large sweeps on several fluids of the same
// composition in parallel. Rows are split into contiguous chunks, one fluid
// per chunk, so previous-state guesses still chain inside each chunk.
// Normalized tokens read the session's normalizing fluid from every worker,
// so its backend must tolerate concurrent reads.
//
// Typical usage:
//
//	runner := session.NewSweepRunner("Nitrogen&Oxygen", 4, mdfluids.WithMoleFractions(0.79, 0.21))
//	table, err := runner.Run(ctx, "T", "P", rows, []string{"D", "VIS"})
type SweepRunner struct {
	session     *Session
	composition string
	workers     int
	opts        []FluidOption
}

// NewSweepRunner returns a runner using up to workers fluids. workers <= 0
// is treated as 1.
func (s *Session) NewSweepRunner(composition string, workers int, opts ...FluidOption) *SweepRunner {
	if workers <= 0 {
		workers = 1
	}
	return &SweepRunner{
		session:     s,
		composition: composition,
		workers:     workers,
		opts:        opts,
	}
}

// Workers returns the maximum number of fluids used per run.
func (r *SweepRunner) Workers() int { return r.workers }

// Run evaluates the sweep and returns one table with rows in input order.
// The first failing chunk cancels the others. The merged table is archived
// when the session has an archive.
func (r *SweepRunner) Run(ctx context.Context, a, b string, rows [][2]float64, tokens []string) (*Table, error) {
	if _, err := api.ParsePropertyStrings(r.session.Properties(), tokens...); err != nil {
		return nil, err
	}

	chunks := splitRows(len(rows), r.workers)
	parts := make([]*Table, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		g.Go(func() error {
			f, err := r.session.NewFluid(r.composition, r.opts...)
			if err != nil {
				return err
			}
			defer f.Close()

			t, err := f.SetStatesCalcProps(gctx, a, b, rows[c.lo:c.hi], tokens)
			if err != nil {
				return fmt.Errorf("rows %d-%d: %w", c.lo, c.hi-1, err)
			}
			parts[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &Table{
		ID:          uuid.NewString(),
		Composition: r.composition,
		StateProps:  [2]string{a, b},
		Props:       append([]string(nil), tokens...),
		Inputs:      append([][2]float64(nil), rows...),
		Cells:       make([][]any, 0, len(rows)),
		CreatedAt:   time.Now().UTC(),
	}
	for _, p := range parts {
		merged.Cells = append(merged.Cells, p.Cells...)
	}

	if err := r.session.save(ctx, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

type rowChunk struct{ lo, hi int }

// splitRows splits n rows into at most workers contiguous, non-empty chunks
// whose sizes differ by at most one.
func splitRows(n, workers int) []rowChunk {
	if n == 0 {
		return nil
	}
	if workers > n {
		workers = n
	}
	chunks := make([]rowChunk, 0, workers)
	size, extra := n/workers, n%workers
	lo := 0
	for i := 0; i < workers; i++ {
		hi := lo + size
		if i < extra {
			hi++
		}
		chunks = append(chunks, rowChunk{lo: lo, hi: hi})
		lo = hi
	}
	return chunks
}
