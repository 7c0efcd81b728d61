package api

import (
	"context"
	"time"
)

// State is a converged thermodynamic state.
type State struct {
	T float64
	P float64
	D float64
}

// Fluid is the state/dispatch engine for one composition.
//
// A Fluid owns its primary backend handle. It is not safe for concurrent
// use; distinct fluids may be used from different goroutines.
type Fluid interface {
	// ID is a unique instance identifier used in logs and archived tables.
	ID() string
	// Composition is the composition string the fluid was created with.
	Composition() string
	// Components returns the component identifiers in order.
	Components() []string
	IsMixture() bool

	SetMoleFractions(z []float64) error
	MoleFractions() []float64

	// SpecifyPhase sets the current phase by key. With impose, phase inference
	// is skipped for the rest of the fluid's lifetime.
	SpecifyPhase(key string, impose bool) error
	// Phase returns the current phase, false before the first flash.
	Phase() (PhaseMetadata, bool)
	PhaseImposed() bool

	// LastState returns the last converged state, false before the first
	// successful SetState.
	LastState() (State, bool)
	// RoundDecimals returns the rounding precision, false when disabled.
	RoundDecimals() (int, bool)

	// SetState flashes the fluid from two property tokens and their values.
	// With useGuesses the previous converged state seeds the flash.
	SetState(ctx context.Context, a, b string, values [2]float64, useGuesses bool) error

	// CalcProp evaluates one property token at the current state.
	CalcProp(ctx context.Context, token string) (any, error)
	// CalcProps evaluates tokens in order.
	CalcProps(ctx context.Context, tokens []string) ([]any, error)
	// SetStatesCalcProps runs SetState (with guesses) and CalcProps for each
	// row of values and collects an N×M table.
	SetStatesCalcProps(ctx context.Context, a, b string, rows [][2]float64, tokens []string) (*Table, error)

	// Backend exposes the primary backend for property handlers.
	Backend() PrimaryBackend

	// Close releases the backend handle.
	Close() error
}

// PropertyHandler computes a property from a fluid at its current state.
type PropertyHandler func(ctx context.Context, f Fluid) (any, error)

// RootSearchPolicy bounds the two-phase quality search.
type RootSearchPolicy struct {
	// Tolerance on the quality interval width.
	Tolerance float64
	// MaxIterations caps the number of residual evaluations.
	MaxIterations int
}

// DefaultRootSearchPolicy returns tolerance 1e-3 and 100 iterations.
func DefaultRootSearchPolicy() RootSearchPolicy {
	return RootSearchPolicy{Tolerance: 1e-3, MaxIterations: 100}
}

// Table is the result of a batch evaluation, indexed [row][property].
type Table struct {
	ID          string
	Composition string
	StateProps  [2]string
	Props       []string
	Inputs      [][2]float64
	Cells       [][]any
	CreatedAt   time.Time
}

// Rows returns the number of state rows.
func (t *Table) Rows() int { return len(t.Cells) }

// Cols returns the number of requested properties.
func (t *Table) Cols() int { return len(t.Props) }

// At returns the cell for row i and property j.
func (t *Table) At(i, j int) any { return t.Cells[i][j] }

// Column returns every row's value for property j.
func (t *Table) Column(j int) []any {
	out := make([]any, len(t.Cells))
	for i, row := range t.Cells {
		out[i] = row[j]
	}
	return out
}
