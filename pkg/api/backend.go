package api

import (
	"context"
	"errors"
	"regexp"
	"strconv"
)

// Param identifies a keyed output (and flash input) of the primary backend.
// The zero value means "no primary backend index".
type Param int

const (
	ParamNone Param = iota
	ParamT
	ParamP
	ParamDmolar
	ParamQ
	ParamPIP
	ParamViscosity
	ParamConductivity
	ParamTCritical
	ParamPCritical
	ParamDmolarCritical
	ParamMoleFractions
)

var paramNames = map[Param]string{
	ParamNone:           "none",
	ParamT:              "T",
	ParamP:              "P",
	ParamDmolar:         "Dmolar",
	ParamQ:              "Q",
	ParamPIP:            "PIP",
	ParamViscosity:      "viscosity",
	ParamConductivity:   "conductivity",
	ParamTCritical:      "T_critical",
	ParamPCritical:      "p_critical",
	ParamDmolarCritical: "rhomolar_critical",
	ParamMoleFractions:  "mole_fractions",
}

func (p Param) String() string {
	if name, ok := paramNames[p]; ok {
		return name
	}
	return "param(" + strconv.Itoa(int(p)) + ")"
}

// PhaseIndex is the primary backend's phase enumeration. The zero value
// means "unknown / not imposed".
type PhaseIndex int

const (
	PhaseUnknown PhaseIndex = iota
	PhaseLiquid
	PhaseSupercritical
	PhaseSupercriticalGas
	PhaseSupercriticalLiquid
	PhaseCriticalPoint
	PhaseGas
	PhaseTwoPhase
)

// Guesses seed the backend's guess-accepting flash with a previous state.
type Guesses struct {
	T float64
	P float64
	D float64
}

// PrimaryBackend is the capability set used from the primary EOS backend.
// One instance is owned by exactly one Fluid.
type PrimaryBackend interface {
	// FluidNames returns the component identifiers in composition order.
	FluidNames() []string
	SetMoleFractions(z []float64) error
	MoleFractions() []float64

	// Update flashes the state from two independent inputs.
	Update(a Param, va float64, b Param, vb float64) error
	// UpdateWithGuesses flashes using g as the initial guess.
	UpdateWithGuesses(a Param, va float64, b Param, vb float64, g Guesses) error

	// KeyedOutput returns a scalar property of the current state, including
	// critical point values (ParamTCritical, ParamPCritical, ...).
	KeyedOutput(p Param) (float64, error)

	// Phase returns the backend's own classification or ErrPhaseUnsupported.
	Phase() (PhaseIndex, error)
	SpecifyPhase(idx PhaseIndex) error
	UnspecifyPhase() error

	Close() error
}

// VectorBackend is implemented by primary backends able to return
// vector-valued outputs (for example mole fractions).
type VectorBackend interface {
	KeyedOutputVector(p Param) ([]float64, error)
}

// PrimaryFactory creates a backend handle for a composition string such as
// "Nitrogen&Oxygen".
type PrimaryFactory func(composition string) (PrimaryBackend, error)

// UnitBasis selects the unit system of a reference backend call.
type UnitBasis int

const (
	DefaultUnits UnitBasis = iota
	MolarBaseSI
	MassBaseSI
)

// ReferenceModeTD is the input mode token for temperature/molar density.
const ReferenceModeTD = "TD"

// ReferenceErrorThreshold is the highest reference error code that is still
// treated as a warning.
const ReferenceErrorThreshold = 100

// ReferenceRequest is a single reference backend call.
type ReferenceRequest struct {
	// Fluids is the semicolon-joined composition.
	Fluids string
	Mode   string
	Output string
	Units  UnitBasis
	// MassBasis selects mass (1) or molar (0) composition.
	MassBasis int
	Flags     int
	T         float64
	D         float64
	Z         []float64
}

// ReferenceResult is the raw reference backend reply.
type ReferenceResult struct {
	Output  []float64
	ErrCode int
	ErrText string
}

// ReferenceBackend computes properties directly from (T, D, z).
type ReferenceBackend interface {
	Call(ctx context.Context, req ReferenceRequest) (ReferenceResult, error)
}

// ReferenceFunc adapts a function to ReferenceBackend.
type ReferenceFunc func(ctx context.Context, req ReferenceRequest) (ReferenceResult, error)

func (f ReferenceFunc) Call(ctx context.Context, req ReferenceRequest) (ReferenceResult, error) {
	return f(ctx, req)
}

var twoPhasePattern = regexp.MustCompile(`(?i)(2-phase|two-phase)`)

// ClassifyFlashError translates a primary backend update failure into a
// *ConvergenceError. The backend only reports failures as text, so the
// two-phase kind is recognised from the message.
func ClassifyFlashError(err error) error {
	if err == nil {
		return nil
	}
	var ce *ConvergenceError
	if errors.As(err, &ce) {
		return err
	}
	kind := ConvergenceOther
	if twoPhasePattern.MatchString(err.Error()) {
		kind = ConvergenceTwoPhase
	}
	return &ConvergenceError{Kind: kind, Err: err}
}

// IsVector reports whether the output is vector-valued.
func (p Param) IsVector() bool { return p == ParamMoleFractions }
