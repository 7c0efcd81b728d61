package api

import (
	"fmt"
	"math"
)

// Canonical keys of the built-in phases.
const (
	PhaseKeyLiquid              = "liquid"
	PhaseKeyGas                 = "gas"
	PhaseKeySupercriticalGas    = "supercritical_gas"
	PhaseKeySupercriticalLiquid = "supercritical_liquid"
	PhaseKeySupercritical       = "supercritical"
	PhaseKeyCriticalPoint       = "critical_point"
	PhaseKeyTwoPhase            = "twophase"
)

// PhaseMetadata describes a physical phase.
type PhaseMetadata struct {
	Key  string
	Name string
	// PrimaryIndex is the primary backend phase index, PhaseUnknown if absent.
	PrimaryIndex PhaseIndex
	// ReferenceLabel is the reference backend phase label, empty if absent.
	ReferenceLabel string
}

func (p PhaseMetadata) RegistryKey() string { return p.Key }

// PhaseRegistry is the registry of known phases.
type PhaseRegistry struct {
	*Registry[PhaseMetadata]
}

// NewPhaseRegistry returns an empty phase registry.
func NewPhaseRegistry() *PhaseRegistry {
	return &PhaseRegistry{Registry: NewRegistry[PhaseMetadata]("phase")}
}

// NewDefaultPhaseRegistry returns a registry holding DefaultPhases.
func NewDefaultPhaseRegistry() *PhaseRegistry {
	r := NewPhaseRegistry()
	if err := r.RegisterMany(DefaultPhases()...); err != nil {
		panic(fmt.Sprintf("mdfluids: default phases: %v", err))
	}
	return r
}

// Register adds a phase. At most one phase may map to a primary index.
func (r *PhaseRegistry) Register(meta PhaseMetadata) error {
	return r.registerWith(meta, func(existing PhaseMetadata) error {
		if meta.PrimaryIndex != PhaseUnknown && existing.PrimaryIndex == meta.PrimaryIndex {
			return fmt.Errorf("%w: phase index %d already mapped to %q", ErrDuplicateKey, meta.PrimaryIndex, existing.Key)
		}
		return nil
	})
}

// RegisterMany registers every phase in order.
func (r *PhaseRegistry) RegisterMany(metas ...PhaseMetadata) error {
	for _, meta := range metas {
		if err := r.Register(meta); err != nil {
			return err
		}
	}
	return nil
}

// GetByPrimaryIndex returns the phase mapped to a primary backend index.
func (r *PhaseRegistry) GetByPrimaryIndex(idx PhaseIndex) (PhaseMetadata, error) {
	if idx != PhaseUnknown {
		if phase, ok := r.scan(func(p PhaseMetadata) bool { return p.PrimaryIndex == idx }); ok {
			return phase, nil
		}
	}
	return PhaseMetadata{}, fmt.Errorf("%w: phase index %d", ErrNotFound, idx)
}

// DefaultPhases returns the built-in phases.
func DefaultPhases() []PhaseMetadata {
	return []PhaseMetadata{
		{Key: PhaseKeyLiquid, Name: "liquid", PrimaryIndex: PhaseLiquid, ReferenceLabel: "L"},
		{Key: PhaseKeyGas, Name: "gas", PrimaryIndex: PhaseGas, ReferenceLabel: "G"},
		{Key: PhaseKeySupercriticalGas, Name: "supercritical gas", PrimaryIndex: PhaseSupercriticalGas, ReferenceLabel: "G"},
		{Key: PhaseKeySupercriticalLiquid, Name: "supercritical liquid", PrimaryIndex: PhaseSupercriticalLiquid, ReferenceLabel: "L"},
		{Key: PhaseKeySupercritical, Name: "supercritical", PrimaryIndex: PhaseSupercritical},
		{Key: PhaseKeyCriticalPoint, Name: "critical point", PrimaryIndex: PhaseCriticalPoint},
		{Key: PhaseKeyTwoPhase, Name: "twophase", PrimaryIndex: PhaseTwoPhase},
	}
}

// CriticalTolerance is the relative tolerance for "at the critical point".
const CriticalTolerance = 0.01

func nearOne(x float64) bool {
	return math.Abs(x-1) <= CriticalTolerance
}

// ClassifyPhase returns the phase key for a state given its vapor quality and
// reduced temperature and pressure. Rules are checked in order; the first
// match wins.
func ClassifyPhase(q, tr, pr float64) (string, error) {
	switch {
	case nearOne(tr) && nearOne(pr):
		return PhaseKeyCriticalPoint, nil
	case tr >= 1 && pr >= 1:
		return PhaseKeySupercritical, nil
	case tr > 1 && pr < 1:
		return PhaseKeySupercriticalGas, nil
	case tr < 1 && pr > 1:
		return PhaseKeySupercriticalLiquid, nil
	case q > 1:
		return PhaseKeyGas, nil
	case q < 0:
		return PhaseKeyLiquid, nil
	case q >= 0 && q <= 1:
		return PhaseKeyTwoPhase, nil
	default:
		return "", fmt.Errorf("%w: Q=%g T_r=%g P_r=%g", ErrPhaseInference, q, tr, pr)
	}
}
