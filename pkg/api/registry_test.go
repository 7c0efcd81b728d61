package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyRegistry_Defaults(t *testing.T) {
	r := NewDefaultPropertyRegistry()

	assert.Equal(t, []string{"D", "P", "PIP", "Q", "T", "TCX", "VIS", "X"}, r.Keys())

	q, err := r.Get("q")
	require.NoError(t, err)
	assert.Equal(t, ParamQ, q.PrimaryIndex)
	assert.Equal(t, "QMOLE", q.ReferenceLabel)

	x, err := r.Get("X")
	require.NoError(t, err)
	assert.True(t, x.HasPrimary())
	assert.False(t, x.HasReference())
}

func TestPropertyRegistry_RegisterValidation(t *testing.T) {
	r := NewPropertyRegistry()

	assert.ErrorIs(t, r.Register(PropertyMetadata{Key: " "}), ErrInvalidMetadata)
	assert.ErrorIs(t, r.Register(PropertyMetadata{Key: "NOTHING"}), ErrInvalidMetadata)

	require.NoError(t, r.Register(PropertyMetadata{Key: "h", ReferenceLabel: "H"}))
	assert.ErrorIs(t, r.Register(PropertyMetadata{Key: "H", ReferenceLabel: "H"}), ErrDuplicateKey)

	h, err := r.Get("H")
	require.NoError(t, err)
	assert.Equal(t, "H", h.Key)
	assert.True(t, r.Has("h"))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_GetManyAndSnapshot(t *testing.T) {
	r := NewDefaultPropertyRegistry()

	got, err := r.GetMany("T", "p")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "T", got[0].Key)
	assert.Equal(t, "P", got[1].Key)

	_, err = r.GetMany("T", "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)

	all := r.All()
	delete(all, "T")
	assert.True(t, r.Has("T"), "All must return a copy")
}

func TestPhaseRegistry_PrimaryIndex(t *testing.T) {
	r := NewDefaultPhaseRegistry()
	assert.Equal(t, 7, r.Len())

	gas, err := r.GetByPrimaryIndex(PhaseGas)
	require.NoError(t, err)
	assert.Equal(t, PhaseKeyGas, gas.Key)

	_, err = r.GetByPrimaryIndex(PhaseUnknown)
	assert.ErrorIs(t, err, ErrNotFound)

	err = r.Register(PhaseMetadata{Key: "vapor", PrimaryIndex: PhaseGas})
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.False(t, r.Has("vapor"))

	// phases without a primary index never collide
	require.NoError(t, r.Register(PhaseMetadata{Key: "solid"}))
	require.NoError(t, r.Register(PhaseMetadata{Key: "glass"}))

	_, err = r.GetByPrimaryIndex(PhaseIndex(99))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPhaseRegistry_CaseInsensitive(t *testing.T) {
	r := NewDefaultPhaseRegistry()
	p, err := r.Get("TwoPhase")
	require.NoError(t, err)
	assert.Equal(t, PhaseTwoPhase, p.PrimaryIndex)
}
