package api

import (
	"fmt"
	"strings"
)

// PropertyMetadata describes a thermodynamic or transport property.
type PropertyMetadata struct {
	Key    string
	Name   string
	Symbol string
	// PrimaryIndex is the primary backend output key, ParamNone if absent.
	PrimaryIndex Param
	// ReferenceLabel is the reference backend output label, empty if absent.
	ReferenceLabel string
}

func (p PropertyMetadata) RegistryKey() string { return p.Key }

// HasPrimary reports whether the primary backend can compute the property.
func (p PropertyMetadata) HasPrimary() bool { return p.PrimaryIndex != ParamNone }

// HasReference reports whether the reference backend can compute the property.
func (p PropertyMetadata) HasReference() bool { return p.ReferenceLabel != "" }

// PropertyRegistry is the registry of known properties.
type PropertyRegistry struct {
	*Registry[PropertyMetadata]
}

// NewPropertyRegistry returns an empty property registry.
func NewPropertyRegistry() *PropertyRegistry {
	return &PropertyRegistry{Registry: NewRegistry[PropertyMetadata]("property")}
}

// NewDefaultPropertyRegistry returns a registry holding DefaultProperties.
func NewDefaultPropertyRegistry() *PropertyRegistry {
	r := NewPropertyRegistry()
	if err := r.RegisterMany(DefaultProperties()...); err != nil {
		panic(fmt.Sprintf("mdfluids: default properties: %v", err))
	}
	return r
}

// ValidatePropertyMetadata checks that a backend-computed property can be
// resolved by at least one backend.
func ValidatePropertyMetadata(meta PropertyMetadata) error {
	if strings.TrimSpace(meta.Key) == "" {
		return fmt.Errorf("%w: property key is required", ErrInvalidMetadata)
	}
	if !meta.HasPrimary() && !meta.HasReference() {
		return fmt.Errorf("%w: property %q has no primary index and no reference label", ErrInvalidMetadata, meta.Key)
	}
	return nil
}

// Register adds a backend-computed property. Properties computed by a user
// handler are registered through HandlerRegistry.Register instead.
func (r *PropertyRegistry) Register(meta PropertyMetadata) error {
	if err := ValidatePropertyMetadata(meta); err != nil {
		return err
	}
	meta.Key = strings.ToUpper(strings.TrimSpace(meta.Key))
	return r.Registry.Register(meta)
}

// RegisterMany registers every property in order.
func (r *PropertyRegistry) RegisterMany(metas ...PropertyMetadata) error {
	for _, meta := range metas {
		if err := r.Register(meta); err != nil {
			return err
		}
	}
	return nil
}

// registerHandled skips backend validation; the caller owns a handler.
func (r *PropertyRegistry) registerHandled(meta PropertyMetadata) error {
	meta.Key = strings.ToUpper(strings.TrimSpace(meta.Key))
	return r.Registry.Register(meta)
}

// DefaultProperties returns the built-in property set.
func DefaultProperties() []PropertyMetadata {
	return []PropertyMetadata{
		{Key: "T", Name: "temperature", Symbol: "T", PrimaryIndex: ParamT, ReferenceLabel: "T"},
		{Key: "P", Name: "pressure", Symbol: "P", PrimaryIndex: ParamP, ReferenceLabel: "P"},
		{Key: "D", Name: "molar density", Symbol: `\rho`, PrimaryIndex: ParamDmolar, ReferenceLabel: "D"},
		{Key: "Q", Name: "vapor quality", Symbol: "Q", PrimaryIndex: ParamQ, ReferenceLabel: "QMOLE"},
		// EOS consistency checks
		{Key: "PIP", Name: "phase indication parameter", Symbol: `\Pi`, PrimaryIndex: ParamPIP, ReferenceLabel: "PIP"},
		// transport
		{Key: "VIS", Name: "shear viscosity", Symbol: `\mu`, PrimaryIndex: ParamViscosity, ReferenceLabel: "VIS"},
		{Key: "TCX", Name: "thermal conductivity", Symbol: `\kappa`, PrimaryIndex: ParamConductivity, ReferenceLabel: "TCX"},
		{Key: "X", Name: "mole fractions", Symbol: "x", PrimaryIndex: ParamMoleFractions},
	}
}
