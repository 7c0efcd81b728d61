package mdfluids

import (
	"errors"
	"fmt"

	"github.com/gpbraun/mdfluids/pkg/api"
)

// PropertyBuilder provides a fluent API for adding properties to a session:
//
//	err := mdfluids.Property("Z").
//	    Name("compressibility factor").
//	    Handler(func(ctx context.Context, f mdfluids.Fluid) (any, error) {
//	        ...
//	    }).
//	    Register(session)
//
// A property with a handler is resolved by it before any backend. Without
// a handler at least one of Primary or Reference must be set.
type PropertyBuilder struct {
	meta api.PropertyMetadata
	fn   api.PropertyHandler
}

// Property starts a builder for key.
func Property(key string) *PropertyBuilder {
	return &PropertyBuilder{meta: api.PropertyMetadata{Key: key, Symbol: key}}
}

// Name sets the descriptive name.
func (b *PropertyBuilder) Name(name string) *PropertyBuilder {
	b.meta.Name = name
	return b
}

// Symbol sets the display symbol (defaults to the key).
func (b *PropertyBuilder) Symbol(symbol string) *PropertyBuilder {
	b.meta.Symbol = symbol
	return b
}

// Primary maps the property to a primary backend output.
func (b *PropertyBuilder) Primary(p api.Param) *PropertyBuilder {
	b.meta.PrimaryIndex = p
	return b
}

// Reference maps the property to a reference backend output label.
func (b *PropertyBuilder) Reference(label string) *PropertyBuilder {
	b.meta.ReferenceLabel = label
	return b
}

// Handler computes the property with fn.
func (b *PropertyBuilder) Handler(fn api.PropertyHandler) *PropertyBuilder {
	b.fn = fn
	return b
}

// Metadata returns the metadata built so far.
func (b *PropertyBuilder) Metadata() PropertyMetadata {
	return b.meta
}

// Register adds the property to the session registries.
func (b *PropertyBuilder) Register(s *Session) error {
	if s == nil {
		return errors.New("mdfluids: nil session")
	}
	if b.fn != nil {
		return s.Handlers().Register(b.meta, b.fn)
	}
	return s.Properties().Register(b.meta)
}

// MustRegister is like Register but panics on error.
// Useful for initialization in main().
func (b *PropertyBuilder) MustRegister(s *Session) {
	if err := b.Register(s); err != nil {
		panic(fmt.Sprintf("mdfluids: register property %q: %v", b.meta.Key, err))
	}
}
