// Package api contains the core building blocks of the mdfluids property
// engine: metadata registries, the property-string grammar, phase rules,
// backend contracts and the Fluid interface.
//
// Most users interact with the higher-level mdfluids package, which re-exports
// selected types and helpers from this package. The api package is intended
// for custom backends, handlers and observers.
//
// # Registries
//
// Properties and phases are described by metadata records held in
// case-insensitive registries. A property resolves through at most one user
// handler, one primary backend output and one reference backend label. A
// phase maps to at most one primary backend phase index.
//
// # Property strings
//
// Calculations are requested with tokens of the form BASE, BASE(i), BASE* or
// BASE(i)*. The index selects one element of a vector output and the star
// divides the result by the value of the same request on the session's
// normalizing fluid.
//
// # Backends
//
// PrimaryBackend is the stateful equation-of-state engine that a Fluid owns.
// ReferenceBackend is a stateless function called with (T, D, z) for
// properties the primary backend lacks.
//
// # Observability
//
// Fluids report flashes, phase inference, two-phase fallbacks and property
// evaluations to an Observer. LoggingObserver writes them through zap and
// BasicMetrics keeps in-memory counters.
package api
