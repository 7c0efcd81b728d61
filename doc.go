// Package mdfluids computes thermodynamic and transport properties of pure
// fluids and mixtures on top of external equation-of-state backends.
//
// # Core Concepts
//
//  1. Session
//  2. Fluid
//  3. Property strings
//  4. Backends
//  5. Archive
//
// # Session
//
// A Session holds what its fluids share: the property and phase registries,
// user property handlers, the normalizing fluid, the observer, the reference
// backend and the optional table archive.
//
// # Fluid
//
// A Fluid owns one primary backend handle. SetState flashes it from two
// property tokens; CalcProp, CalcProps and SetStatesCalcProps evaluate
// properties at the converged state. When a (P, T)-style flash fails inside
// a mixture's two-phase envelope, the fluid searches the vapor quality with
// Brent's method and re-flashes on (Q, a). For mixtures the phase is inferred
// from quality and reduced temperature and pressure when the backend cannot
// classify it.
//
// A Fluid is not safe for concurrent use. Distinct fluids may run on
// different goroutines; SweepRunner does exactly that for large sweeps.
//
// # Property strings
//
// Properties are requested with tokens of the form BASE(index)?*?:
//
//	T        temperature
//	X(1)     second mole fraction
//	VIS*     viscosity divided by the normalizing fluid's viscosity
//
// A token resolves through a user handler first, then the primary backend,
// then the reference backend.
//
// # Backends
//
// PrimaryBackend and ReferenceBackend describe the external libraries. This
// module never implements an equation of state. Adapters register their
// factory with RegisterBackend so OpenSession can select it by the
// backend.name setting of mdfluids.yaml.
//
// # Archive
//
// Sweep results can be stored in memory, SQLite, Postgres, Redis or MongoDB
// (see OpenPersistence and NewSQLiteSession), and reference backend calls can
// be cached in the same stores. OpenSession opens both from the archive and
// cache sections of the configuration.
package mdfluids
