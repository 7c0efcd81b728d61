package mdfluids

import "github.com/gpbraun/mdfluids/pkg/api"

// RootSearchBuilder provides a fluent way to construct the RootSearchPolicy
// of the two-phase quality search.
type RootSearchBuilder struct {
	policy RootSearchPolicy
}

// RootSearch starts from the default policy (tolerance 1e-3, 100
// iterations).
func RootSearch() RootSearchBuilder {
	return RootSearchBuilder{policy: api.DefaultRootSearchPolicy()}
}

// Tolerance sets the quality tolerance. Values outside (0, 1) are ignored.
func (r RootSearchBuilder) Tolerance(tol float64) RootSearchBuilder {
	if tol > 0 && tol < 1 {
		r.policy.Tolerance = tol
	}
	return r
}

// MaxIterations caps residual evaluations; n <= 0 is treated as 1.
func (r RootSearchBuilder) MaxIterations(n int) RootSearchBuilder {
	if n <= 0 {
		n = 1
	}
	r.policy.MaxIterations = n
	return r
}

// Policy returns the built policy.
func (r RootSearchBuilder) Policy() RootSearchPolicy {
	return r.policy
}
