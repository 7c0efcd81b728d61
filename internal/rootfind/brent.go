// Package rootfind implements a bracketed scalar root search.
package rootfind

import (
	"errors"
	"math"
)

var (
	// ErrNotBracketed is returned when f(lo) and f(hi) have the same sign.
	ErrNotBracketed = errors.New("root not bracketed")

	// ErrMaxIterations is returned when the search does not converge within
	// the iteration cap.
	ErrMaxIterations = errors.New("maximum iterations reached")
)

const relTol = 4 * 2.220446049250313e-16

// Func is a residual. A non-nil error aborts the search.
type Func func(x float64) (float64, error)

// Result reports the outcome of a search.
type Result struct {
	Root       float64
	Iterations int
	// FLo and FHi are the residuals at the initial bracket.
	FLo, FHi float64
}

// Brent finds a root of f in [lo, hi] to within xtol using Brent's method
// (bisection, secant and inverse quadratic interpolation). maxIter caps the
// number of iterations after the two bracket evaluations; values <= 0 mean 100.
func Brent(f Func, lo, hi, xtol float64, maxIter int) (Result, error) {
	if maxIter <= 0 {
		maxIter = 100
	}
	if xtol <= 0 {
		xtol = 1e-12
	}

	xpre, xcur := lo, hi
	fpre, err := f(xpre)
	if err != nil {
		return Result{}, err
	}
	fcur, err := f(xcur)
	if err != nil {
		return Result{FLo: fpre}, err
	}
	res := Result{FLo: fpre, FHi: fcur}

	if fpre == 0 {
		res.Root = xpre
		return res, nil
	}
	if fcur == 0 {
		res.Root = xcur
		return res, nil
	}
	if math.Signbit(fpre) == math.Signbit(fcur) || math.IsNaN(fpre) || math.IsNaN(fcur) {
		return res, ErrNotBracketed
	}

	var xblk, fblk, spre, scur float64
	for i := 0; i < maxIter; i++ {
		res.Iterations = i + 1
		if fpre != 0 && fcur != 0 && math.Signbit(fpre) != math.Signbit(fcur) {
			xblk, fblk = xpre, fpre
			spre = xcur - xpre
			scur = spre
		}
		if math.Abs(fblk) < math.Abs(fcur) {
			xpre, xcur, xblk = xcur, xblk, xcur
			fpre, fcur, fblk = fcur, fblk, fcur
		}

		delta := (xtol + relTol*math.Abs(xcur)) / 2
		sbis := (xblk - xcur) / 2
		if fcur == 0 || math.Abs(sbis) < delta {
			res.Root = xcur
			return res, nil
		}

		if math.Abs(spre) > delta && math.Abs(fcur) < math.Abs(fpre) {
			var stry float64
			if xpre == xblk {
				// secant
				stry = -fcur * (xcur - xpre) / (fcur - fpre)
			} else {
				// inverse quadratic
				dpre := (fpre - fcur) / (xpre - xcur)
				dblk := (fblk - fcur) / (xblk - xcur)
				stry = -fcur * (fblk*dblk - fpre*dpre) / (dblk * dpre * (fblk - fpre))
			}
			if 2*math.Abs(stry) < math.Min(math.Abs(spre), 3*math.Abs(sbis)-delta) {
				spre, scur = scur, stry
			} else {
				spre, scur = sbis, sbis
			}
		} else {
			spre, scur = sbis, sbis
		}

		xpre, fpre = xcur, fcur
		if math.Abs(scur) > delta {
			xcur += scur
		} else if sbis > 0 {
			xcur += delta
		} else {
			xcur -= delta
		}

		fcur, err = f(xcur)
		if err != nil {
			res.Root = xcur
			return res, err
		}
	}

	res.Root = xcur
	return res, ErrMaxIterations
}
