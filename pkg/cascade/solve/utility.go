// Package solve turns a processed.AST into a Schedule. Since no
// CP-SAT binding exists in the Go ecosystem, the three-stage
// lexicographic model from the reference design (maximize utility,
// then CUF under a utility floor, then minimize length under a CUF
// floor) is realized with a bounded local-search / simulated-annealing
// engine instead of an exact ILP solver.
package solve

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// YSCALE converts fractional CDF-derived values into integers.
const YSCALE = 100

// utilityCurve is a piecewise-linear approximation, sampled at every
// integer slot from 0 to the curve's horizon (stepsize 1, per the
// reference design), of `priority * CDF_lognorm(x; mu, sigma) * YSCALE`.
// Since every avail value the solver ever evaluates is itself an
// integer slot count, Eval is an exact lookup at that slot (clamped to
// the built range); no interpolation between anchors is done.
type utilityCurve struct {
	ys []float64 // ys[x] for x in [0, len(ys)-1]
}

// integralCurve is the same shape, but each anchor holds the running
// trapezoidal-rule integral of the underlying curve from 0 to x — the
// discretized analogue of ∫ CDF_lognorm(t) dt used in the CUF term.
type integralCurve struct {
	ys []float64
}

// newUtilityCurves builds the utility curve and its integral for a
// task with expected duration mu and confidence-derived spread sigma,
// both in slots, scaled by priority. horizon bounds how far out the
// curve needs anchors; callers pass 2*duration (the spec's len ≤
// 2·d_i bound) since a task's CDF-derived utility can keep climbing
// well past its nominal duration.
func newUtilityCurves(mu, sigma, priority, horizon int) (utilityCurve, integralCurve) {
	if horizon < 0 {
		horizon = 0
	}
	cdf := stepOrLognormCDF(mu, sigma)

	ys := make([]float64, horizon+1)
	for x := 0; x <= horizon; x++ {
		ys[x] = math.Round(cdf(float64(x)) * float64(priority) * YSCALE)
	}

	ints := make([]float64, horizon+1)
	for x := 1; x <= horizon; x++ {
		// trapezoidal rule between integer anchors x-1 and x
		ints[x] = ints[x-1] + (ys[x-1]+ys[x])/2
	}

	return utilityCurve{ys: ys}, integralCurve{ys: ints}
}

// stepOrLognormCDF returns the CDF(x) used to build utility curves.
// When sigma is zero the curve degenerates to a step function (0
// below mu, 1 at or above it) to avoid a degenerate lognormal.
func stepOrLognormCDF(mu, sigma int) func(float64) float64 {
	if sigma <= 0 {
		return func(x float64) float64 {
			if x < float64(mu) {
				return 0
			}
			return 1
		}
	}

	s, scale := lognormParams(float64(mu), float64(sigma))
	dist := distuv.LogNormal{Mu: math.Log(scale), Sigma: s}
	return func(x float64) float64 {
		if x <= 0 {
			return 0
		}
		return dist.CDF(x)
	}
}

// lognormParams derives the (s, scale) parameters of a log-normal
// distribution whose mean is muX and standard deviation is sigmaX.
func lognormParams(muX, sigmaX float64) (s, scale float64) {
	s = math.Sqrt(math.Log(1 + (sigmaX/muX)*(sigmaX/muX)))
	scale = muX / math.Exp(s*s/2)
	return s, scale
}

// Eval returns the curve's value at integer slot x, clamped to the
// curve's built range.
func (c utilityCurve) Eval(x int) int {
	return int(clampIndex(c.ys, x))
}

func (c integralCurve) Eval(x int) int {
	return int(clampIndex(c.ys, x))
}

func clampIndex(ys []float64, x int) float64 {
	if len(ys) == 0 {
		return 0
	}
	if x < 0 {
		x = 0
	}
	if x >= len(ys) {
		x = len(ys) - 1
	}
	return ys[x]
}
