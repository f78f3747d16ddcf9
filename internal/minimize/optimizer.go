package minimize

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/optimize"
)

// Bounded-retry policy for non-converging fits: the optimizer is
// restarted from a perturbed starting point, and after exhaustion the
// best value found is kept and the trial tagged, never discarded.
const maxFitAttempts = 4

// fitOutcome is the raw result of one bounded maximization.
type fitOutcome struct {
	x         []float64
	value     float64 // maximized objective
	converged bool
}

// maximize runs a bounded Nelder-Mead maximization of obj with perturbed
// restarts. Box bounds are enforced by clamping inside the objective with
// a quadratic penalty pushing the simplex back inside.
func maximize(obj func(x []float64) float64, lower, upper, start []float64, r *rand.Rand) fitOutcome {
	dim := len(start)

	wrapped := func(x []float64) float64 {
		clamped := make([]float64, dim)
		penalty := 0.0
		for i := range x {
			clamped[i] = x[i]
			if x[i] < lower[i] {
				penalty += (lower[i] - x[i]) * (lower[i] - x[i])
				clamped[i] = lower[i]
			}
			if x[i] > upper[i] {
				penalty += (x[i] - upper[i]) * (x[i] - upper[i])
				clamped[i] = upper[i]
			}
		}
		return -obj(clamped) + 1e3*penalty
	}
	problem := optimize.Problem{Func: wrapped}

	best := fitOutcome{x: clampVec(start, lower, upper), converged: false}
	best.value = obj(best.x)

	current := append([]float64(nil), start...)
	for attempt := 0; attempt < maxFitAttempts; attempt++ {
		result, err := optimize.Minimize(problem, current, nil, &optimize.NelderMead{})
		if result != nil {
			x := clampVec(result.X, lower, upper)
			if v := obj(x); v > best.value {
				best.x = x
				best.value = v
			}
		}
		if err == nil && result != nil {
			best.converged = true
			return best
		}

		// Flat or degenerate likelihood: retry from a perturbed point.
		for i := range current {
			span := upper[i] - lower[i]
			current[i] = lower[i] + r.Float64()*span
		}
	}
	return best
}

func clampVec(x, lower, upper []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = math.Min(math.Max(x[i], lower[i]), upper[i])
	}
	return out
}
