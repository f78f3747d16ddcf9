package minimize

import (
	"stacksearch/domain/trials"
)

// fixedWeightsHandler is the reference handler: catalogue weights stay
// fixed (or float via the matrix likelihood's acceptance curves) and the
// fit runs over (n_s, γ).
type fixedWeightsHandler struct {
	core *trialCore
}

func (h *fixedWeightsHandler) Name() string { return NameFixedWeights }

func (h *fixedWeightsHandler) RunTrial(seed int64, scale float64) trials.Result {
	return h.fit(h.core.assemble(seed, scale, true), seed, scale)
}

func (h *fixedWeightsHandler) RunData(seed int64) trials.Result {
	return h.fit(h.core.assemble(seed, 0, false), seed, 0)
}

func (h *fixedWeightsHandler) fit(pe *pseudoExperiment, seed int64, scale float64) trials.Result {
	if pe.n == 0 {
		return degenerate(seed, scale, h.core.seedGamma)
	}

	obj := func(x []float64) float64 {
		return h.core.logLikelihoodRatio(pe, x[0], x[1])
	}
	lower := []float64{0, gammaLower}
	upper := []float64{float64(pe.n), gammaUpper}
	start := []float64{1, h.core.seedGamma}

	out := maximize(obj, lower, upper, start, fitStream(seed))
	return h.core.record(seed, scale, out.x[0], out.x[1], out.value, out.converged)
}
