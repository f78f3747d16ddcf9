package minimize

import (
	"stacksearch/domain/trials"
	"stacksearch/internal/likelihood"
)

// largeCatalogueHandler trades per-source precision for scalability: the
// spectral index is pinned, the per-event signal-over-background ratios
// are frozen once per trial (one pass over the thousands of sources),
// and each optimizer step is a vectorized one-dimensional evaluation in
// n_s.
type largeCatalogueHandler struct {
	core       *trialCore
	fixedGamma float64
}

func (h *largeCatalogueHandler) Name() string { return NameLargeCatalogue }

func (h *largeCatalogueHandler) gamma() float64 {
	if h.fixedGamma > 0 {
		return h.fixedGamma
	}
	return h.core.seedGamma
}

func (h *largeCatalogueHandler) RunTrial(seed int64, scale float64) trials.Result {
	return h.fit(h.core.assemble(seed, scale, true), seed, scale)
}

func (h *largeCatalogueHandler) RunData(seed int64) trials.Result {
	return h.fit(h.core.assemble(seed, 0, false), seed, 0)
}

func (h *largeCatalogueHandler) fit(pe *pseudoExperiment, seed int64, scale float64) trials.Result {
	if pe.n == 0 {
		return degenerate(seed, scale, h.gamma())
	}
	gamma := h.gamma()

	// One pass over the catalogue per season, then n_s-only fits reuse
	// the frozen vectors.
	frozen := make([][]float64, len(pe.evals))
	for i, eval := range pe.evals {
		if rf, ok := eval.(likelihood.RatioFreezer); ok {
			frozen[i] = rf.FrozenRatios(gamma)
		}
	}

	obj := func(x []float64) float64 {
		llr := 0.0
		for i, ratios := range frozen {
			n := len(ratios)
			if n == 0 {
				continue
			}
			xs := x[0] * h.core.shares[i] / float64(n)
			for _, r := range ratios {
				llr += log1pClamped(xs * (r - 1))
			}
		}
		return llr
	}

	lower := []float64{0}
	upper := []float64{float64(pe.n)}
	start := []float64{1}
	out := maximize(obj, lower, upper, start, fitStream(seed))
	return h.core.record(seed, scale, out.x[0], gamma, out.value, out.converged)
}
