package minimize

import (
	"math"
	"sort"

	"stacksearch/domain/temporal"
	"stacksearch/domain/trials"
	"stacksearch/internal/likelihood"
)

// Caps the number of candidate window boundaries drawn from the
// pseudo-dataset's event times; the scan is quadratic in this.
const maxFlareBoundaries = 12

// Windows narrower than this (days) are not scanned.
const minFlareWidth = 0.5

// flareSearchHandler additionally optimizes the temporal window: it
// scans candidate box windows spanned by observed event times, fits n_s
// inside each, and keeps the window maximizing the marginalized
// TS_w = 2Λ̂_w + 2·ln(T_w/T_livetime). The full livetime is always among
// the candidates, so the flare TS never falls below the steady one.
type flareSearchHandler struct {
	core       *trialCore
	fixedGamma float64
}

func (h *flareSearchHandler) Name() string { return NameFlareSearch }

func (h *flareSearchHandler) gamma() float64 {
	if h.fixedGamma > 0 {
		return h.fixedGamma
	}
	return h.core.seedGamma
}

func (h *flareSearchHandler) RunTrial(seed int64, scale float64) trials.Result {
	return h.fit(h.core.assemble(seed, scale, true), seed, scale)
}

func (h *flareSearchHandler) RunData(seed int64) trials.Result {
	return h.fit(h.core.assemble(seed, 0, false), seed, 0)
}

func (h *flareSearchHandler) fit(pe *pseudoExperiment, seed int64, scale float64) trials.Result {
	if pe.n == 0 {
		return degenerate(seed, scale, h.gamma())
	}
	gamma := h.gamma()

	tLow, tHigh, livetime := h.span()
	boundaries := h.candidateBoundaries(pe, tLow, tHigh)

	best := trials.Result{Scale: scale, Seed: seed, Gamma: gamma, Converged: true}
	for a := 0; a < len(boundaries); a++ {
		for b := a + 1; b < len(boundaries); b++ {
			t0, t1 := boundaries[a], boundaries[b]
			if t1-t0 < minFlareWidth {
				continue
			}
			ns, llr, converged := h.fitWindow(pe, seed, t0, t1, gamma)
			ts := 2*llr + 2*math.Log((t1-t0)/livetime)
			if ns <= 0 || llr <= 0 {
				ts = 0
			}
			if ts > best.TS {
				best.TS = ts
				best.NS = ns
				best.Converged = converged
			}
		}
	}
	return best
}

// fitWindow rebuilds the evaluators with a box window over [t0, t1] and
// fits n_s. The season contexts share their cached background and energy
// models, so the rebuild only recomputes the per-event terms.
func (h *flareSearchHandler) fitWindow(pe *pseudoExperiment, seed int64, t0, t1, gamma float64) (ns, llr float64, converged bool) {
	evals := make([]likelihood.Evaluator, len(h.core.units))
	for i, u := range h.core.units {
		box := temporal.NewFixedReferenceBox(u.Context.Season.Bounds, t0, 0, t1-t0)
		evals[i] = u.Context.WithSigTime(box).NewEvaluator(pe.samples[i])
	}

	obj := func(x []float64) float64 {
		total := 0.0
		for i, eval := range evals {
			total += eval.Eval(likelihood.Params{NS: x[0] * h.core.shares[i], Gamma: gamma})
		}
		return total
	}
	out := maximize(obj, []float64{0}, []float64{float64(pe.n)}, []float64{1}, fitStream(seed))
	return out.x[0], out.value, out.converged
}

func (h *flareSearchHandler) span() (tLow, tHigh, livetime float64) {
	tLow = math.Inf(1)
	tHigh = math.Inf(-1)
	for _, u := range h.core.units {
		b := u.Context.Season.Bounds
		tLow = math.Min(tLow, b.Start)
		tHigh = math.Max(tHigh, b.End)
	}
	return tLow, tHigh, tHigh - tLow
}

// candidateBoundaries picks evenly spaced quantiles of the observed
// event times, bracketed by the full span.
func (h *flareSearchHandler) candidateBoundaries(pe *pseudoExperiment, tLow, tHigh float64) []float64 {
	times := make([]float64, 0, pe.n)
	for _, sample := range pe.samples {
		times = append(times, sample.Times()...)
	}
	sort.Float64s(times)

	boundaries := []float64{tLow}
	if len(times) > 0 {
		step := len(times) / maxFlareBoundaries
		if step < 1 {
			step = 1
		}
		for i := step; i < len(times); i += step {
			boundaries = append(boundaries, times[i])
		}
	}
	boundaries = append(boundaries, tHigh)
	return boundaries
}
