package likelihood

import (
	"math"

	"stacksearch/domain/events"
)

// Params are the free parameters of the likelihood: the total signal
// strength and the spectral index.
type Params struct {
	NS    float64
	Gamma float64
}

// Evaluator is the signed log-likelihood-ratio function Λ(θ) for one
// pseudo-dataset against one season. Λ(0) = 0 for any dataset, and the
// one-sided TS convention (TS = 0 when n̂_s <= 0) is applied by the
// minimization layer.
type Evaluator interface {
	// Eval returns Λ(θ) = Σ_i log(1 + (n_s/N)·(S_i/B_i − 1)).
	Eval(p Params) float64

	// NEvents is the pseudo-dataset size N entering the n_s/N factor.
	NEvents() int
}

// eventTerm is the gamma-independent part of one (event, source) pair:
// spatial kernel times temporal ratio, divided by the spatial-temporal
// background density.
type eventTerm struct {
	source int
	static float64
}

// standardEvaluator combines sources with fixed normalized weights: the
// per-event signal-over-background ratio is a frozen weighted sum over
// sources, scaled by the shared energy ratio.
type standardEvaluator struct {
	n      int
	static []float64 // Σ_k w_k · static_ik per event
	logE   []float64
	ratio  *energyRatio
}

func (e *standardEvaluator) NEvents() int { return e.n }

func (e *standardEvaluator) Eval(p Params) float64 {
	if e.n == 0 || p.NS == 0 {
		return 0
	}
	x := p.NS / float64(e.n)
	llr := 0.0
	for i, st := range e.static {
		soverb := 0.0
		if st > 0 {
			soverb = st * e.ratio.Ratio(e.logE[i], p.Gamma)
		}
		llr += safeLog1p(x * (soverb - 1))
	}
	return llr
}

// matrixEvaluator keeps the per-source terms separate and recomputes the
// weight vector from the gamma-dependent acceptance matrix at every
// evaluation, so the source combination floats with the spectral index.
type matrixEvaluator struct {
	n        int
	terms    [][]eventTerm
	logE     []float64
	ratio    *energyRatio
	catW     []float64   // catalogue weights, normalized
	accCurve [][]float64 // per source, on the gamma grid
}

func (e *matrixEvaluator) NEvents() int { return e.n }

func (e *matrixEvaluator) Eval(p Params) float64 {
	if e.n == 0 || p.NS == 0 {
		return 0
	}

	weights := make([]float64, len(e.catW))
	total := 0.0
	for k := range weights {
		w := e.catW[k] * interpAcceptance(e.accCurve[k], p.Gamma)
		weights[k] = w
		total += w
	}
	if total <= 0 {
		return 0
	}
	for k := range weights {
		weights[k] /= total
	}

	x := p.NS / float64(e.n)
	llr := 0.0
	for i, terms := range e.terms {
		soverb := 0.0
		for _, t := range terms {
			soverb += weights[t.source] * t.static
		}
		if soverb > 0 {
			soverb *= e.ratio.Ratio(e.logE[i], p.Gamma)
		}
		llr += safeLog1p(x * (soverb - 1))
	}
	return llr
}

// RatioFreezer is implemented by evaluators that can hand out the
// per-event S_i/B_i vector at a pinned spectral index, letting
// large-catalogue handlers reduce each optimizer step to a vectorized
// one-dimensional scan in n_s.
type RatioFreezer interface {
	FrozenRatios(gamma float64) []float64
}

// FrozenRatios returns S_i/B_i per event at a fixed gamma.
func (e *standardEvaluator) FrozenRatios(gamma float64) []float64 {
	out := make([]float64, e.n)
	for i, st := range e.static {
		if st > 0 {
			out[i] = st * e.ratio.Ratio(e.logE[i], gamma)
		}
	}
	return out
}

// FrozenRatios returns S_i/B_i per event at a fixed gamma, with the
// acceptance-matrix weights evaluated once at that gamma.
func (e *matrixEvaluator) FrozenRatios(gamma float64) []float64 {
	weights := make([]float64, len(e.catW))
	total := 0.0
	for k := range weights {
		w := e.catW[k] * interpAcceptance(e.accCurve[k], gamma)
		weights[k] = w
		total += w
	}
	out := make([]float64, e.n)
	if total <= 0 {
		return out
	}
	for i, terms := range e.terms {
		soverb := 0.0
		for _, t := range terms {
			soverb += weights[t.source] / total * t.static
		}
		if soverb > 0 {
			soverb *= e.ratio.Ratio(e.logE[i], gamma)
		}
		out[i] = soverb
	}
	return out
}

func (emptyEvaluator) FrozenRatios(float64) []float64 { return nil }

// safeLog1p keeps the likelihood finite when n_s approaches the event
// count on a pure-background event.
func safeLog1p(x float64) float64 {
	if x <= -1+1e-12 {
		x = -1 + 1e-12
	}
	return math.Log1p(x)
}

// emptyEvaluator stands in for a zero-information pseudo-dataset.
type emptyEvaluator struct{}

func (emptyEvaluator) Eval(Params) float64 { return 0 }
func (emptyEvaluator) NEvents() int        { return 0 }

// buildTerms computes the gamma-independent (event, source) terms for a
// pseudo-dataset against a season context.
func (c *SeasonContext) buildTerms(sample events.Sample) ([][]eventTerm, []float64) {
	terms := make([][]eventTerm, len(sample))
	logE := make([]float64, len(sample))
	for i := range sample {
		ev := &sample[i]
		logE[i] = ev.LogEnergy

		bkgSpatial := c.Bkg.SpatialDensity(ev.SinDec) / (2 * math.Pi)
		bkgTime := c.BkgTime.Density(ev.Time, nil)
		if bkgSpatial <= 0 || bkgTime <= 0 {
			continue
		}

		for k := range c.Cat {
			src := &c.Cat[k]
			spatial := signalSpatial(ev, src)
			if spatial == 0 {
				continue
			}
			sigTime := c.SigTime.Density(ev.Time, src)
			if sigTime == 0 {
				continue
			}
			static := spatial / bkgSpatial * sigTime / bkgTime
			terms[i] = append(terms[i], eventTerm{source: k, static: static})
		}
	}
	return terms, logE
}
