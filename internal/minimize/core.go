package minimize

import (
	"math"
	"math/rand/v2"

	"stacksearch/domain/events"
	"stacksearch/domain/trials"
	"stacksearch/internal/dataset"
	"stacksearch/internal/likelihood"
	"stacksearch/internal/rng"
)

// trialCore holds the immutable per-run state shared by every handler
// type: the season units and the fixed injection share of each season.
type trialCore struct {
	units     []SeasonUnit
	shares    []float64
	seedGamma float64
}

func newTrialCore(units []SeasonUnit) *trialCore {
	shares := make([]float64, len(units))
	total := 0.0
	for i, u := range units {
		shares[i] = u.Injector.Acceptance()
		total += shares[i]
	}
	if total > 0 {
		for i := range shares {
			shares[i] /= total
		}
	} else {
		for i := range shares {
			shares[i] = 1 / float64(len(units))
		}
	}

	seedGamma := units[0].Context.SeedGamma()
	if seedGamma <= 0 {
		seedGamma = 2.0
	}
	return &trialCore{units: units, shares: shares, seedGamma: seedGamma}
}

// pseudoExperiment is one realized trial dataset: per-season samples and
// their evaluators. Ephemeral; discarded once the TS is recorded.
type pseudoExperiment struct {
	samples []events.Sample
	evals   []likelihood.Evaluator
	n       int
}

// assemble builds the pseudo-experiment for one trial. The trial's
// private stream drives scrambling and injection in a fixed order, so a
// seed fully determines the dataset. With scramble=false the real,
// unscrambled data is used (unblinding only).
func (c *trialCore) assemble(seed int64, scale float64, scramble bool) *pseudoExperiment {
	r := rng.NewStream(seed)
	pe := &pseudoExperiment{
		samples: make([]events.Sample, len(c.units)),
		evals:   make([]likelihood.Evaluator, len(c.units)),
	}
	for i, u := range c.units {
		var background events.Sample
		switch {
		case scramble && u.BkgSim != nil:
			background = dataset.ScrambleSimWith(r, u.Context.Season.Exp, u.BkgSim)
		case scramble:
			background = dataset.ScrambleWith(r, u.Context.Season.Exp)
		default:
			background = u.Context.Season.Exp
		}
		signal := u.Injector.Generate(r, scale*c.shares[i])
		sample := events.Merge(background, signal)
		pe.samples[i] = sample
		pe.evals[i] = u.Context.NewEvaluator(sample)
		pe.n += len(sample)
	}
	return pe
}

// logLikelihoodRatio is the stacked Λ across seasons, with the total
// signal strength split by the fixed season shares.
func (c *trialCore) logLikelihoodRatio(pe *pseudoExperiment, ns, gamma float64) float64 {
	llr := 0.0
	for i, eval := range pe.evals {
		llr += eval.Eval(likelihood.Params{NS: ns * c.shares[i], Gamma: gamma})
	}
	return llr
}

// record applies the one-sided TS convention and assembles the trial
// result. Λ̂ below zero (numerical noise around a flat likelihood) is
// recorded as TS = 0.
func (c *trialCore) record(seed int64, scale float64, ns, gamma, llr float64, converged bool) trials.Result {
	ts := 2 * llr
	if ns <= 0 || ts < 0 {
		ts = 0
	}
	return trials.Result{
		Scale:     scale,
		Seed:      seed,
		NS:        ns,
		Gamma:     gamma,
		TS:        ts,
		Converged: converged,
	}
}

// degenerate is the record for a zero-information trial.
func degenerate(seed int64, scale, gamma float64) trials.Result {
	return trials.Result{
		Scale:      scale,
		Seed:       seed,
		Gamma:      gamma,
		TS:         0,
		Converged:  true,
		Degenerate: true,
	}
}

// fitStream derives the optimizer's restart stream from the trial seed
// so restarts are reproducible too.
func fitStream(seed int64) *rand.Rand {
	return rng.NewStream(seed ^ 0x5bf03635)
}

// log1pClamped matches the likelihood's guard against n_s reaching the
// event count on a pure-background event.
func log1pClamped(x float64) float64 {
	if x <= -1+1e-12 {
		x = -1 + 1e-12
	}
	return math.Log1p(x)
}
