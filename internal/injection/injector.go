// Package injection synthesizes signal event samples for
// pseudo-experiments. Two strategies exist behind one contract: MC
// re-weighting when a full simulated event table is available, and
// effective-area synthesis when it is not.
package injection

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"stacksearch/domain/catalogue"
	"stacksearch/domain/events"
	"stacksearch/domain/spectral"
	"stacksearch/domain/temporal"
	"stacksearch/internal/dataset"
	"stacksearch/internal/errors"
)

const secondsPerDay = 86400.0

// Injector produces synthetic signal for one season. Generate is total
// for meanSignal >= 0 and returns a Poisson(meanSignal)-distributed
// number of events; zero is a valid, common outcome. Sources outside the
// season's sky coverage contribute nothing.
type Injector interface {
	// Generate draws one signal realization with the given expected
	// mean count, using the trial's private random stream.
	Generate(r *rand.Rand, meanSignal float64) events.Sample

	// Acceptance returns the expected signal count for unit flux
	// normalization (GeV⁻¹ cm⁻² s⁻¹ at 1 GeV), summed over sources.
	Acceptance() float64

	// MeanSignal converts a flux normalization to an expected count.
	MeanSignal(fluxNorm float64) float64

	// FluxForMeanSignal converts an expected count back to a flux
	// normalization. Zero acceptance maps to zero flux.
	FluxForMeanSignal(mean float64) float64
}

// New selects the injection strategy for a season: MC re-weighting when
// a simulated table exists, effective-area synthesis otherwise.
func New(season *dataset.Season, cat catalogue.Catalogue, energyPDF spectral.EnergyPDF, timePDF temporal.TimePDF, energyRange [2]float64) (Injector, error) {
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	if season.HasMC() {
		return newMCInjector(season, cat, energyPDF, timePDF)
	}
	if season.EffArea != nil {
		return newEffAreaInjector(season, cat, energyPDF, timePDF, energyRange)
	}
	return nil, errors.ConfigInvalidf("season %s has neither simulation nor an effective-area parametrization; cannot inject", season.Name)
}

// poissonCount draws the realized event count.
func poissonCount(r *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	p := distuv.Poisson{Lambda: mean, Src: r}
	return int(p.Rand())
}

// sampleTime draws an arrival time from a temporal model by inverting
// its CDF with bisection, which works for every variant including the
// piecewise on/off list.
func sampleTime(r *rand.Rand, pdf temporal.TimePDF, src *catalogue.Source) float64 {
	t0, t1 := pdf.Range(src)
	if t1 <= t0 {
		return t0
	}
	total := pdf.Integrate(t0, t1, src)
	if total <= 0 {
		return t0
	}
	target := r.Float64() * total
	lo, hi := t0, t1
	for i := 0; i < 60; i++ {
		mid := 0.5 * (lo + hi)
		if pdf.Integrate(t0, mid, src) < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

// cumulative builds a cumulative weight table for weighted sampling.
func cumulative(weights []float64) []float64 {
	cum := make([]float64, len(weights))
	total := 0.0
	for i, w := range weights {
		total += w
		cum[i] = total
	}
	return cum
}

// drawIndex picks an index proportionally to the weights behind cum.
func drawIndex(r *rand.Rand, cum []float64) int {
	total := cum[len(cum)-1]
	u := r.Float64() * total
	return sort.SearchFloat64s(cum, u)
}
