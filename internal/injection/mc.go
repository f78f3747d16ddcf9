package injection

import (
	"math"
	"math/rand/v2"

	"stacksearch/domain/astro"
	"stacksearch/domain/catalogue"
	"stacksearch/domain/events"
	"stacksearch/domain/spectral"
	"stacksearch/domain/temporal"
	"stacksearch/internal/dataset"
)

// Injection declination band half-width in sin(dec). Widened when the
// band holds too few simulated events.
const (
	injBandHalfWidth = 0.05
	injBandMinEvents = 10
	injBandMaxWidth  = 0.2
)

// mcInjector re-weights the season's simulated events: each event in a
// declination band around a source carries
// OneWeight · dN/dE(E_true) · T_eff / Ω_band, so the summed weights give
// the expected count per unit flux normalization. Drawn events keep
// their reconstructed quantities and are rotated onto the source.
type mcInjector struct {
	season  *dataset.Season
	timePDF temporal.TimePDF

	sources []mcSource
	srcCum  []float64 // cumulative per-source expectations at unit flux
	accept  float64   // total expectation at unit flux
}

type mcSource struct {
	src     *catalogue.Source
	indices []int     // MC rows in the declination band
	cum     []float64 // cumulative per-event weights
	expect  float64   // expected events at unit flux
}

func newMCInjector(season *dataset.Season, cat catalogue.Catalogue, energyPDF spectral.EnergyPDF, timePDF temporal.TimePDF) (*mcInjector, error) {
	inj := &mcInjector{season: season, timePDF: timePDF}

	relWeights := cat.NormalizedWeights()
	for k := range cat {
		src := &cat[k]
		sinDec := math.Sin(src.Dec)
		if !season.Covers(sinDec) || relWeights[k] == 0 {
			// Outside the season's sky coverage: zero contribution,
			// not an error.
			continue
		}

		tEff := timePDF.EffectiveInjectionTime(src)
		if tEff <= 0 {
			continue
		}

		indices, low, high := bandIndices(season.MC, sinDec)
		if len(indices) == 0 {
			continue
		}
		omega := astro.BandSolidAngle(low, high)

		weights := make([]float64, len(indices))
		expect := 0.0
		for i, j := range indices {
			ev := season.MC[j]
			w := ev.OneWeight * energyPDF.Weight(ev.TrueEnergy) * tEff * secondsPerDay / omega
			weights[i] = w
			expect += w
		}
		if expect <= 0 {
			continue
		}
		expect *= relWeights[k]

		inj.sources = append(inj.sources, mcSource{
			src:     src,
			indices: indices,
			cum:     cumulative(weights),
			expect:  expect,
		})
		inj.accept += expect
	}

	srcExpect := make([]float64, len(inj.sources))
	for i, s := range inj.sources {
		srcExpect[i] = s.expect
	}
	inj.srcCum = cumulative(srcExpect)
	return inj, nil
}

// bandIndices selects MC rows whose true declination falls in a band
// around the source, widening the band until it holds enough events.
func bandIndices(mc []events.SimEvent, sinDecSrc float64) (indices []int, low, high float64) {
	halfWidth := injBandHalfWidth
	for {
		low = math.Max(sinDecSrc-halfWidth, -1)
		high = math.Min(sinDecSrc+halfWidth, 1)
		indices = indices[:0]
		for j, ev := range mc {
			trueSinDec := math.Sin(ev.TrueDec)
			if trueSinDec >= low && trueSinDec <= high {
				indices = append(indices, j)
			}
		}
		if len(indices) >= injBandMinEvents || halfWidth >= injBandMaxWidth {
			return indices, low, high
		}
		halfWidth *= 2
	}
}

func (inj *mcInjector) Acceptance() float64 {
	return inj.accept
}

func (inj *mcInjector) MeanSignal(fluxNorm float64) float64 {
	return fluxNorm * inj.accept
}

func (inj *mcInjector) FluxForMeanSignal(mean float64) float64 {
	if inj.accept <= 0 {
		return 0
	}
	return mean / inj.accept
}

func (inj *mcInjector) Generate(r *rand.Rand, meanSignal float64) events.Sample {
	if meanSignal <= 0 || len(inj.sources) == 0 || inj.accept <= 0 {
		return nil
	}
	n := poissonCount(r, meanSignal)
	out := make(events.Sample, 0, n)
	for i := 0; i < n; i++ {
		ms := &inj.sources[drawIndex(r, inj.srcCum)]
		mcEv := inj.season.MC[ms.indices[drawIndex(r, ms.cum)]]

		ra, dec := astro.RotateToSource(
			mcEv.RA, mcEv.Dec,
			mcEv.TrueRA, mcEv.TrueDec,
			ms.src.RA, ms.src.Dec,
		)
		out = append(out, events.Event{
			RA:        ra,
			Dec:       dec,
			SinDec:    math.Sin(dec),
			AngErr:    mcEv.AngErr,
			LogEnergy: mcEv.LogEnergy,
			Time:      sampleTime(r, inj.timePDF, ms.src),
		})
	}
	return out
}
