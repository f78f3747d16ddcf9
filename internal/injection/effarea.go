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

// effAreaInjector synthesizes pseudo-events directly from a
// declination-binned effective-area parametrization: per energy bin the
// expected count is A(dec, E)·∫dN/dE·T_eff, the reconstructed energy is
// the true energy smeared by the parametrized resolution, and the
// direction is the source position smeared by the parametrized angular
// error.
type effAreaInjector struct {
	season  *dataset.Season
	timePDF temporal.TimePDF
	area    *dataset.EffectiveArea

	sources []effAreaSource
	srcCum  []float64
	accept  float64
}

type effAreaSource struct {
	src    *catalogue.Source
	binCum []float64 // cumulative expectations per energy bin at unit flux
	expect float64
}

func newEffAreaInjector(season *dataset.Season, cat catalogue.Catalogue, energyPDF spectral.EnergyPDF, timePDF temporal.TimePDF, energyRange [2]float64) (*effAreaInjector, error) {
	area := season.EffArea
	if err := area.Validate(); err != nil {
		return nil, err
	}
	inj := &effAreaInjector{season: season, timePDF: timePDF, area: area}

	eMin, eMax := energyRange[0], energyRange[1]
	if eMin <= 0 {
		eMin = spectral.DefaultEMinGeV
	}
	if eMax <= 0 {
		eMax = spectral.DefaultEMaxGeV
	}

	relWeights := cat.NormalizedWeights()
	nBins := len(area.LogEEdges) - 1
	for k := range cat {
		src := &cat[k]
		sinDec := math.Sin(src.Dec)
		if !season.Covers(sinDec) || relWeights[k] == 0 {
			continue
		}
		tEff := timePDF.EffectiveInjectionTime(src)
		if tEff <= 0 {
			continue
		}

		binExpect := make([]float64, nBins)
		total := 0.0
		for b := 0; b < nBins; b++ {
			lo := math.Max(math.Pow(10, area.LogEEdges[b]), eMin)
			hi := math.Min(math.Pow(10, area.LogEEdges[b+1]), eMax)
			if hi <= lo {
				continue
			}
			logECenter := 0.5 * (area.LogEEdges[b] + area.LogEEdges[b+1])
			a := area.Area(sinDec, logECenter)
			if a <= 0 {
				continue
			}
			expect := a * energyPDF.Integral(lo, hi) * tEff * secondsPerDay
			binExpect[b] = expect
			total += expect
		}
		if total <= 0 {
			continue
		}
		total *= relWeights[k]
		for b := range binExpect {
			binExpect[b] *= relWeights[k]
		}

		inj.sources = append(inj.sources, effAreaSource{
			src:    src,
			binCum: cumulative(binExpect),
			expect: total,
		})
		inj.accept += total
	}

	srcExpect := make([]float64, len(inj.sources))
	for i, s := range inj.sources {
		srcExpect[i] = s.expect
	}
	inj.srcCum = cumulative(srcExpect)
	return inj, nil
}

func (inj *effAreaInjector) Acceptance() float64 {
	return inj.accept
}

func (inj *effAreaInjector) MeanSignal(fluxNorm float64) float64 {
	return fluxNorm * inj.accept
}

func (inj *effAreaInjector) FluxForMeanSignal(mean float64) float64 {
	if inj.accept <= 0 {
		return 0
	}
	return mean / inj.accept
}

func (inj *effAreaInjector) Generate(r *rand.Rand, meanSignal float64) events.Sample {
	if meanSignal <= 0 || len(inj.sources) == 0 || inj.accept <= 0 {
		return nil
	}
	n := poissonCount(r, meanSignal)
	out := make(events.Sample, 0, n)
	for i := 0; i < n; i++ {
		es := &inj.sources[drawIndex(r, inj.srcCum)]
		bin := drawIndex(r, es.binCum)

		logETrue := inj.area.LogEEdges[bin] + r.Float64()*(inj.area.LogEEdges[bin+1]-inj.area.LogEEdges[bin])
		logEReco := logETrue + r.NormFloat64()*inj.area.LogESmear
		angErr := astro.DegToRad(inj.area.AngErrAt(logETrue))

		ra, dec := smearDirection(r, es.src.RA, es.src.Dec, angErr)
		out = append(out, events.Event{
			RA:        ra,
			Dec:       dec,
			SinDec:    math.Sin(dec),
			AngErr:    angErr,
			LogEnergy: logEReco,
			Time:      sampleTime(r, inj.timePDF, es.src),
		})
	}
	return out
}

// smearDirection offsets a source position by a Rayleigh-distributed
// angular distance with random azimuth.
func smearDirection(r *rand.Rand, raSrc, decSrc, sigma float64) (float64, float64) {
	dist := sigma * math.Sqrt(-2*math.Log(1-r.Float64()))
	azimuth := r.Float64() * 2 * math.Pi

	dec := decSrc + dist*math.Cos(azimuth)
	ra := raSrc + dist*math.Sin(azimuth)/math.Max(math.Cos(decSrc), 1e-6)
	if dec > math.Pi/2 {
		dec = math.Pi - dec
	}
	if dec < -math.Pi/2 {
		dec = -math.Pi - dec
	}
	for ra < 0 {
		ra += 2 * math.Pi
	}
	for ra >= 2*math.Pi {
		ra -= 2 * math.Pi
	}
	return ra, dec
}
