// Package testkit generates deterministic synthetic seasons, simulation
// tables and catalogues for package tests.
package testkit

import (
	"math"
	"math/rand/v2"

	"stacksearch/domain/catalogue"
	"stacksearch/domain/events"
	"stacksearch/internal/dataset"
	"stacksearch/internal/rng"
)

// SeasonConfig configures the synthetic season generator.
type SeasonConfig struct {
	Name      string
	StartMJD  float64
	EndMJD    float64
	NExp      int
	NMC       int
	Seed      int64
	SinDecMin float64
	SinDecMax float64
}

// DefaultSeasonConfig returns a season big enough for the background
// model to fit and small enough for fast tests.
func DefaultSeasonConfig() SeasonConfig {
	return SeasonConfig{
		Name:      "test_season",
		StartMJD:  56000,
		EndMJD:    56365,
		NExp:      500,
		NMC:       2000,
		Seed:      42,
		SinDecMin: -1,
		SinDecMax: 1,
	}
}

// NewSeason builds a season with uniform background-like data and, when
// cfg.NMC > 0, a power-law-generated simulation table.
func NewSeason(cfg SeasonConfig) (*dataset.Season, error) {
	r := rng.NewStream(cfg.Seed)

	exp := make(events.Sample, cfg.NExp)
	for i := range exp {
		exp[i] = randomEvent(r, cfg)
	}

	var mc []events.SimEvent
	if cfg.NMC > 0 {
		mc = make([]events.SimEvent, cfg.NMC)
		for i := range mc {
			mc[i] = randomSimEvent(r, cfg)
		}
	}
	return dataset.NewSeason(cfg.Name, cfg.StartMJD, cfg.EndMJD, exp, mc, nil)
}

// NewEffAreaSeason builds a season backed by a uniform effective-area
// grid instead of a simulation table.
func NewEffAreaSeason(cfg SeasonConfig) (*dataset.Season, error) {
	r := rng.NewStream(cfg.Seed)

	exp := make(events.Sample, cfg.NExp)
	for i := range exp {
		exp[i] = randomEvent(r, cfg)
	}

	ea := UniformEffectiveArea(cfg.SinDecMin, cfg.SinDecMax)
	return dataset.NewSeason(cfg.Name, cfg.StartMJD, cfg.EndMJD, exp, nil, ea)
}

// UniformEffectiveArea is a flat 4x6 grid over the requested declination
// band and log-energy 2..5.
func UniformEffectiveArea(sinDecMin, sinDecMax float64) *dataset.EffectiveArea {
	nDec, nE := 4, 6
	sinDecEdges := linspace(sinDecMin, sinDecMax, nDec+1)
	logEEdges := linspace(2, 5, nE+1)

	area := make([][]float64, nDec)
	for i := range area {
		area[i] = make([]float64, nE)
		for j := range area[i] {
			area[i][j] = 1e4
		}
	}
	angErr := make([]float64, nE)
	for j := range angErr {
		angErr[j] = 1.0
	}
	return &dataset.EffectiveArea{
		SinDecEdges: sinDecEdges,
		LogEEdges:   logEEdges,
		AreaCM2:     area,
		AngErrDeg:   angErr,
		LogESmear:   0.3,
	}
}

// SingleSource is a one-entry catalogue at the given position (radians).
func SingleSource(ra, dec float64) catalogue.Catalogue {
	return catalogue.Catalogue{{
		Name:   "test_source",
		RA:     ra,
		Dec:    dec,
		Weight: 1,
	}}
}

// MultiSource is an n-entry catalogue spread over the sky with equal
// weights.
func MultiSource(n int, seed int64) catalogue.Catalogue {
	r := rng.NewStream(seed)
	cat := make(catalogue.Catalogue, n)
	for i := range cat {
		cat[i] = catalogue.Source{
			Name:   "src",
			RA:     r.Float64() * 2 * math.Pi,
			Dec:    math.Asin(r.Float64()*1.6 - 0.8),
			Weight: 1,
		}
	}
	return cat
}

func randomEvent(r *rand.Rand, cfg SeasonConfig) events.Event {
	sinDec := cfg.SinDecMin + r.Float64()*(cfg.SinDecMax-cfg.SinDecMin)
	dec := math.Asin(sinDec)
	return events.Event{
		RA:        r.Float64() * 2 * math.Pi,
		Dec:       dec,
		SinDec:    sinDec,
		AngErr:    (0.5 + r.Float64()) * math.Pi / 180,
		LogEnergy: 2 + r.Float64()*3,
		Time:      cfg.StartMJD + r.Float64()*(cfg.EndMJD-cfg.StartMJD),
	}
}

func randomSimEvent(r *rand.Rand, cfg SeasonConfig) events.SimEvent {
	ev := randomEvent(r, cfg)
	// Draw the true energy from E^-1 over [1e2, 1e7] GeV so the
	// re-weighting covers every test spectral index.
	logETrue := 2 + r.Float64()*5
	trueE := math.Pow(10, logETrue)
	ev.LogEnergy = logETrue + r.NormFloat64()*0.3
	trueDec := ev.Dec + r.NormFloat64()*ev.AngErr
	trueDec = math.Max(-math.Pi/2, math.Min(math.Pi/2, trueDec))
	return events.SimEvent{
		Event:      ev,
		TrueRA:     ev.RA + r.NormFloat64()*ev.AngErr,
		TrueDec:    trueDec,
		TrueEnergy: trueE,
		// OneWeight absorbs the generation spectrum; a constant times
		// E_true keeps the E^-1 sampling unbiased.
		OneWeight: trueE * 1e-2,
	}
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
