package injection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"stacksearch/domain/astro"
	"stacksearch/domain/catalogue"
	"stacksearch/domain/spectral"
	"stacksearch/domain/temporal"
	"stacksearch/internal/errors"
	"stacksearch/internal/rng"
	"stacksearch/internal/testkit"
)

func mcTestInjector(t *testing.T, cat catalogue.Catalogue) Injector {
	t.Helper()
	season, err := testkit.NewSeason(testkit.DefaultSeasonConfig())
	require.NoError(t, err)

	inj, err := New(season, cat,
		spectral.PowerLaw{Gamma: 2},
		temporal.NewSteady(season.Bounds),
		[2]float64{100, 1e7})
	require.NoError(t, err)
	return inj
}

func effAreaTestInjector(t *testing.T, cat catalogue.Catalogue) Injector {
	t.Helper()
	cfg := testkit.DefaultSeasonConfig()
	season, err := testkit.NewEffAreaSeason(cfg)
	require.NoError(t, err)

	inj, err := New(season, cat,
		spectral.PowerLaw{Gamma: 2},
		temporal.NewSteady(season.Bounds),
		[2]float64{100, 1e7})
	require.NoError(t, err)
	return inj
}

func TestGenerateZeroMeanIsEmpty(t *testing.T) {
	inj := mcTestInjector(t, testkit.SingleSource(1.0, 0.2))
	r := rng.NewStream(1)
	assert.Empty(t, inj.Generate(r, 0))
	assert.Empty(t, inj.Generate(r, -3))
}

func TestGenerateIsDeterministicPerSeed(t *testing.T) {
	inj := mcTestInjector(t, testkit.SingleSource(1.0, 0.2))

	a := inj.Generate(rng.NewStream(12), 8)
	b := inj.Generate(rng.NewStream(12), 8)
	assert.Equal(t, a, b)
}

func TestGenerateMeanMatchesPoisson(t *testing.T) {
	inj := mcTestInjector(t, testkit.SingleSource(1.0, 0.2))
	r := rng.NewStream(3)

	const mean, trials = 6.0, 2000
	total := 0
	for i := 0; i < trials; i++ {
		total += len(inj.Generate(r, mean))
	}
	got := float64(total) / trials
	// 5σ band for the mean of `trials` Poisson(mean) draws.
	tol := 5 * math.Sqrt(mean/trials)
	assert.InDelta(t, mean, got, tol)
}

func TestGenerateCountsFollowPoisson(t *testing.T) {
	inj := mcTestInjector(t, testkit.SingleSource(1.0, 0.2))
	r := rng.NewStream(9)

	const mean, draws = 6.0, 2000
	counts := make(map[int]int)
	for i := 0; i < draws; i++ {
		counts[len(inj.Generate(r, mean))]++
	}

	// Chi-square goodness of fit against Poisson(mean). Bins are fixed in
	// advance with sparse cells pooled so every expected count is >= 5;
	// the last bin is the open tail.
	pois := distuv.Poisson{Lambda: mean}
	bins := []struct{ lo, hi int }{
		{0, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 6}, {7, 7}, {8, 8}, {9, 10}, {11, -1},
	}
	chi2 := 0.0
	for _, b := range bins {
		obs := 0
		for k, c := range counts {
			if k >= b.lo && (b.hi < 0 || k <= b.hi) {
				obs += c
			}
		}
		var p float64
		switch {
		case b.hi < 0:
			p = 1 - pois.CDF(float64(b.lo-1))
		case b.lo == 0:
			p = pois.CDF(float64(b.hi))
		default:
			p = pois.CDF(float64(b.hi)) - pois.CDF(float64(b.lo-1))
		}
		expected := draws * p
		chi2 += (float64(obs) - expected) * (float64(obs) - expected) / expected
	}

	crit := distuv.ChiSquared{K: float64(len(bins) - 1)}.Quantile(0.999)
	assert.Less(t, chi2, crit, "realized counts are not Poisson(%g)", float64(mean))
}

func TestGeneratedEventsClusterAroundSource(t *testing.T) {
	raSrc, decSrc := 1.0, 0.2
	inj := mcTestInjector(t, testkit.SingleSource(raSrc, decSrc))

	sample := inj.Generate(rng.NewStream(7), 200)
	require.NotEmpty(t, sample)

	for _, ev := range sample {
		dist := astro.AngularDistance(ev.RA, ev.Dec, raSrc, decSrc)
		assert.Less(t, dist, 0.3, "injected event far from the source")
	}
}

func TestGeneratedTimesInsideWindow(t *testing.T) {
	cfg := testkit.DefaultSeasonConfig()
	season, err := testkit.NewSeason(cfg)
	require.NoError(t, err)

	cat := catalogue.Catalogue{{Name: "flare", RA: 1.0, Dec: 0.2, Weight: 1, RefTime: 56100}}
	box := temporal.NewFixedWindowBox(season.Bounds, 5, 15)

	inj, err := New(season, cat, spectral.PowerLaw{Gamma: 2}, box, [2]float64{100, 1e7})
	require.NoError(t, err)

	sample := inj.Generate(rng.NewStream(4), 100)
	require.NotEmpty(t, sample)
	for _, ev := range sample {
		assert.GreaterOrEqual(t, ev.Time, 56095.0)
		assert.LessOrEqual(t, ev.Time, 56115.0)
	}
}

func TestOutOfCoverageSourceContributesNothing(t *testing.T) {
	cfg := testkit.DefaultSeasonConfig()
	cfg.SinDecMin, cfg.SinDecMax = -0.5, 0.5
	season, err := testkit.NewEffAreaSeason(cfg)
	require.NoError(t, err)

	// A source near the pole, outside the covered band.
	cat := testkit.SingleSource(1.0, 1.4)
	inj, err := New(season, cat,
		spectral.PowerLaw{Gamma: 2},
		temporal.NewSteady(season.Bounds),
		[2]float64{100, 1e7})
	require.NoError(t, err)

	assert.Equal(t, 0.0, inj.Acceptance())
	assert.Empty(t, inj.Generate(rng.NewStream(1), 10))
	assert.Equal(t, 0.0, inj.FluxForMeanSignal(5), "zero acceptance maps to zero flux")
}

func TestFluxConversionRoundTrip(t *testing.T) {
	inj := mcTestInjector(t, testkit.SingleSource(1.0, 0.2))
	require.Greater(t, inj.Acceptance(), 0.0)

	flux := inj.FluxForMeanSignal(10)
	assert.InDelta(t, 10.0, inj.MeanSignal(flux), 1e-9)
}

func TestEffAreaInjectorGenerates(t *testing.T) {
	inj := effAreaTestInjector(t, testkit.SingleSource(1.0, 0.2))
	require.Greater(t, inj.Acceptance(), 0.0)

	sample := inj.Generate(rng.NewStream(5), 50)
	require.NotEmpty(t, sample)
	for _, ev := range sample {
		assert.GreaterOrEqual(t, ev.RA, 0.0)
		assert.Less(t, ev.RA, 2*math.Pi)
		assert.LessOrEqual(t, math.Abs(ev.Dec), math.Pi/2)
	}
}

func TestNewRequiresInjectionInputs(t *testing.T) {
	cfg := testkit.DefaultSeasonConfig()
	cfg.NMC = 0
	season, err := testkit.NewSeason(cfg)
	require.NoError(t, err)

	_, err = New(season, testkit.SingleSource(1.0, 0.2),
		spectral.PowerLaw{Gamma: 2},
		temporal.NewSteady(season.Bounds),
		[2]float64{100, 1e7})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConfigInvalid))
}
