package minimize

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"stacksearch/domain/catalogue"
	"stacksearch/domain/spectral"
	"stacksearch/domain/temporal"
	"stacksearch/domain/trials"
	"stacksearch/internal/errors"
	"stacksearch/internal/injection"
	"stacksearch/internal/likelihood"
	"stacksearch/internal/testkit"
	"stacksearch/ports"
)

func testUnits(t *testing.T, cat catalogue.Catalogue, llhName string) []SeasonUnit {
	t.Helper()
	cfg := testkit.DefaultSeasonConfig()
	cfg.NExp = 300
	season, err := testkit.NewSeason(cfg)
	require.NoError(t, err)

	llhCfg := likelihood.Config{
		Name:       llhName,
		SigTimePDF: temporal.Config{Name: temporal.NameSteady},
		EnergyPDF:  spectral.Config{Name: spectral.NamePowerLaw, Gamma: 2},
	}
	ctx, err := likelihood.NewSeasonContext(llhCfg, season, cat)
	require.NoError(t, err)

	inj, err := injection.New(season, cat,
		spectral.PowerLaw{Gamma: 2},
		temporal.NewSteady(season.Bounds),
		[2]float64{100, 1e7})
	require.NoError(t, err)

	return []SeasonUnit{{Context: ctx, Injector: inj}}
}

func TestNewValidatesName(t *testing.T) {
	units := testUnits(t, testkit.SingleSource(1.0, 0.2), likelihood.NameStandard)

	_, err := New(Config{}, units)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConfigInvalid))

	_, err = New(Config{Name: "simulated_annealing"}, units)
	require.Error(t, err)

	_, err = New(Config{Name: NameFixedWeights}, nil)
	require.Error(t, err)

	for _, name := range []string{NameFixedWeights, NameLargeCatalogue, NameFlareSearch} {
		h, err := New(Config{Name: name}, units)
		require.NoError(t, err)
		assert.Equal(t, name, h.Name())
	}
}

func TestTrialIsReproduciblePerSeed(t *testing.T) {
	units := testUnits(t, testkit.SingleSource(1.0, 0.2), likelihood.NameStandard)
	h, err := New(Config{Name: NameFixedWeights}, units)
	require.NoError(t, err)

	a := h.RunTrial(42, 20)
	b := h.RunTrial(42, 20)
	assert.Equal(t, a, b)

	c := h.RunTrial(43, 20)
	assert.NotEqual(t, [2]float64{a.NS, a.TS}, [2]float64{c.NS, c.TS},
		"different seeds must scramble differently")
}

func TestTrialTSIsOneSided(t *testing.T) {
	units := testUnits(t, testkit.SingleSource(1.0, 0.2), likelihood.NameStandard)
	h, err := New(Config{Name: NameFixedWeights}, units)
	require.NoError(t, err)

	for seed := int64(0); seed < 20; seed++ {
		res := h.RunTrial(seed, 0)
		assert.GreaterOrEqual(t, res.TS, 0.0, "seed %d", seed)
		assert.GreaterOrEqual(t, res.NS, 0.0, "seed %d", seed)
		assert.GreaterOrEqual(t, res.Gamma, gammaLower, "seed %d", seed)
		assert.LessOrEqual(t, res.Gamma, gammaUpper, "seed %d", seed)
	}
}

func TestInjectedSignalRaisesTS(t *testing.T) {
	units := testUnits(t, testkit.SingleSource(1.0, 0.2), likelihood.NameStandard)
	h, err := New(Config{Name: NameFixedWeights}, units)
	require.NoError(t, err)

	const nTrials = 25
	bkgSum, sigSum := 0.0, 0.0
	for seed := int64(0); seed < nTrials; seed++ {
		bkgSum += h.RunTrial(seed, 0).TS
		sigSum += h.RunTrial(seed, 40).TS
	}
	assert.Greater(t, sigSum/nTrials, bkgSum/nTrials)
}

func TestLargeCatalogueHandlerPinsGamma(t *testing.T) {
	units := testUnits(t, testkit.MultiSource(8, 11), likelihood.NameStandard)
	h, err := New(Config{Name: NameLargeCatalogue, FixedGamma: 2.5}, units)
	require.NoError(t, err)

	res := h.RunTrial(7, 0)
	assert.Equal(t, 2.5, res.Gamma)
	assert.GreaterOrEqual(t, res.TS, 0.0)
}

func TestFlareSearchNeverBelowZero(t *testing.T) {
	units := testUnits(t, testkit.SingleSource(1.0, 0.2), likelihood.NameStandard)
	h, err := New(Config{Name: NameFlareSearch}, units)
	require.NoError(t, err)

	for seed := int64(0); seed < 5; seed++ {
		res := h.RunTrial(seed, 0)
		assert.GreaterOrEqual(t, res.TS, 0.0)
	}
}

func TestMockUnblindEqualsBackgroundTrial(t *testing.T) {
	units := testUnits(t, testkit.SingleSource(1.0, 0.2), likelihood.NameStandard)
	h, err := New(Config{Name: NameFixedWeights}, units)
	require.NoError(t, err)

	// A mock unblinding is exactly a background-only trial at the same
	// seed: same scramble, same fit, bit-for-bit.
	mock := h.RunTrial(1234, 0)
	trial := h.RunTrial(1234, 0)
	assert.Equal(t, trial, mock)
}

func TestRunDataFitsUnscrambledSample(t *testing.T) {
	units := testUnits(t, testkit.SingleSource(1.0, 0.2), likelihood.NameStandard)
	h, err := New(Config{Name: NameFixedWeights}, units)
	require.NoError(t, err)

	a := h.RunData(1)
	b := h.RunData(1)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a.TS, 0.0)
	assert.Equal(t, 0.0, a.Scale)
}

func TestBackgroundSimWindowDrivesScrambledTimes(t *testing.T) {
	units := testUnits(t, testkit.SingleSource(1.0, 0.2), likelihood.NameStandard)
	bounds := units[0].Context.Season.Bounds
	units[0].BkgSim = temporal.NewFixedReferenceBox(bounds, 56100, 5, 15)

	core := newTrialCore(units)
	pe := core.assemble(11, 0, true)
	require.Greater(t, pe.n, 0)
	for _, sample := range pe.samples {
		for _, ev := range sample {
			assert.GreaterOrEqual(t, ev.Time, 56095.0)
			assert.LessOrEqual(t, ev.Time, 56115.0)
		}
	}

	// Same seed, same resimulated background.
	again := core.assemble(11, 0, true)
	assert.Equal(t, pe.samples, again.samples)
}

func TestBackgroundTSMedianZeroAndTailBounded(t *testing.T) {
	units := testUnits(t, testkit.SingleSource(1.0, 0.2), likelihood.NameStandard)
	h, err := New(Config{Name: NameFixedWeights}, units)
	require.NoError(t, err)

	const n = 300
	ts := make([]float64, n)
	zeros := 0
	for i := range ts {
		ts[i] = h.RunTrial(int64(5000+i), 0).TS
		if ts[i] == 0 {
			zeros++
		}
	}

	// Over half the background-only trials sit at the TS = 0 boundary,
	// so the median is exactly zero.
	assert.Greater(t, float64(zeros)/n, 0.5)
	sort.Float64s(ts)
	assert.Equal(t, 0.0, ts[n/2])

	// The upper tail must stay under the half-chi-square (1 dof)
	// survival function, the asymptotic envelope for a one-sided TS with
	// one boundary parameter.
	chi2 := distuv.ChiSquared{K: 1}
	for _, threshold := range []float64{0.5, 1.0, 2.0} {
		above := 0
		for _, v := range ts {
			if v > threshold {
				above++
			}
		}
		bound := 0.5 * (1 - chi2.CDF(threshold))
		assert.LessOrEqual(t, float64(above)/n, bound+0.05, "threshold %g", threshold)
	}
}

func TestMeanFittedSignalTracksInjectedMean(t *testing.T) {
	units := testUnits(t, testkit.SingleSource(1.0, 0.2), likelihood.NameStandard)
	h, err := New(Config{Name: NameFixedWeights}, units)
	require.NoError(t, err)

	const mean, n = 30.0, 120
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += h.RunTrial(int64(9000+i), mean).NS
	}
	assert.InDelta(t, mean, sum/n, 3.0, "fitted n_s biased against the injected mean")
}

// memStore collects appended records in memory.
type memStore struct {
	records []trials.Result
}

func (m *memStore) Append(_ context.Context, _ string, results ...trials.Result) error {
	m.records = append(m.records, results...)
	return nil
}

func (m *memStore) Load(context.Context) ([]trials.Result, error) {
	return m.records, nil
}

var _ ports.TrialStore = (*memStore)(nil)

func TestRunnerExecutesAllTrials(t *testing.T) {
	units := testUnits(t, testkit.SingleSource(1.0, 0.2), likelihood.NameStandard)
	h, err := New(Config{Name: NameFixedWeights}, units)
	require.NoError(t, err)

	store := &memStore{}
	runner := NewRunner(h, store, nil)

	spec := RunSpec{Scales: []float64{0, 10}, NTrials: 4, BaseSeed: 100, Workers: 2}
	results, err := runner.Run(context.Background(), spec)
	require.NoError(t, err)
	require.Len(t, results, 8)

	byScale := trials.ByScale(results)
	assert.Len(t, byScale[0], 4)
	assert.Len(t, byScale[10], 4)
	assert.Len(t, store.records, 8)
}

func TestRunnerIsSeedDeterministic(t *testing.T) {
	units := testUnits(t, testkit.SingleSource(1.0, 0.2), likelihood.NameStandard)
	h, err := New(Config{Name: NameFixedWeights}, units)
	require.NoError(t, err)

	spec := RunSpec{Scales: []float64{0}, NTrials: 5, BaseSeed: 7, Workers: 4}

	a, err := NewRunner(h, nil, nil).Run(context.Background(), spec)
	require.NoError(t, err)
	b, err := NewRunner(h, nil, nil).Run(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, a, b, "worker scheduling must not leak into results")
}
