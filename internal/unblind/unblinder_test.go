package unblind

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stacksearch/domain/spectral"
	"stacksearch/domain/temporal"
	"stacksearch/domain/trials"
	"stacksearch/internal/errors"
	"stacksearch/internal/injection"
	"stacksearch/internal/likelihood"
	"stacksearch/internal/minimize"
	"stacksearch/internal/results"
	"stacksearch/internal/testkit"
)

func testHandler(t *testing.T) minimize.Handler {
	t.Helper()
	cfg := testkit.DefaultSeasonConfig()
	cfg.NExp = 300
	season, err := testkit.NewSeason(cfg)
	require.NoError(t, err)

	cat := testkit.SingleSource(1.0, 0.2)
	ctx, err := likelihood.NewSeasonContext(likelihood.Config{
		Name:       likelihood.NameStandard,
		SigTimePDF: temporal.Config{Name: temporal.NameSteady},
		EnergyPDF:  spectral.Config{Name: spectral.NamePowerLaw, Gamma: 2},
	}, season, cat)
	require.NoError(t, err)

	inj, err := injection.New(season, cat,
		spectral.PowerLaw{Gamma: 2},
		temporal.NewSteady(season.Bounds),
		[2]float64{100, 1e7})
	require.NoError(t, err)

	h, err := minimize.New(minimize.Config{Name: minimize.NameFixedWeights},
		[]minimize.SeasonUnit{{Context: ctx, Injector: inj}})
	require.NoError(t, err)
	return h
}

func saveBackground(t *testing.T, h minimize.Handler, n int) string {
	t.Helper()
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = h.RunTrial(int64(1000+i), 0).TS
	}
	path := filepath.Join(t.TempDir(), "bkg_ts.json")
	require.NoError(t, results.NewTSDistribution(ts).Save(path))
	return path
}

func TestNewRequiresBackgroundPath(t *testing.T) {
	_, err := New(testHandler(t), Config{}, nil)
	assert.Error(t, err)
}

func TestMockUnblindMatchesBackgroundTrial(t *testing.T) {
	h := testHandler(t)
	path := saveBackground(t, h, 40)

	ub, err := New(h, Config{MockUnblind: true, Seed: 77, BackgroundTSPath: path}, nil)
	require.NoError(t, err)

	report, err := ub.Run()
	require.NoError(t, err)
	assert.True(t, report.Mock)
	assert.Equal(t, 40, report.NBackground)

	// The mock fit is bit-for-bit the background trial at the same seed.
	trial := h.RunTrial(77, 0)
	assert.Equal(t, trial, report.Result)

	assert.Greater(t, report.PValue, 0.0)
	assert.LessOrEqual(t, report.PValue, 1.0)
}

func TestRealUnblindIsDeterministic(t *testing.T) {
	h := testHandler(t)
	path := saveBackground(t, h, 30)

	ub, err := New(h, Config{Seed: 5, BackgroundTSPath: path}, nil)
	require.NoError(t, err)

	a, err := ub.Run()
	require.NoError(t, err)
	b, err := ub.Run()
	require.NoError(t, err)

	assert.False(t, a.Mock)
	assert.Equal(t, a.Result, b.Result)
	assert.Equal(t, a.PValue, b.PValue)
}

// stuckHandler simulates an optimizer that never converges.
type stuckHandler struct{}

func (stuckHandler) Name() string { return "stuck" }

func (stuckHandler) RunTrial(seed int64, scale float64) trials.Result {
	return trials.Result{Seed: seed, Scale: scale, TS: 1.2, Converged: false}
}

func (stuckHandler) RunData(seed int64) trials.Result {
	return trials.Result{Seed: seed, TS: 1.2, Converged: false}
}

func TestUnblindRejectsUnconvergedFit(t *testing.T) {
	path := saveBackground(t, testHandler(t), 20)

	ub, err := New(stuckHandler{}, Config{Seed: 3, BackgroundTSPath: path}, nil)
	require.NoError(t, err)

	_, err = ub.Run()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNonConvergence),
		"a p-value must never be quoted from an unconverged maximum")
}

func TestUnblindFailsOnMissingDistribution(t *testing.T) {
	h := testHandler(t)
	ub, err := New(h, Config{Seed: 1, BackgroundTSPath: "/nonexistent/bkg.json"}, nil)
	require.NoError(t, err)

	_, err = ub.Run()
	assert.Error(t, err)
}
