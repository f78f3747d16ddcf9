package spectral

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPowerLawIntegralAnalytic(t *testing.T) {
	p := PowerLaw{Gamma: 2}

	// ∫ E^-2 dE over [100, 1e7] = 1/100 - 1e-7.
	want := 1.0/100 - 1e-7
	assert.InDelta(t, want, p.Integral(100, 1e7), want*1e-12)

	// ∫ E·E^-2 dE = log(eMax/eMin), exercising the log special case.
	assert.InDelta(t, math.Log(1e7/100), p.FluenceIntegral(100, 1e7), 1e-9)
}

func TestPowerLawCutoffSuppressesHighEnergies(t *testing.T) {
	plain := PowerLaw{Gamma: 2}
	cut := PowerLawCutoff{Gamma: 2, CutoffGeV: 1e4}

	assert.Less(t, cut.Integral(100, 1e7), plain.Integral(100, 1e7))
	// Far below the cutoff the two agree.
	assert.InDelta(t, plain.Weight(100), cut.Weight(100), plain.Weight(100)*0.02)
	// Far above, the cutoff wins by orders of magnitude.
	assert.Less(t, cut.Weight(1e6), plain.Weight(1e6)*1e-10)
}

func TestPowerLawCutoffNumericIntegralMatchesPlainLimit(t *testing.T) {
	// A cutoff far above the range reduces to the plain power law.
	plain := PowerLaw{Gamma: 2.5}
	cut := PowerLawCutoff{Gamma: 2.5, CutoffGeV: 1e12}

	want := plain.Integral(100, 1e6)
	assert.InDelta(t, want, cut.Integral(100, 1e6), want*1e-4)
}

func TestBrokenPowerLawContinuity(t *testing.T) {
	p := BrokenPowerLaw{Gamma1: 2, Gamma2: 3, BreakGeV: 1e4}

	below := p.Weight(1e4 * (1 - 1e-9))
	above := p.Weight(1e4 * (1 + 1e-9))
	assert.InDelta(t, below, above, below*1e-6)

	// Split integral adds up across the break.
	total := p.Integral(100, 1e6)
	parts := p.Integral(100, 1e4) + p.Integral(1e4, 1e6)
	assert.InDelta(t, total, parts, total*1e-12)
}

func TestFactoryValidation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Name: "log_parabola"})
	assert.Error(t, err)

	_, err = New(Config{Name: NamePowerLaw})
	assert.Error(t, err, "gamma is required")

	_, err = New(Config{Name: NamePowerLawCutoff, Gamma: 2})
	assert.Error(t, err, "cutoff_gev is required")

	pdf, err := New(Config{Name: NamePowerLaw, Gamma: 2})
	require.NoError(t, err)
	assert.Equal(t, NamePowerLaw, pdf.Name())
}

func TestWithGammaReparametrizes(t *testing.T) {
	base, err := New(Config{Name: NamePowerLawCutoff, Gamma: 2, CutoffGeV: 1e5})
	require.NoError(t, err)

	steep := WithGamma(base, 3)
	cut, ok := steep.(PowerLawCutoff)
	require.True(t, ok)
	assert.Equal(t, 3.0, cut.Gamma)
	assert.Equal(t, 1e5, cut.CutoffGeV)
}

func TestEnergyRangeDefaults(t *testing.T) {
	eMin, eMax := Config{}.EnergyRange()
	assert.Equal(t, float64(DefaultEMinGeV), eMin)
	assert.Equal(t, float64(DefaultEMaxGeV), eMax)

	eMin, eMax = Config{EMinGeV: 10, EMaxGeV: 1e5}.EnergyRange()
	assert.Equal(t, 10.0, eMin)
	assert.Equal(t, 1e5, eMax)
}
