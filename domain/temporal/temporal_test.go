package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stacksearch/domain/catalogue"
)

var testBounds = Bounds{Start: 56000, End: 56365}

func TestSteadyNormalization(t *testing.T) {
	pdf := NewSteady(testBounds)

	t0, t1 := pdf.Range(nil)
	assert.Equal(t, testBounds.Start, t0)
	assert.Equal(t, testBounds.End, t1)

	assert.InDelta(t, 1.0, pdf.Integrate(t0, t1, nil), 1e-12)
	assert.InDelta(t, 1/testBounds.Livetime(), pdf.Density(56100, nil), 1e-12)
	assert.Equal(t, 0.0, pdf.Density(55000, nil))
	assert.Equal(t, testBounds.Livetime(), pdf.EffectiveInjectionTime(nil))
}

func TestBoxAroundSourceReference(t *testing.T) {
	src := &catalogue.Source{RefTime: 56100}
	pdf := NewFixedWindowBox(testBounds, 10, 30)

	t0, t1 := pdf.Range(src)
	assert.Equal(t, 56090.0, t0)
	assert.Equal(t, 56130.0, t1)
	assert.InDelta(t, 1.0, pdf.Integrate(t0, t1, src), 1e-12)
	assert.InDelta(t, 0.5, pdf.Integrate(56090, 56110, src), 1e-12)
	assert.Equal(t, 40.0, pdf.EffectiveInjectionTime(src))
}

func TestBoxClippedToSeason(t *testing.T) {
	// Window starts before the season; the support and the density
	// renormalize to the overlap.
	src := &catalogue.Source{RefTime: 56005}
	pdf := NewFixedWindowBox(testBounds, 20, 20)

	t0, t1 := pdf.Range(src)
	assert.Equal(t, testBounds.Start, t0)
	assert.Equal(t, 56025.0, t1)
	assert.InDelta(t, 1.0, pdf.Integrate(testBounds.Start, testBounds.End, src), 1e-12)
	assert.Equal(t, 25.0, pdf.EffectiveInjectionTime(src))
}

func TestBoxOutsideSeasonHasZeroSupport(t *testing.T) {
	src := &catalogue.Source{RefTime: 55000}
	pdf := NewFixedWindowBox(testBounds, 10, 10)

	assert.Equal(t, 0.0, pdf.EffectiveInjectionTime(src))
	assert.Equal(t, 0.0, pdf.Integrate(testBounds.Start, testBounds.End, src))
	assert.Equal(t, 0.0, pdf.Density(56100, src))
}

func TestPerSourceBoxUsesCatalogueWindow(t *testing.T) {
	src := &catalogue.Source{StartTime: 56050, EndTime: 56150}
	pdf := NewPerSourceBox(testBounds)

	t0, t1 := pdf.Range(src)
	assert.Equal(t, 56050.0, t0)
	assert.Equal(t, 56150.0, t1)
	assert.InDelta(t, 1.0, pdf.Integrate(t0, t1, src), 1e-12)
}

func TestOnOffListNormalization(t *testing.T) {
	pdf, err := NewOnOffList(testBounds, []Interval{
		{Start: 56010, End: 56020, Weight: 1},
		{Start: 56100, End: 56120, Weight: 2},
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, pdf.Integrate(testBounds.Start, testBounds.End, nil), 1e-9)
	// Gap between the intervals carries no mass.
	assert.Equal(t, 0.0, pdf.Density(56050, nil))
	// The weighted interval is twice as dense.
	assert.InDelta(t, 2.0, pdf.Density(56110, nil)/pdf.Density(56015, nil), 1e-9)
}

func TestOnOffListRejectsOverlap(t *testing.T) {
	_, err := NewOnOffList(testBounds, []Interval{
		{Start: 56010, End: 56030, Weight: 1},
		{Start: 56020, End: 56040, Weight: 1},
	})
	assert.Error(t, err)
}

func TestFactoryRejectsUnknownName(t *testing.T) {
	_, err := New(Config{Name: "sinusoid"}, testBounds)
	assert.Error(t, err)

	_, err = New(Config{}, testBounds)
	assert.Error(t, err)
}

func TestBackgroundSimRejectsOpenEndedVariants(t *testing.T) {
	for _, name := range []string{NameSteady, NameOnOffList, NamePerSourceBox} {
		_, err := NewBackgroundSim(Config{Name: name}, testBounds)
		assert.Error(t, err, "variant %s must not drive background simulation", name)
	}

	// A source-relative box has no background meaning without a fixed
	// reference.
	_, err := NewBackgroundSim(Config{Name: NameBox, PreWindow: 5, PostWindow: 5}, testBounds)
	assert.Error(t, err)

	pdf, err := NewBackgroundSim(Config{Name: NameBox, FixedRefTimeMJD: 56100, PreWindow: 5, PostWindow: 5}, testBounds)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pdf.Integrate(testBounds.Start, testBounds.End, nil), 1e-12)

	_, err = NewBackgroundSim(Config{Name: NameFixedRefBox, FixedRefTimeMJD: 56100, PreWindow: 5, PostWindow: 5}, testBounds)
	require.NoError(t, err)
}
