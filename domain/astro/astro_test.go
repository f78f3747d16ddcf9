package astro

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnitVectorRoundTrip(t *testing.T) {
	cases := [][2]float64{
		{0, 0},
		{1.3, 0.7},
		{5.9, -1.2},
		{math.Pi, math.Pi / 2},
	}
	for _, c := range cases {
		ra, dec := Equatorial(UnitVector(c[0], c[1]))
		assert.InDelta(t, c[0], ra, 1e-9)
		assert.InDelta(t, c[1], dec, 1e-9)
	}
}

func TestAngularDistance(t *testing.T) {
	// Pole to equator is π/2.
	assert.InDelta(t, math.Pi/2, AngularDistance(0, math.Pi/2, 1.0, 0), 1e-12)
	assert.InDelta(t, 0, AngularDistance(2.1, 0.4, 2.1, 0.4), 1e-12)
	// Antipodal points.
	assert.InDelta(t, math.Pi, AngularDistance(0, 0, math.Pi, 0), 1e-9)
}

func TestBandSolidAngle(t *testing.T) {
	assert.InDelta(t, 4*math.Pi, BandSolidAngle(-1, 1), 1e-12)
	assert.InDelta(t, 2*math.Pi, BandSolidAngle(0, 1), 1e-12)
	// Argument order does not matter.
	assert.Equal(t, BandSolidAngle(0.2, 0.5), BandSolidAngle(0.5, 0.2))
}

func TestRotateToSourceMovesTruthOntoSource(t *testing.T) {
	raTrue, decTrue := 1.0, 0.3
	raSrc, decSrc := 4.2, -0.6

	// Rotating the true direction itself lands exactly on the source.
	ra, dec := RotateToSource(raTrue, decTrue, raTrue, decTrue, raSrc, decSrc)
	assert.InDelta(t, raSrc, ra, 1e-9)
	assert.InDelta(t, decSrc, dec, 1e-9)
}

func TestRotateToSourcePreservesOffset(t *testing.T) {
	raTrue, decTrue := 1.0, 0.3
	raReco, decReco := 1.01, 0.305
	raSrc, decSrc := 4.2, -0.6

	offset := AngularDistance(raReco, decReco, raTrue, decTrue)

	ra, dec := RotateToSource(raReco, decReco, raTrue, decTrue, raSrc, decSrc)
	moved := AngularDistance(ra, dec, raSrc, decSrc)
	assert.InDelta(t, offset, moved, 1e-9)
}

func TestRotateToSourceIdentity(t *testing.T) {
	// Source equals truth: nothing moves.
	ra, dec := RotateToSource(2.0, 0.1, 1.5, -0.2, 1.5, -0.2)
	assert.InDelta(t, 2.0, ra, 1e-9)
	assert.InDelta(t, 0.1, dec, 1e-9)
}
