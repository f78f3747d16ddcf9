package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"

	"stacksearch/domain/events"
	"stacksearch/domain/temporal"
	"stacksearch/internal/errors"
)

// densityFloor keeps the fitted splines strictly positive so likelihood
// ratios stay finite.
const densityFloor = 1e-12

// BackgroundModel is the smooth background density fitted once from a
// season's experimental table: a sin-declination spline and an
// energy-proxy spline, both normalized to unit mass over their fitted
// range. Shared read-only across all trials of the season.
type BackgroundModel struct {
	spatial  spline
	energy   spline
	livetime float64
	nEvents  int
}

type spline struct {
	lo, hi float64
	interp interp.AkimaSpline
}

func (sp *spline) eval(x float64) float64 {
	if x < sp.lo {
		x = sp.lo
	}
	if x > sp.hi {
		x = sp.hi
	}
	v := sp.interp.Predict(x)
	if v < densityFloor || math.IsNaN(v) {
		return densityFloor
	}
	return v
}

// fitBackgroundModel histograms the experimental sin-declination and
// energy-proxy columns and fits smoothing splines through the bin
// densities.
func fitBackgroundModel(exp events.Sample, bounds temporal.Bounds) (*BackgroundModel, error) {
	if len(exp) < 16 {
		return nil, errors.DegenerateLikelihood("too few experimental events to fit a background density")
	}

	spatial, err := fitDensitySpline(exp.SinDecs())
	if err != nil {
		return nil, errors.Wrap(err, "background spatial density fit failed")
	}
	energy, err := fitDensitySpline(exp.LogEnergies())
	if err != nil {
		return nil, errors.Wrap(err, "background energy density fit failed")
	}

	return &BackgroundModel{
		spatial:  spatial,
		energy:   energy,
		livetime: bounds.Livetime(),
		nEvents:  len(exp),
	}, nil
}

func fitDensitySpline(values []float64) (spline, error) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if hi-lo < 1e-9 {
		return spline{}, errors.DegenerateLikelihood("background column has no spread")
	}

	nBins := len(values) / 50
	if nBins < 8 {
		nBins = 8
	}
	if nBins > 30 {
		nBins = 30
	}

	width := (hi - lo) / float64(nBins)
	counts := make([]float64, nBins)
	for _, v := range sorted {
		idx := int((v - lo) / width)
		if idx >= nBins {
			idx = nBins - 1
		}
		counts[idx]++
	}

	// Knots at bin centers plus pinned endpoints, densities normalized
	// to unit mass over [lo, hi].
	xs := make([]float64, 0, nBins+2)
	ys := make([]float64, 0, nBins+2)
	norm := float64(len(values)) * width
	xs = append(xs, lo)
	ys = append(ys, math.Max(counts[0]/norm, densityFloor))
	for i := 0; i < nBins; i++ {
		xs = append(xs, lo+(float64(i)+0.5)*width)
		ys = append(ys, math.Max(counts[i]/norm, densityFloor))
	}
	xs = append(xs, hi)
	ys = append(ys, math.Max(counts[nBins-1]/norm, densityFloor))

	var ak interp.AkimaSpline
	if err := ak.Fit(xs, ys); err != nil {
		return spline{}, err
	}
	return spline{lo: lo, hi: hi, interp: ak}, nil
}

// SpatialDensity returns the background density in sin(declination),
// normalized over the fitted range.
func (b *BackgroundModel) SpatialDensity(sinDec float64) float64 {
	return b.spatial.eval(sinDec)
}

// EnergyDensity returns the background density in log10(energy proxy),
// normalized over the fitted range.
func (b *BackgroundModel) EnergyDensity(logE float64) float64 {
	return b.energy.eval(logE)
}

// Density returns the combined spatial-energy background density for an
// event: the sin-declination density spread uniformly in right ascension
// times the energy-proxy density.
func (b *BackgroundModel) Density(sinDec, logE float64) float64 {
	return b.SpatialDensity(sinDec) / (2 * math.Pi) * b.EnergyDensity(logE)
}

// EnergyRange returns the fitted log-energy range.
func (b *BackgroundModel) EnergyRange() (float64, float64) {
	return b.energy.lo, b.energy.hi
}

// SinDecRange returns the fitted sin-declination range.
func (b *BackgroundModel) SinDecRange() (float64, float64) {
	return b.spatial.lo, b.spatial.hi
}

// Rate returns the all-sky background event rate per day.
func (b *BackgroundModel) Rate() float64 {
	return float64(b.nEvents) / b.livetime
}
