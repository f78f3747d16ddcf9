// Package results aggregates trial records into calibrated statistics:
// background TS distributions, sensitivity and discovery-potential
// fluxes, and fit-bias diagnostics.
package results

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"stacksearch/domain/trials"
	"stacksearch/internal/errors"
)

// Sensitivity convention: the flux at which this fraction of injected
// trials exceeds the background median; discovery potential asks for
// half the trials above the 5σ background quantile. The median is the
// reference (not a mean or fixed TS value) so the 90% exceedance reads
// as a Neyman 90% CL upper limit and stays stable under the point mass
// at TS = 0.
const (
	SensitivityFraction = 0.9
	DiscoveryFraction   = 0.5
)

// Handler ingests trial records keyed by injected mean-signal level.
type Handler struct {
	byScale map[float64][]trials.Result
	scales  []float64 // sorted, including 0 when present
}

// NewHandler buckets the records by injection scale.
func NewHandler(records []trials.Result) *Handler {
	byScale := trials.ByScale(records)
	scales := make([]float64, 0, len(byScale))
	for scale := range byScale {
		scales = append(scales, scale)
	}
	sort.Float64s(scales)
	return &Handler{byScale: byScale, scales: scales}
}

// BackgroundDistribution returns the TS distribution of the
// background-only (scale 0) trials.
func (h *Handler) BackgroundDistribution() (*TSDistribution, error) {
	records, ok := h.byScale[0]
	if !ok || len(records) == 0 {
		return nil, errors.ConfigInvalid("no background-only (scale 0) trials available")
	}
	ts := make([]float64, len(records))
	for i, r := range records {
		ts[i] = r.TS
	}
	return NewTSDistribution(ts), nil
}

// CurvePoint is the exceedance fraction at one injection level.
type CurvePoint struct {
	Scale     float64 // injected mean signal
	Fraction  float64 // fraction of trials with TS above threshold
	NTrials   int
	MeanNS    float64 // mean fitted n_s, for bias diagnostics
	MedianTS  float64
	NFailures int // non-converged trials at this level
}

// Curve is a derived, read-only aggregate: the exceedance fractions over
// injection levels against a fixed TS threshold, and the interpolated
// scale where the target fraction is reached.
type Curve struct {
	Threshold float64
	Target    float64
	Points    []CurvePoint
	// Scale is the interpolated injected mean signal meeting the target.
	Scale float64
}

// Sensitivity interpolates the injection scale at which the sensitivity
// fraction of trials exceeds the background median TS.
func (h *Handler) Sensitivity() (*Curve, error) {
	bkg, err := h.BackgroundDistribution()
	if err != nil {
		return nil, err
	}
	return h.CurveFor(bkg.Median(), SensitivityFraction)
}

// DiscoveryPotential interpolates the injection scale at which half the
// trials exceed the 5σ background quantile.
func (h *Handler) DiscoveryPotential() (*Curve, error) {
	bkg, err := h.BackgroundDistribution()
	if err != nil {
		return nil, err
	}
	return h.CurveFor(bkg.ThresholdForPValue(FiveSigmaOneSided), DiscoveryFraction)
}

// CurveFor computes the exceedance curve against an arbitrary TS
// threshold and target fraction. The interpolated scale is monotonically
// non-decreasing in the threshold.
func (h *Handler) CurveFor(threshold, target float64) (*Curve, error) {
	if target <= 0 || target >= 1 {
		return nil, errors.ConfigInvalidf("target fraction must be in (0, 1), got %g", target)
	}

	curve := &Curve{Threshold: threshold, Target: target}
	for _, scale := range h.scales {
		records := h.byScale[scale]
		point := CurvePoint{Scale: scale, NTrials: len(records)}
		ts := make([]float64, len(records))
		above := 0
		sumNS := 0.0
		for i, r := range records {
			ts[i] = r.TS
			if r.TS > threshold {
				above++
			}
			sumNS += r.NS
			if !r.Converged {
				point.NFailures++
			}
		}
		point.Fraction = float64(above) / float64(len(records))
		point.MeanNS = sumNS / float64(len(records))
		if m, err := stats.Median(ts); err == nil {
			point.MedianTS = m
		}
		curve.Points = append(curve.Points, point)
	}

	scale, err := interpolateCrossing(curve.Points, target)
	if err != nil {
		return nil, err
	}
	curve.Scale = scale
	return curve, nil
}

// interpolateCrossing finds the smallest scale where the piecewise-linear
// exceedance curve reaches the target fraction.
func interpolateCrossing(points []CurvePoint, target float64) (float64, error) {
	if len(points) == 0 {
		return 0, errors.ConfigInvalid("no trial records to interpolate over")
	}
	if points[0].Fraction >= target {
		return points[0].Scale, nil
	}
	for i := 1; i < len(points); i++ {
		lo, hi := points[i-1], points[i]
		if hi.Fraction >= target {
			span := hi.Fraction - lo.Fraction
			if span <= 0 {
				return hi.Scale, nil
			}
			frac := (target - lo.Fraction) / span
			return lo.Scale + frac*(hi.Scale-lo.Scale), nil
		}
	}
	return 0, errors.ConfigInvalidf("injection scales do not bracket the target fraction %g (max fraction %g at scale %g); extend the scan", target, points[len(points)-1].Fraction, points[len(points)-1].Scale)
}

// Bias summarizes injected-versus-fitted signal strength per level.
type Bias struct {
	Scale  float64
	MeanNS float64
	// Pull is (mean fitted − injected) / injected; NaN at scale 0.
	Pull float64
}

// FitBias reports the fit-bias diagnostics over all injection levels.
func (h *Handler) FitBias() []Bias {
	out := make([]Bias, 0, len(h.scales))
	for _, scale := range h.scales {
		records := h.byScale[scale]
		sum := 0.0
		for _, r := range records {
			sum += r.NS
		}
		mean := sum / float64(len(records))
		pull := math.NaN()
		if scale > 0 {
			pull = (mean - scale) / scale
		}
		out = append(out, Bias{Scale: scale, MeanNS: mean, Pull: pull})
	}
	return out
}

// Scales returns the injection levels present, sorted ascending.
func (h *Handler) Scales() []float64 {
	out := make([]float64, len(h.scales))
	copy(out, h.scales)
	return out
}
