// Package temporal defines the time probability models used for both
// signal hypotheses and background simulation. Every model is a density
// over MJD normalized to 1 on its own support, with the support clipped
// to the bounds of the season it is attached to.
package temporal

import "stacksearch/domain/catalogue"

// Bounds is a season's livetime window in MJD.
type Bounds struct {
	Start float64
	End   float64
}

// Livetime returns the window length in days.
func (b Bounds) Livetime() float64 {
	return b.End - b.Start
}

// Contains reports whether t lies inside the window.
func (b Bounds) Contains(t float64) bool {
	return t >= b.Start && t <= b.End
}

// TimePDF is the contract every temporal model satisfies. Source-relative
// variants consult the catalogue source passed in; source-independent
// variants ignore it (nil is legal there).
type TimePDF interface {
	// Name returns the configured variant name.
	Name() string

	// Range returns the model support [t0, t1] clipped to the season
	// bounds. t1 <= t0 means the support does not overlap the season.
	Range(src *catalogue.Source) (t0, t1 float64)

	// Density returns the probability density at t, zero outside support.
	Density(t float64, src *catalogue.Source) float64

	// Integrate returns the probability mass in [t0, t1] ∩ support.
	Integrate(t0, t1 float64, src *catalogue.Source) float64

	// EffectiveInjectionTime returns the overlap in days between the
	// model support and the season livetime, used to scale expected
	// signal counts.
	EffectiveInjectionTime(src *catalogue.Source) float64
}

func intersect(a0, a1, b0, b1 float64) (float64, float64) {
	if b0 > a0 {
		a0 = b0
	}
	if b1 < a1 {
		a1 = b1
	}
	return a0, a1
}
