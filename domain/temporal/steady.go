package temporal

import "stacksearch/domain/catalogue"

// Steady is uniform over the full season livetime. It is the default
// background hypothesis and the time-integrated signal hypothesis.
type Steady struct {
	bounds Bounds
}

// NewSteady builds a steady PDF over the season bounds.
func NewSteady(bounds Bounds) *Steady {
	return &Steady{bounds: bounds}
}

func (s *Steady) Name() string { return NameSteady }

func (s *Steady) Range(_ *catalogue.Source) (float64, float64) {
	return s.bounds.Start, s.bounds.End
}

func (s *Steady) Density(t float64, _ *catalogue.Source) float64 {
	if !s.bounds.Contains(t) {
		return 0
	}
	return 1 / s.bounds.Livetime()
}

func (s *Steady) Integrate(t0, t1 float64, _ *catalogue.Source) float64 {
	lo, hi := intersect(t0, t1, s.bounds.Start, s.bounds.End)
	if hi <= lo {
		return 0
	}
	return (hi - lo) / s.bounds.Livetime()
}

func (s *Steady) EffectiveInjectionTime(_ *catalogue.Source) float64 {
	return s.bounds.Livetime()
}
