package catalogue

import (
	"math"

	"stacksearch/internal/errors"
)

// Source is one candidate point source. Angles are radians, times MJD.
// Weight is the relative stacking weight; zero is allowed, negative is not.
type Source struct {
	Name      string
	RA        float64
	Dec       float64
	Weight    float64
	Redshift  float64
	Extension float64 // angular extent, radians; 0 for a point source
	RefTime   float64 // reference MJD (e.g. discovery time); 0 if unset
	StartTime float64 // per-source window start MJD; 0 if unset
	EndTime   float64 // per-source window end MJD; 0 if unset
}

// Catalogue is an ordered, immutable-once-loaded set of sources.
type Catalogue []Source

// Validate enforces the catalogue invariants: at least one source,
// non-negative weights, and at least one strictly positive weight.
func (c Catalogue) Validate() error {
	if len(c) == 0 {
		return errors.ConfigInvalid("catalogue is empty")
	}
	total := 0.0
	for i, src := range c {
		if src.Weight < 0 {
			return errors.ConfigInvalidf("catalogue source %d (%s): negative weight %g", i, src.Name, src.Weight)
		}
		if math.IsNaN(src.Weight) {
			return errors.ConfigInvalidf("catalogue source %d (%s): NaN weight", i, src.Name)
		}
		total += src.Weight
	}
	if total <= 0 {
		return errors.ConfigInvalid("catalogue has zero total weight")
	}
	return nil
}

// TotalWeight sums the relative weights.
func (c Catalogue) TotalWeight() float64 {
	total := 0.0
	for _, src := range c {
		total += src.Weight
	}
	return total
}

// NormalizedWeights returns the weight column rescaled to sum to 1.
func (c Catalogue) NormalizedWeights() []float64 {
	total := c.TotalWeight()
	out := make([]float64, len(c))
	if total <= 0 {
		return out
	}
	for i, src := range c {
		out[i] = src.Weight / total
	}
	return out
}
