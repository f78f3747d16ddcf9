package temporal

import (
	"sort"

	"stacksearch/domain/catalogue"
	"stacksearch/internal/errors"
)

// Interval is one active period of an on/off list with a relative weight.
type Interval struct {
	Start  float64 `yaml:"start_mjd"`
	End    float64 `yaml:"end_mjd"`
	Weight float64 `yaml:"weight"`
}

// OnOffList is a piecewise-uniform density over a set of disjoint active
// intervals. The density in interval i is w_i / Σ_j w_j·len_j, so the
// total mass over the union is 1.
type OnOffList struct {
	bounds    Bounds
	intervals []Interval // clipped to bounds, sorted by start
	norm      float64    // Σ w_i · len_i over clipped intervals
}

// NewOnOffList validates, clips and normalizes the interval list.
func NewOnOffList(bounds Bounds, intervals []Interval) (*OnOffList, error) {
	if len(intervals) == 0 {
		return nil, errors.ConfigInvalid("on_off_list: no intervals supplied")
	}

	clipped := make([]Interval, 0, len(intervals))
	for i, iv := range intervals {
		if iv.End <= iv.Start {
			return nil, errors.ConfigInvalidf("on_off_list: interval %d has end <= start", i)
		}
		if iv.Weight <= 0 {
			return nil, errors.ConfigInvalidf("on_off_list: interval %d has non-positive weight", i)
		}
		lo, hi := intersect(iv.Start, iv.End, bounds.Start, bounds.End)
		if hi <= lo {
			continue
		}
		clipped = append(clipped, Interval{Start: lo, End: hi, Weight: iv.Weight})
	}
	if len(clipped) == 0 {
		return nil, errors.ConfigInvalid("on_off_list: no interval overlaps the season livetime")
	}
	sort.Slice(clipped, func(i, j int) bool { return clipped[i].Start < clipped[j].Start })
	for i := 1; i < len(clipped); i++ {
		if clipped[i].Start < clipped[i-1].End {
			return nil, errors.ConfigInvalidf("on_off_list: intervals %d and %d overlap", i-1, i)
		}
	}

	norm := 0.0
	for _, iv := range clipped {
		norm += iv.Weight * (iv.End - iv.Start)
	}
	return &OnOffList{bounds: bounds, intervals: clipped, norm: norm}, nil
}

func (o *OnOffList) Name() string { return NameOnOffList }

func (o *OnOffList) Range(_ *catalogue.Source) (float64, float64) {
	return o.intervals[0].Start, o.intervals[len(o.intervals)-1].End
}

func (o *OnOffList) Density(t float64, _ *catalogue.Source) float64 {
	for _, iv := range o.intervals {
		if t >= iv.Start && t <= iv.End {
			return iv.Weight / o.norm
		}
	}
	return 0
}

func (o *OnOffList) Integrate(t0, t1 float64, _ *catalogue.Source) float64 {
	mass := 0.0
	for _, iv := range o.intervals {
		lo, hi := intersect(t0, t1, iv.Start, iv.End)
		if hi > lo {
			mass += iv.Weight * (hi - lo) / o.norm
		}
	}
	return mass
}

func (o *OnOffList) EffectiveInjectionTime(_ *catalogue.Source) float64 {
	total := 0.0
	for _, iv := range o.intervals {
		total += iv.End - iv.Start
	}
	return total
}
