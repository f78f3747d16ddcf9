package temporal

import "stacksearch/domain/catalogue"

// boxPDF is the shared shape for all box-window variants: uniform over a
// window clipped to the season bounds. The variants differ only in how
// the window is anchored.
type boxPDF struct {
	name   string
	bounds Bounds
	window func(src *catalogue.Source) (float64, float64)
}

func (b *boxPDF) Name() string { return b.name }

func (b *boxPDF) Range(src *catalogue.Source) (float64, float64) {
	t0, t1 := b.window(src)
	return intersect(t0, t1, b.bounds.Start, b.bounds.End)
}

func (b *boxPDF) Density(t float64, src *catalogue.Source) float64 {
	t0, t1 := b.Range(src)
	if t1 <= t0 || t < t0 || t > t1 {
		return 0
	}
	return 1 / (t1 - t0)
}

func (b *boxPDF) Integrate(t0, t1 float64, src *catalogue.Source) float64 {
	lo, hi := b.Range(src)
	if hi <= lo {
		return 0
	}
	lo2, hi2 := intersect(t0, t1, lo, hi)
	if hi2 <= lo2 {
		return 0
	}
	return (hi2 - lo2) / (hi - lo)
}

func (b *boxPDF) EffectiveInjectionTime(src *catalogue.Source) float64 {
	t0, t1 := b.Range(src)
	if t1 <= t0 {
		return 0
	}
	return t1 - t0
}

// NewFixedWindowBox builds a box spanning [ref - pre, ref + post] days
// around each source's reference time (e.g. its discovery MJD).
func NewFixedWindowBox(bounds Bounds, preWindow, postWindow float64) *boxPDF {
	return &boxPDF{
		name:   NameBox,
		bounds: bounds,
		window: func(src *catalogue.Source) (float64, float64) {
			if src == nil {
				return 0, 0
			}
			return src.RefTime - preWindow, src.RefTime + postWindow
		},
	}
}

// NewFixedReferenceBox builds a box spanning [ref - pre, ref + post] days
// around an externally supplied reference MJD, shared by all sources.
func NewFixedReferenceBox(bounds Bounds, refMJD, preWindow, postWindow float64) *boxPDF {
	return &boxPDF{
		name:   NameFixedRefBox,
		bounds: bounds,
		window: func(_ *catalogue.Source) (float64, float64) {
			return refMJD - preWindow, refMJD + postWindow
		},
	}
}

// NewPerSourceBox builds a box over each source's own [start, end] window
// taken from the catalogue.
func NewPerSourceBox(bounds Bounds) *boxPDF {
	return &boxPDF{
		name:   NamePerSourceBox,
		bounds: bounds,
		window: func(src *catalogue.Source) (float64, float64) {
			if src == nil {
				return 0, 0
			}
			return src.StartTime, src.EndTime
		},
	}
}
