package events

// Event is one reconstructed event. Angles are radians, times are MJD,
// LogEnergy is log10 of the reconstructed energy proxy in GeV, and
// AngErr is the per-event angular reconstruction error in radians.
type Event struct {
	RA        float64
	Dec       float64
	SinDec    float64
	AngErr    float64
	LogEnergy float64
	Time      float64
}

// SimEvent is a simulated event: the reconstructed schema shared with
// Event plus the generation-level truth needed for re-weighting.
type SimEvent struct {
	Event
	TrueRA     float64
	TrueDec    float64
	TrueEnergy float64 // GeV
	OneWeight  float64 // generation weight, GeV cm^2 sr
}

// Sample is an ordered event table.
type Sample []Event

// Times returns a copy of the arrival-time column.
func (s Sample) Times() []float64 {
	out := make([]float64, len(s))
	for i, ev := range s {
		out[i] = ev.Time
	}
	return out
}

// SinDecs returns a copy of the sin-declination column.
func (s Sample) SinDecs() []float64 {
	out := make([]float64, len(s))
	for i, ev := range s {
		out[i] = ev.SinDec
	}
	return out
}

// LogEnergies returns a copy of the energy-proxy column.
func (s Sample) LogEnergies() []float64 {
	out := make([]float64, len(s))
	for i, ev := range s {
		out[i] = ev.LogEnergy
	}
	return out
}

// Merge concatenates two samples into a new one.
func Merge(a, b Sample) Sample {
	out := make(Sample, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
