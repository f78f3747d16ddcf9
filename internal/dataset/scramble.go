package dataset

import (
	"math"
	"math/rand/v2"

	"stacksearch/domain/events"
	"stacksearch/domain/temporal"
	"stacksearch/internal/rng"
)

// Scramble produces a blinded pseudo-background from the experimental
// table: right ascension is redrawn uniformly over [0, 2π) per event, and
// the arrival-time column is independently permuted across events. The
// declination and energy-proxy columns are preserved exactly, so only the
// RA values and the time-to-(direction, energy) association change.
//
// The draw order is fixed (all RA redraws, then the permutation), so a
// given seed reproduces the identical pseudo-background for exact trial
// replay.
func (s *Season) Scramble(seed int64) events.Sample {
	return ScrambleWith(rng.NewStream(seed), s.Exp)
}

// ScrambleWith is Scramble driven by an externally managed RNG stream,
// used when a trial draws scrambling and injection from one seed.
func ScrambleWith(r *rand.Rand, exp events.Sample) events.Sample {
	out := make(events.Sample, len(exp))
	copy(out, exp)

	for i := range out {
		out[i].RA = r.Float64() * 2 * math.Pi
	}

	times := exp.Times()
	perm := r.Perm(len(out))
	for i := range out {
		out[i].Time = times[perm[i]]
	}
	return out
}

// ScrambleSimWith resimulates the arrival times instead of permuting
// them: every event's time is redrawn from the background time model's
// window, on top of the usual uniform RA redraw. The model must be a
// fixed window with uniform density (the only shape the background-sim
// factory admits), so a uniform draw over its range is exact.
func ScrambleSimWith(r *rand.Rand, exp events.Sample, timePDF temporal.TimePDF) events.Sample {
	out := make(events.Sample, len(exp))
	copy(out, exp)

	for i := range out {
		out[i].RA = r.Float64() * 2 * math.Pi
	}

	t0, t1 := timePDF.Range(nil)
	for i := range out {
		out[i].Time = t0 + r.Float64()*(t1-t0)
	}
	return out
}
