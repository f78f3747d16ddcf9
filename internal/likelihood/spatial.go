package likelihood

import (
	"math"

	"stacksearch/domain/astro"
	"stacksearch/domain/catalogue"
	"stacksearch/domain/events"
)

// spatialCutSigma bounds how far from a source an event can still pick
// up signal probability. Beyond it the gaussian kernel is negligible and
// the per-event source list stays sparse for large catalogues.
const spatialCutSigma = 5.0

// signalSpatial is the gaussian spatial kernel: the angular separation
// weighted by the event's reported reconstruction error, broadened by the
// source extension. Returns a density per steradian.
func signalSpatial(ev *events.Event, src *catalogue.Source) float64 {
	sigma2 := ev.AngErr*ev.AngErr + src.Extension*src.Extension
	if sigma2 <= 0 {
		return 0
	}
	psi := astro.AngularDistance(ev.RA, ev.Dec, src.RA, src.Dec)
	if psi*psi > spatialCutSigma*spatialCutSigma*sigma2 {
		return 0
	}
	return math.Exp(-psi*psi/(2*sigma2)) / (2 * math.Pi * sigma2)
}
