package dataset

import (
	"stacksearch/internal/errors"
)

// EffectiveArea is a declination- and energy-binned detector response
// parametrization, used to synthesize signal events for seasons without a
// full simulated event table. Areas are in cm², energies binned in
// log10(E/GeV).
type EffectiveArea struct {
	// SinDecEdges are the nDec+1 bin edges in sin(declination),
	// strictly increasing.
	SinDecEdges []float64
	// LogEEdges are the nE+1 bin edges in log10(true energy / GeV).
	LogEEdges []float64
	// AreaCM2 is the effective area per (dec, energy) bin: [nDec][nE].
	AreaCM2 [][]float64
	// AngErrDeg is the median angular reconstruction error per energy
	// bin, degrees.
	AngErrDeg []float64
	// LogESmear is the gaussian width of the reconstructed-vs-true
	// log-energy response.
	LogESmear float64
}

// Validate checks the grid shape.
func (ea *EffectiveArea) Validate() error {
	nDec := len(ea.SinDecEdges) - 1
	nE := len(ea.LogEEdges) - 1
	if nDec < 1 || nE < 1 {
		return errors.ConfigInvalid("effective area: need at least one declination and one energy bin")
	}
	if len(ea.AreaCM2) != nDec {
		return errors.ConfigInvalidf("effective area: %d declination rows, want %d", len(ea.AreaCM2), nDec)
	}
	for i, row := range ea.AreaCM2 {
		if len(row) != nE {
			return errors.ConfigInvalidf("effective area: declination row %d has %d energy bins, want %d", i, len(row), nE)
		}
	}
	if len(ea.AngErrDeg) != nE {
		return errors.ConfigInvalidf("effective area: %d angular-error bins, want %d", len(ea.AngErrDeg), nE)
	}
	return nil
}

// Coverage returns the sin-declination range the parametrization spans.
func (ea *EffectiveArea) Coverage() (float64, float64) {
	return ea.SinDecEdges[0], ea.SinDecEdges[len(ea.SinDecEdges)-1]
}

// Area returns the effective area at a sky position and true energy,
// zero outside the grid.
func (ea *EffectiveArea) Area(sinDec, logE float64) float64 {
	di := binIndex(ea.SinDecEdges, sinDec)
	ei := binIndex(ea.LogEEdges, logE)
	if di < 0 || ei < 0 {
		return 0
	}
	return ea.AreaCM2[di][ei]
}

// AngErrAt returns the parametrized angular error in degrees for a true
// log-energy, clamped to the grid.
func (ea *EffectiveArea) AngErrAt(logE float64) float64 {
	ei := binIndex(ea.LogEEdges, logE)
	if ei < 0 {
		if logE < ea.LogEEdges[0] {
			ei = 0
		} else {
			ei = len(ea.AngErrDeg) - 1
		}
	}
	return ea.AngErrDeg[ei]
}

func binIndex(edges []float64, v float64) int {
	if v < edges[0] || v > edges[len(edges)-1] {
		return -1
	}
	for i := 0; i < len(edges)-1; i++ {
		if v <= edges[i+1] {
			return i
		}
	}
	return -1
}
