package likelihood

import (
	"math"

	"gonum.org/v1/gonum/interp"

	"stacksearch/domain/catalogue"
	"stacksearch/domain/spectral"
	"stacksearch/internal/dataset"
	"stacksearch/internal/errors"
)

// Spectral-index grid on which energy ratios and acceptances are
// precomputed; evaluations interpolate linearly between grid points.
var gammaGrid = []float64{1.0, 1.5, 2.0, 2.5, 3.0, 3.5, 4.0}

const (
	GammaMin = 1.0
	GammaMax = 4.0

	ratioFloor = 1e-6
	ratioCap   = 1e6
)

// energyRatio holds the signal-over-background energy-proxy ratio
// r(logE; γ): one log-energy spline per grid index, linear in gamma
// between them. Built once per (season, catalogue) and shared read-only
// by every trial.
type energyRatio struct {
	lo, hi  float64
	splines []interp.AkimaSpline
}

// Ratio evaluates r(logE; γ) with logE clamped to the fitted range and
// gamma clamped to the grid.
func (er *energyRatio) Ratio(logE, gamma float64) float64 {
	if logE < er.lo {
		logE = er.lo
	}
	if logE > er.hi {
		logE = er.hi
	}
	if gamma <= gammaGrid[0] {
		return clampRatio(math.Exp(er.splines[0].Predict(logE)))
	}
	last := len(gammaGrid) - 1
	if gamma >= gammaGrid[last] {
		return clampRatio(math.Exp(er.splines[last].Predict(logE)))
	}
	step := gammaGrid[1] - gammaGrid[0]
	pos := (gamma - gammaGrid[0]) / step
	i := int(pos)
	frac := pos - float64(i)
	lo := er.splines[i].Predict(logE)
	hi := er.splines[i+1].Predict(logE)
	return clampRatio(math.Exp(lo*(1-frac) + hi*frac))
}

func clampRatio(r float64) float64 {
	if r < ratioFloor || math.IsNaN(r) {
		return ratioFloor
	}
	if r > ratioCap {
		return ratioCap
	}
	return r
}

// newEnergyRatioFromMC histograms the season's simulated reconstructed
// energies weighted by OneWeight·E_true^-γ for each grid gamma, divides
// by the background energy density and splines the log-ratio in logE.
func newEnergyRatioFromMC(season *dataset.Season, bkg *dataset.BackgroundModel, base spectral.EnergyPDF) (*energyRatio, error) {
	lo, hi := bkg.EnergyRange()
	const nBins = 25
	width := (hi - lo) / nBins
	centers := binCenters(lo, width, nBins)

	er := &energyRatio{lo: lo, hi: hi, splines: make([]interp.AkimaSpline, len(gammaGrid))}
	for gi, gamma := range gammaGrid {
		pdf := spectral.WithGamma(base, gamma)
		hist := make([]float64, nBins)
		total := 0.0
		for _, ev := range season.MC {
			w := ev.OneWeight * pdf.Weight(ev.TrueEnergy)
			idx := int((ev.LogEnergy - lo) / width)
			if idx < 0 {
				idx = 0
			}
			if idx >= nBins {
				idx = nBins - 1
			}
			hist[idx] += w
			total += w
		}
		if total <= 0 {
			return nil, errors.DegenerateLikelihood("simulated sample carries no spectral weight; cannot build energy ratio")
		}

		logRatios := make([]float64, nBins)
		for b := 0; b < nBins; b++ {
			sigDensity := hist[b] / (total * width)
			ratio := clampRatio(sigDensity / bkg.EnergyDensity(centers[b]))
			logRatios[b] = math.Log(ratio)
		}
		if err := er.splines[gi].Fit(centers, logRatios); err != nil {
			return nil, errors.Wrap(err, "energy ratio spline fit failed")
		}
	}
	return er, nil
}

// newEnergyRatioFromEffArea builds the signal energy density from the
// effective-area grid instead of simulation: per bin,
// A(sinDec, E)·∫dN/dE over the bin, averaged over the catalogue with the
// stacking weights. Detector energy smearing is not folded in; the
// parametrization is already a reconstruction-level approximation.
func newEnergyRatioFromEffArea(season *dataset.Season, bkg *dataset.BackgroundModel, cat catalogue.Catalogue, base spectral.EnergyPDF) (*energyRatio, error) {
	area := season.EffArea
	lo, hi := bkg.EnergyRange()
	const nBins = 25
	width := (hi - lo) / nBins
	centers := binCenters(lo, width, nBins)
	relWeights := cat.NormalizedWeights()

	er := &energyRatio{lo: lo, hi: hi, splines: make([]interp.AkimaSpline, len(gammaGrid))}
	for gi, gamma := range gammaGrid {
		pdf := spectral.WithGamma(base, gamma)
		hist := make([]float64, nBins)
		total := 0.0
		for b := 0; b < nBins; b++ {
			eLo := math.Pow(10, lo+float64(b)*width)
			eHi := math.Pow(10, lo+float64(b+1)*width)
			flux := pdf.Integral(eLo, eHi)
			for k := range cat {
				sinDec := math.Sin(cat[k].Dec)
				if !season.Covers(sinDec) {
					continue
				}
				hist[b] += relWeights[k] * area.Area(sinDec, centers[b]) * flux
			}
			total += hist[b]
		}
		if total <= 0 {
			return nil, errors.DegenerateLikelihood("effective area carries no signal expectation; cannot build energy ratio")
		}

		logRatios := make([]float64, nBins)
		for b := 0; b < nBins; b++ {
			sigDensity := hist[b] / (total * width)
			ratio := clampRatio(sigDensity / bkg.EnergyDensity(centers[b]))
			logRatios[b] = math.Log(ratio)
		}
		if err := er.splines[gi].Fit(centers, logRatios); err != nil {
			return nil, errors.Wrap(err, "energy ratio spline fit failed")
		}
	}
	return er, nil
}

// acceptanceCurves precomputes each source's relative signal acceptance
// on the gamma grid, used by the matrix variant to float the per-source
// weights with the spectral index.
func acceptanceCurves(season *dataset.Season, cat catalogue.Catalogue, base spectral.EnergyPDF) [][]float64 {
	curves := make([][]float64, len(cat))
	for k := range cat {
		curves[k] = make([]float64, len(gammaGrid))
		sinDec := math.Sin(cat[k].Dec)
		if !season.Covers(sinDec) {
			continue
		}
		for gi, gamma := range gammaGrid {
			pdf := spectral.WithGamma(base, gamma)
			curves[k][gi] = sourceAcceptance(season, sinDec, pdf)
		}
	}
	return curves
}

func sourceAcceptance(season *dataset.Season, sinDec float64, pdf spectral.EnergyPDF) float64 {
	if season.HasMC() {
		const halfWidth = 0.1
		acc := 0.0
		for _, ev := range season.MC {
			if math.Abs(math.Sin(ev.TrueDec)-sinDec) <= halfWidth {
				acc += ev.OneWeight * pdf.Weight(ev.TrueEnergy)
			}
		}
		return acc
	}
	if season.EffArea == nil {
		return 0
	}
	area := season.EffArea
	acc := 0.0
	for b := 0; b < len(area.LogEEdges)-1; b++ {
		eLo := math.Pow(10, area.LogEEdges[b])
		eHi := math.Pow(10, area.LogEEdges[b+1])
		center := 0.5 * (area.LogEEdges[b] + area.LogEEdges[b+1])
		acc += area.Area(sinDec, center) * pdf.Integral(eLo, eHi)
	}
	return acc
}

// interpAcceptance evaluates an acceptance curve at an off-grid gamma.
func interpAcceptance(curve []float64, gamma float64) float64 {
	if gamma <= gammaGrid[0] {
		return curve[0]
	}
	last := len(gammaGrid) - 1
	if gamma >= gammaGrid[last] {
		return curve[last]
	}
	step := gammaGrid[1] - gammaGrid[0]
	pos := (gamma - gammaGrid[0]) / step
	i := int(pos)
	frac := pos - float64(i)
	return curve[i]*(1-frac) + curve[i+1]*frac
}

func binCenters(lo, width float64, n int) []float64 {
	centers := make([]float64, n)
	for i := range centers {
		centers[i] = lo + (float64(i)+0.5)*width
	}
	return centers
}
