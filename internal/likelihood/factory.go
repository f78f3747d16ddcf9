package likelihood

import (
	"stacksearch/domain/catalogue"
	"stacksearch/domain/events"
	"stacksearch/domain/spectral"
	"stacksearch/domain/temporal"
	"stacksearch/internal/dataset"
	"stacksearch/internal/errors"
)

// Recognized llh_name values.
const (
	NameStandard       = "standard"
	NameStandardMatrix = "standard_matrix"
)

// Config selects the likelihood variant and its component models.
type Config struct {
	Name       string          `yaml:"llh_name"`
	SigTimePDF temporal.Config `yaml:"llh_sig_time_pdf"`
	BkgTimePDF temporal.Config `yaml:"llh_bkg_time_pdf"`
	EnergyPDF  spectral.Config `yaml:"llh_energy_pdf"`
}

// SeasonContext is everything the likelihood precomputes once per
// (season, catalogue, configuration) and shares read-only across all
// trials: the cached background model, the temporal models, the
// gamma-gridded energy ratio, and for the matrix variant the per-source
// acceptance curves.
type SeasonContext struct {
	Season  *dataset.Season
	Cat     catalogue.Catalogue
	Bkg     *dataset.BackgroundModel
	SigTime temporal.TimePDF
	BkgTime temporal.TimePDF

	ratio     *energyRatio
	accCurves [][]float64
	catW      []float64
	matrix    bool
	seedGamma float64
}

// NewSeasonContext validates the configuration and performs the one-off
// precomputation for a season.
func NewSeasonContext(cfg Config, season *dataset.Season, cat catalogue.Catalogue) (*SeasonContext, error) {
	switch cfg.Name {
	case NameStandard, NameStandardMatrix:
	case "":
		return nil, errors.ConfigInvalid("llh_name is required")
	default:
		return nil, errors.ConfigInvalidf("unrecognized llh_name %q", cfg.Name)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	bkg, err := season.Background()
	if err != nil {
		return nil, err
	}

	sigTime, err := temporal.New(cfg.SigTimePDF, season.Bounds)
	if err != nil {
		return nil, errors.Wrap(err, "llh_sig_time_pdf")
	}
	bkgTimeCfg := cfg.BkgTimePDF
	if bkgTimeCfg.Name == "" {
		bkgTimeCfg.Name = temporal.NameSteady
	}
	bkgTime, err := temporal.New(bkgTimeCfg, season.Bounds)
	if err != nil {
		return nil, errors.Wrap(err, "llh_bkg_time_pdf")
	}

	basePDF, err := spectral.New(cfg.EnergyPDF)
	if err != nil {
		return nil, errors.Wrap(err, "llh_energy_pdf")
	}

	var ratio *energyRatio
	if season.HasMC() {
		ratio, err = newEnergyRatioFromMC(season, bkg, basePDF)
	} else if season.EffArea != nil {
		ratio, err = newEnergyRatioFromEffArea(season, bkg, cat, basePDF)
	} else {
		return nil, errors.ConfigInvalidf("season %s has neither simulation nor an effective-area parametrization; cannot build an energy likelihood", season.Name)
	}
	if err != nil {
		return nil, err
	}

	ctx := &SeasonContext{
		Season:    season,
		Cat:       cat,
		Bkg:       bkg,
		SigTime:   sigTime,
		BkgTime:   bkgTime,
		ratio:     ratio,
		catW:      cat.NormalizedWeights(),
		matrix:    cfg.Name == NameStandardMatrix,
		seedGamma: cfg.EnergyPDF.Gamma,
	}
	if ctx.matrix {
		ctx.accCurves = acceptanceCurves(season, cat, basePDF)
	}
	return ctx, nil
}

// SeedGamma is the configured spectral index, used as the fit's starting
// point and as the fixed index for n_s-only handlers.
func (c *SeasonContext) SeedGamma() float64 {
	return c.seedGamma
}

// WithSigTime returns a shallow copy of the context with the signal
// temporal model replaced. The cached background model, energy ratio and
// acceptance curves are shared; flare searches use this to scan candidate
// windows cheaply.
func (c *SeasonContext) WithSigTime(t temporal.TimePDF) *SeasonContext {
	copied := *c
	copied.SigTime = t
	return &copied
}

// NewEvaluator assembles Λ for one pseudo-dataset. An empty dataset
// yields the degenerate evaluator with Λ ≡ 0.
func (c *SeasonContext) NewEvaluator(sample events.Sample) Evaluator {
	if len(sample) == 0 {
		return emptyEvaluator{}
	}

	terms, logE := c.buildTerms(sample)
	if c.matrix {
		return &matrixEvaluator{
			n:        len(sample),
			terms:    terms,
			logE:     logE,
			ratio:    c.ratio,
			catW:     c.catW,
			accCurve: c.accCurves,
		}
	}

	static := make([]float64, len(sample))
	for i, eventTerms := range terms {
		sum := 0.0
		for _, t := range eventTerms {
			sum += c.catW[t.source] * t.static
		}
		static[i] = sum
	}
	return &standardEvaluator{
		n:      len(sample),
		static: static,
		logE:   logE,
		ratio:  c.ratio,
	}
}
