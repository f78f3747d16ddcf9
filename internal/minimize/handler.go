// Package minimize orchestrates trials: assemble pseudo-data, maximize
// the likelihood, record one immutable result per trial.
package minimize

import (
	"stacksearch/domain/temporal"
	"stacksearch/domain/trials"
	"stacksearch/internal/errors"
	"stacksearch/internal/injection"
	"stacksearch/internal/likelihood"
)

// Recognized mh_name values.
const (
	NameFixedWeights   = "fixed_weights"
	NameLargeCatalogue = "large_catalogue"
	NameFlareSearch    = "flare_search"
)

// Fit bounds for the spectral index.
const (
	gammaLower = likelihood.GammaMin
	gammaUpper = likelihood.GammaMax
)

// Handler runs exactly one trial per call: INIT → ASSEMBLE_DATA →
// OPTIMIZE → RECORD, with the per-trial seed driving both scrambling and
// injection. Handlers are stateless across trials; many trials may run
// them concurrently.
type Handler interface {
	Name() string

	// RunTrial assembles one pseudo-experiment at the given injected
	// mean-signal scale and returns the trial record. Numerical issues
	// are isolated to the trial (flagged, never fatal).
	RunTrial(seed int64, scale float64) trials.Result

	// RunData fits the real, unscrambled data with no injection. The
	// seed only drives optimizer restarts.
	RunData(seed int64) trials.Result
}

// Config selects and parametrizes a minimization handler.
type Config struct {
	Name string `yaml:"mh_name"`
	// FixedGamma pins the spectral index for handlers that do not fit
	// it (large_catalogue, flare_search). Zero means "use the
	// likelihood's configured gamma".
	FixedGamma float64 `yaml:"fixed_gamma"`
}

// SeasonUnit pairs a season's likelihood context with its injector.
type SeasonUnit struct {
	Context  *likelihood.SeasonContext
	Injector injection.Injector
	// BkgSim, when set, resimulates scrambled arrival times from its
	// window instead of permuting the observed time column. Built through
	// the background-sim temporal factory, which admits fixed windows
	// only.
	BkgSim temporal.TimePDF
}

// New constructs a handler over the per-season units. An unrecognized
// name fails with a configuration error naming the key.
func New(cfg Config, units []SeasonUnit) (Handler, error) {
	if len(units) == 0 {
		return nil, errors.ConfigInvalid("no seasons selected")
	}
	base := newTrialCore(units)

	switch cfg.Name {
	case NameFixedWeights:
		return &fixedWeightsHandler{core: base}, nil
	case NameLargeCatalogue:
		return &largeCatalogueHandler{core: base, fixedGamma: cfg.FixedGamma}, nil
	case NameFlareSearch:
		return &flareSearchHandler{core: base, fixedGamma: cfg.FixedGamma}, nil
	case "":
		return nil, errors.ConfigInvalid("mh_name is required")
	default:
		return nil, errors.ConfigInvalidf("unrecognized mh_name %q", cfg.Name)
	}
}
