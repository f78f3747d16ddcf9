package spectral

import "stacksearch/internal/errors"

// Recognized energy_pdf_name values.
const (
	NamePowerLaw       = "power_law"
	NamePowerLawCutoff = "power_law_cutoff"
	NameBrokenPowerLaw = "broken_power_law"
)

// Config selects and parametrizes an energy model.
type Config struct {
	Name      string  `yaml:"energy_pdf_name"`
	Gamma     float64 `yaml:"gamma"`
	CutoffGeV float64 `yaml:"cutoff_gev"`
	Gamma2    float64 `yaml:"gamma_2"`
	BreakGeV  float64 `yaml:"break_gev"`
	EMinGeV   float64 `yaml:"e_min_gev"`
	EMaxGeV   float64 `yaml:"e_max_gev"`
}

// EnergyRange returns the configured integration range, falling back to
// the defaults.
func (c Config) EnergyRange() (float64, float64) {
	eMin, eMax := c.EMinGeV, c.EMaxGeV
	if eMin <= 0 {
		eMin = DefaultEMinGeV
	}
	if eMax <= 0 {
		eMax = DefaultEMaxGeV
	}
	return eMin, eMax
}

// New constructs an energy model from configuration. An unrecognized name
// fails with a configuration error naming the key.
func New(cfg Config) (EnergyPDF, error) {
	switch cfg.Name {
	case NamePowerLaw:
		if cfg.Gamma <= 0 {
			return nil, errors.ConfigInvalidf("energy_pdf_name=power_law: gamma must be > 0, got %g", cfg.Gamma)
		}
		return PowerLaw{Gamma: cfg.Gamma}, nil
	case NamePowerLawCutoff:
		if cfg.Gamma <= 0 {
			return nil, errors.ConfigInvalidf("energy_pdf_name=power_law_cutoff: gamma must be > 0, got %g", cfg.Gamma)
		}
		if cfg.CutoffGeV <= 0 {
			return nil, errors.ConfigInvalid("energy_pdf_name=power_law_cutoff: cutoff_gev is required")
		}
		return PowerLawCutoff{Gamma: cfg.Gamma, CutoffGeV: cfg.CutoffGeV}, nil
	case NameBrokenPowerLaw:
		if cfg.Gamma <= 0 || cfg.Gamma2 <= 0 {
			return nil, errors.ConfigInvalid("energy_pdf_name=broken_power_law: gamma and gamma_2 are required")
		}
		if cfg.BreakGeV <= 0 {
			return nil, errors.ConfigInvalid("energy_pdf_name=broken_power_law: break_gev is required")
		}
		return BrokenPowerLaw{Gamma1: cfg.Gamma, Gamma2: cfg.Gamma2, BreakGeV: cfg.BreakGeV}, nil
	case "":
		return nil, errors.ConfigInvalid("energy_pdf_name is required")
	default:
		return nil, errors.ConfigInvalidf("unrecognized energy_pdf_name %q", cfg.Name)
	}
}

// WithGamma returns a copy of the model re-parametrized at the given
// spectral index. Used by the likelihood when gamma floats in the fit.
func WithGamma(model EnergyPDF, gamma float64) EnergyPDF {
	switch m := model.(type) {
	case PowerLaw:
		return PowerLaw{Gamma: gamma}
	case PowerLawCutoff:
		return PowerLawCutoff{Gamma: gamma, CutoffGeV: m.CutoffGeV}
	case BrokenPowerLaw:
		return BrokenPowerLaw{Gamma1: gamma, Gamma2: m.Gamma2, BreakGeV: m.BreakGeV}
	default:
		return model
	}
}
