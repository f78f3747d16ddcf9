package temporal

import "stacksearch/internal/errors"

// Recognized time_pdf_name values.
const (
	NameSteady       = "steady"
	NameBox          = "box"
	NameFixedRefBox  = "fixed_ref_box"
	NamePerSourceBox = "custom_source_box"
	NameOnOffList    = "on_off_list"
)

// Config selects and parametrizes a temporal model. Unused fields are
// ignored by variants that do not need them.
type Config struct {
	Name            string     `yaml:"time_pdf_name"`
	PreWindow       float64    `yaml:"pre_window"`  // days before the reference time
	PostWindow      float64    `yaml:"post_window"` // days after the reference time
	FixedRefTimeMJD float64    `yaml:"fixed_ref_time_mjd"`
	OnOffIntervals  []Interval `yaml:"on_off_list"`
}

// New constructs a temporal model from configuration for the given season
// bounds. Construction is total over the recognized variants; an
// unrecognized name fails with a configuration error naming the key.
func New(cfg Config, bounds Bounds) (TimePDF, error) {
	switch cfg.Name {
	case NameSteady:
		return NewSteady(bounds), nil
	case NameBox:
		if cfg.PreWindow < 0 || cfg.PostWindow < 0 {
			return nil, errors.ConfigInvalidf("time_pdf_name=box: pre_window/post_window must be >= 0, got %g/%g", cfg.PreWindow, cfg.PostWindow)
		}
		return NewFixedWindowBox(bounds, cfg.PreWindow, cfg.PostWindow), nil
	case NameFixedRefBox:
		if cfg.FixedRefTimeMJD <= 0 {
			return nil, errors.ConfigInvalid("time_pdf_name=fixed_ref_box: fixed_ref_time_mjd is required")
		}
		if cfg.PreWindow < 0 || cfg.PostWindow < 0 {
			return nil, errors.ConfigInvalidf("time_pdf_name=fixed_ref_box: pre_window/post_window must be >= 0, got %g/%g", cfg.PreWindow, cfg.PostWindow)
		}
		return NewFixedReferenceBox(bounds, cfg.FixedRefTimeMJD, cfg.PreWindow, cfg.PostWindow), nil
	case NamePerSourceBox:
		return NewPerSourceBox(bounds), nil
	case NameOnOffList:
		return NewOnOffList(bounds, cfg.OnOffIntervals)
	case "":
		return nil, errors.ConfigInvalid("time_pdf_name is required")
	default:
		return nil, errors.ConfigInvalidf("unrecognized time_pdf_name %q", cfg.Name)
	}
}

// NewBackgroundSim constructs the temporal model used to simulate
// background in time. Background synthesis needs a closed-form window, so
// only the fixed-window variants are legal here; the open-ended or
// data-driven variants (steady, on_off_list, custom_source_box) are
// rejected.
func NewBackgroundSim(cfg Config, bounds Bounds) (TimePDF, error) {
	switch cfg.Name {
	case NameBox:
		if cfg.FixedRefTimeMJD <= 0 {
			return nil, errors.ConfigInvalid("background time_pdf_name=box requires fixed_ref_time_mjd: source-relative windows are not defined for background")
		}
		return NewFixedReferenceBox(bounds, cfg.FixedRefTimeMJD, cfg.PreWindow, cfg.PostWindow), nil
	case NameFixedRefBox:
		return New(cfg, bounds)
	case NameSteady, NameOnOffList, NamePerSourceBox:
		return nil, errors.ConfigInvalidf("time_pdf_name %q has no closed-form start/end and cannot drive background simulation", cfg.Name)
	case "":
		return nil, errors.ConfigInvalid("time_pdf_name is required")
	default:
		return nil, errors.ConfigInvalidf("unrecognized time_pdf_name %q", cfg.Name)
	}
}
