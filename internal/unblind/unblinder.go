// Package unblind fits the real (or a mock) dataset once and compares
// the observed test statistic against a pre-registered background
// distribution.
package unblind

import (
	"stacksearch/domain/trials"
	"stacksearch/internal/errors"
	"stacksearch/internal/logging"
	"stacksearch/internal/minimize"
	"stacksearch/internal/results"
)

// Config selects the unblinding mode.
type Config struct {
	// MockUnblind replaces the real data with one seeded scramble, so
	// the whole pipeline can be rehearsed without looking at the data.
	MockUnblind bool `yaml:"mock_unblind"`
	// Seed drives the mock scramble (and optimizer restarts).
	Seed int64 `yaml:"seed"`
	// BackgroundTSPath points at the saved background-only distribution.
	BackgroundTSPath string `yaml:"background_ts_path"`
}

// Report is the outcome of a single unblinding.
type Report struct {
	Result trials.Result `json:"result"`
	PValue float64       `json:"p_value"`
	Mock   bool          `json:"mock"`
	// NBackground is the size of the reference distribution, which
	// floors the resolvable p-value at 1/N.
	NBackground int `json:"n_background"`
}

// Unblinder runs exactly one fit against the chosen dataset.
type Unblinder struct {
	handler minimize.Handler
	cfg     Config
	log     *logging.Logger
}

func New(handler minimize.Handler, cfg Config, log *logging.Logger) (*Unblinder, error) {
	if cfg.BackgroundTSPath == "" {
		return nil, errors.ConfigInvalid("background_ts_path is required for unblinding")
	}
	if log == nil {
		log = logging.DefaultLogger
	}
	return &Unblinder{handler: handler, cfg: cfg, log: log}, nil
}

// Run performs the unblinding. A mock run is, by construction, the same
// computation as a background-only trial with the same seed.
func (u *Unblinder) Run() (*Report, error) {
	bkg, err := results.LoadTSDistribution(u.cfg.BackgroundTSPath)
	if err != nil {
		return nil, err
	}
	if bkg.N() == 0 {
		return nil, errors.ConfigInvalid("background TS distribution is empty")
	}

	var result trials.Result
	if u.cfg.MockUnblind {
		u.log.Info("mock unblinding with seed %d", u.cfg.Seed)
		result = u.handler.RunTrial(u.cfg.Seed, 0)
	} else {
		u.log.Info("unblinding real data")
		result = u.handler.RunData(u.cfg.Seed)
	}
	if !result.Converged {
		// A p-value from an unconverged maximum is not reportable.
		return nil, errors.NonConvergence("unblinding fit exhausted its retry budget; rerun before quoting a p-value")
	}

	p := bkg.PValue(result.TS)
	u.log.Info("observed TS %.4f, n_s %.2f, p-value %.4g (from %d background trials)",
		result.TS, result.NS, p, bkg.N())

	return &Report{
		Result:      result,
		PValue:      p,
		Mock:        u.cfg.MockUnblind,
		NBackground: bkg.N(),
	}, nil
}
