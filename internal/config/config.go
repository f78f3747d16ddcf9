// Package config loads the environment bootstrap and the YAML analysis
// document, validates both fail-fast, and assembles the run-time units.
package config

import (
	"bytes"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stacksearch/domain/spectral"
	"stacksearch/domain/temporal"
	"stacksearch/internal/errors"
	"stacksearch/internal/likelihood"
	"stacksearch/internal/minimize"
	"stacksearch/internal/unblind"
)

// Environment holds infrastructure settings read from the process
// environment (optionally seeded from a .env file).
type Environment struct {
	// DatabaseURL selects the PostgreSQL trial store when set; empty
	// falls back to the JSON-lines file store.
	DatabaseURL string
	// TrialsDir is the file store directory.
	TrialsDir string
	// Workers bounds trial parallelism; 0 means GOMAXPROCS.
	Workers int
}

// LoadEnvironment reads the process environment. A missing .env file is
// not an error; explicit environment variables win.
func LoadEnvironment() (*Environment, error) {
	_ = godotenv.Load()

	env := &Environment{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		TrialsDir:   getEnvOrDefault("TRIALS_DIR", "./trials"),
	}
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.ConfigInvalidf("WORKERS must be an integer, got %q", v)
		}
		env.Workers = n
	}
	return env, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SeasonFiles names the on-disk tables backing one season.
type SeasonFiles struct {
	Name     string  `yaml:"name"`
	StartMJD float64 `yaml:"start_mjd"`
	EndMJD   float64 `yaml:"end_mjd"`
	// Exp is the experimental event table (CSV).
	Exp string `yaml:"exp"`
	// MC is the simulated event table; optional.
	MC string `yaml:"mc"`
	// EffArea is the effective-area grid; optional, used when MC is
	// absent.
	EffArea string `yaml:"eff_area"`
	// LogESmear is the reconstructed-vs-true log-energy response width
	// for effective-area injection.
	LogESmear float64 `yaml:"log_e_smear"`
}

// Injection parametrizes the signal synthesized into pseudo-experiments,
// independently of the likelihood's hypothesis.
type Injection struct {
	SigTimePDF temporal.Config `yaml:"inj_sig_time_pdf"`
	EnergyPDF  spectral.Config `yaml:"inj_energy_pdf"`
	// BkgTimePDF, when set, resimulates scrambled background times from
	// its window instead of permuting the observed time column. Only
	// fixed-window models are legal here; open-ended or source-relative
	// ones are rejected at load time.
	BkgTimePDF *temporal.Config `yaml:"inj_bkg_time_pdf"`
}

// Output names the artifacts a run produces.
type Output struct {
	// BackgroundTSPath is where the background-only TS distribution is
	// saved (and later loaded by the unblinder).
	BackgroundTSPath string `yaml:"background_ts_path"`
	// WorkbookPath is the XLSX results export; empty disables it.
	WorkbookPath string `yaml:"workbook_path"`
}

// Analysis is the full YAML document describing one search.
type Analysis struct {
	Name       string            `yaml:"name"`
	Catalogue  string            `yaml:"catalogue"`
	Seasons    []SeasonFiles     `yaml:"seasons"`
	UseSeasons []string          `yaml:"use_seasons"`
	Likelihood likelihood.Config `yaml:"likelihood"`
	Injection  Injection         `yaml:"injection"`
	Minimizer  minimize.Config   `yaml:"minimizer"`
	Run        minimize.RunSpec  `yaml:"run"`
	Unblind    unblind.Config    `yaml:"unblind"`
	Output     Output            `yaml:"output"`
}

// LoadAnalysis reads and validates an analysis document.
func LoadAnalysis(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.MissingFile(path)
		}
		return nil, errors.Wrapf(err, "failed to read analysis config %s", path)
	}

	var a Analysis
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil {
		return nil, errors.ConfigInvalidf("analysis config %s: %v", path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, errors.Wrapf(err, "analysis config %s", path)
	}
	return &a, nil
}

// Validate checks the declarative fields, plus the background-sim time
// model (whose legality depends only on the document). Other model names
// and file contents are validated where they are consumed.
func (a *Analysis) Validate() error {
	if a.Name == "" {
		return errors.ConfigInvalid("name is required")
	}
	if a.Catalogue == "" {
		return errors.ConfigInvalid("catalogue is required")
	}
	if len(a.Seasons) == 0 {
		return errors.ConfigInvalid("at least one season is required")
	}
	for i, s := range a.Seasons {
		if s.Name == "" {
			return errors.ConfigInvalidf("seasons[%d]: name is required", i)
		}
		if s.EndMJD <= s.StartMJD {
			return errors.ConfigInvalidf("seasons[%d] (%s): end_mjd %g <= start_mjd %g", i, s.Name, s.EndMJD, s.StartMJD)
		}
		if s.Exp == "" {
			return errors.ConfigInvalidf("seasons[%d] (%s): exp is required", i, s.Name)
		}
		if s.MC == "" && s.EffArea == "" {
			return errors.ConfigInvalidf("seasons[%d] (%s): one of mc or eff_area is required", i, s.Name)
		}
		if a.Injection.BkgTimePDF != nil {
			bounds := temporal.Bounds{Start: s.StartMJD, End: s.EndMJD}
			if _, err := temporal.NewBackgroundSim(*a.Injection.BkgTimePDF, bounds); err != nil {
				return errors.Wrapf(err, "inj_bkg_time_pdf (season %s)", s.Name)
			}
		}
	}
	if a.Run.NTrials < 0 {
		return errors.ConfigInvalid("run.n_trials must be >= 0")
	}
	for i, scale := range a.Run.Scales {
		if scale < 0 {
			return errors.ConfigInvalidf("run.scales[%d]: injected scale %g must be >= 0", i, scale)
		}
	}
	return nil
}
