package results

import (
	"encoding/json"
	"os"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"stacksearch/internal/errors"
)

// TSDistribution is a read-only aggregate of test-statistic values from
// one injection level (level 0 is the pre-registered background-only
// distribution used for unblinding).
type TSDistribution struct {
	TS []float64 `json:"ts"`
}

// NewTSDistribution copies the values so the aggregate stays immutable.
func NewTSDistribution(ts []float64) *TSDistribution {
	out := make([]float64, len(ts))
	copy(out, ts)
	return &TSDistribution{TS: out}
}

// N returns the number of trials behind the distribution.
func (d *TSDistribution) N() int {
	return len(d.TS)
}

// Median returns the distribution median.
func (d *TSDistribution) Median() float64 {
	if len(d.TS) == 0 {
		return 0
	}
	m, err := stats.Median(d.TS)
	if err != nil {
		return 0
	}
	return m
}

// Quantile returns the q-quantile (q in [0, 1]).
func (d *TSDistribution) Quantile(q float64) float64 {
	if len(d.TS) == 0 {
		return 0
	}
	v, err := stats.Percentile(d.TS, q*100)
	if err != nil {
		return 0
	}
	return v
}

// PValue returns the empirical one-sided p-value of an observed TS: the
// fraction of background trials with TS >= observed. A zero count is
// reported as the upper bound 1/N.
func (d *TSDistribution) PValue(observed float64) float64 {
	if len(d.TS) == 0 {
		return 1
	}
	count := 0
	for _, ts := range d.TS {
		if ts >= observed {
			count++
		}
	}
	if count == 0 {
		return 1 / float64(len(d.TS))
	}
	return float64(count) / float64(len(d.TS))
}

// FiveSigmaOneSided is P(Z >= 5) for a standard normal.
var FiveSigmaOneSided = distuv.UnitNormal.CDF(-5)

// ThresholdForPValue returns the TS value whose background p-value is p.
// When the distribution is too small to resolve p empirically, the
// half-chi-square asymptotic (½δ₀ + ½χ²₁) is used instead: solving
// ½·(1 − F_χ²₁(x)) = p.
func (d *TSDistribution) ThresholdForPValue(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	if float64(d.N())*p >= 10 {
		return d.Quantile(1 - p)
	}
	if 2*p >= 1 {
		return 0
	}
	chi2 := distuv.ChiSquared{K: 1}
	return chi2.Quantile(1 - 2*p)
}

// Save writes the distribution to a JSON file, the record an Unblinder
// later compares against.
func (d *TSDistribution) Save(path string) error {
	data, err := json.Marshal(d)
	if err != nil {
		return errors.Wrap(err, "failed to encode TS distribution")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.StorageError("failed to write TS distribution", err)
	}
	return nil
}

// LoadTSDistribution reads a previously saved distribution.
func LoadTSDistribution(path string) (*TSDistribution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.MissingFile(path)
		}
		return nil, errors.StorageError("failed to read TS distribution", err)
	}
	var d TSDistribution
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrapf(err, "failed to decode TS distribution %s", path)
	}
	return &d, nil
}
