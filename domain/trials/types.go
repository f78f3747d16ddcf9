// Package trials holds the immutable per-trial record types shared by
// the minimization, persistence and aggregation layers.
package trials

// Result is the outcome of one pseudo-experiment: the unit of
// aggregation. Immutable once produced.
type Result struct {
	// Scale is the injected mean signal count (0 for background-only).
	Scale float64 `json:"scale" db:"scale"`
	// Seed is the trial's private random seed; identical seed and
	// configuration reproduce the trial exactly.
	Seed int64 `json:"seed" db:"seed"`
	// NS is the fitted signal strength.
	NS float64 `json:"n_s" db:"n_s"`
	// Gamma is the fitted spectral index (the injection value when the
	// handler fits n_s only).
	Gamma float64 `json:"gamma" db:"gamma"`
	// TS is the test statistic, 2Λ at the best fit, 0 when n̂_s <= 0.
	TS float64 `json:"ts" db:"ts"`
	// Converged is false when the optimizer exhausted its retry budget
	// and the best value found was kept.
	Converged bool `json:"converged" db:"converged"`
	// Degenerate marks a zero-information trial (e.g. empty
	// pseudo-dataset); its TS is recorded as 0.
	Degenerate bool `json:"degenerate" db:"degenerate"`
}

// ByScale buckets results by injected mean-signal level.
func ByScale(results []Result) map[float64][]Result {
	out := make(map[float64][]Result)
	for _, r := range results {
		out[r.Scale] = append(out[r.Scale], r)
	}
	return out
}
