package minimize

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stacksearch/domain/trials"
	"stacksearch/internal/logging"
	"stacksearch/internal/rng"
	"stacksearch/ports"
)

// RunSpec parametrizes one batch of trials.
type RunSpec struct {
	// Scales are the injected mean-signal levels; 0 is background-only.
	Scales []float64 `yaml:"scales"`
	// NTrials is the number of trials per scale.
	NTrials int `yaml:"n_trials"`
	// BaseSeed anchors the per-trial seed derivation.
	BaseSeed int64 `yaml:"base_seed"`
	// Workers bounds concurrent trials; 0 means GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// Runner executes batches of independent trials across bounded parallel
// workers. Trials share only immutable state; each owns its private seed
// and writes its own record. A worker failure loses only its in-flight
// trial, never completed records.
type Runner struct {
	handler Handler
	store   ports.TrialStore
	log     *logging.Logger
}

// NewRunner wires a handler to an optional persistent store.
func NewRunner(handler Handler, store ports.TrialStore, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.DefaultLogger
	}
	return &Runner{handler: handler, store: store, log: log}
}

// Run executes spec and returns every completed trial result in seed
// order. Per-trial numerical issues are recorded on the result, never
// returned; only persistence failures surface, and even then completed
// trials are retained and reported.
func (r *Runner) Run(ctx context.Context, spec RunSpec) ([]trials.Result, error) {
	if spec.NTrials <= 0 {
		return nil, nil
	}
	scales := spec.Scales
	if len(scales) == 0 {
		scales = []float64{0}
	}
	workers := spec.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	batchID := uuid.New().String()
	total := len(scales) * spec.NTrials
	results := make([]trials.Result, total)

	var mu sync.Mutex
	failed := make(map[int]error)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for si, scale := range scales {
		for ti := 0; ti < spec.NTrials; ti++ {
			idx := si*spec.NTrials + ti
			scale := scale
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				seed := rng.TrialSeed(spec.BaseSeed, idx)
				result := r.handler.RunTrial(seed, scale)
				results[idx] = result

				if !result.Converged {
					r.log.Warn("trial %d (seed %d, scale %g) did not converge; best value kept", idx, seed, scale)
				}
				if r.store != nil {
					if err := r.store.Append(gctx, batchID, result); err != nil {
						mu.Lock()
						failed[idx] = err
						mu.Unlock()
					}
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return completed(results), err
	}

	r.log.Info("batch %s: %d trials over %d scales complete", batchID, total, len(scales))
	if len(failed) > 0 {
		return completed(results), batchError(failed)
	}
	return results, nil
}

// completed filters out never-run records (zero-value seeds from a
// cancelled batch are indistinguishable from real seed 0, so the filter
// keys on the scale/seed pair being populated by the runner).
func completed(results []trials.Result) []trials.Result {
	out := make([]trials.Result, 0, len(results))
	for _, res := range results {
		if res != (trials.Result{}) {
			out = append(out, res)
		}
	}
	return out
}

func batchError(failed map[int]error) error {
	indices := make([]int, 0, len(failed))
	for idx := range failed {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var sb strings.Builder
	for i, idx := range indices {
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "trial %d: %v", idx, failed[idx])
		if i == 4 && len(indices) > 5 {
			fmt.Fprintf(&sb, "; and %d more", len(indices)-5)
			break
		}
	}
	return fmt.Errorf("%d of the batch's trial records failed to persist (completed trials retained): %s", len(failed), sb.String())
}
