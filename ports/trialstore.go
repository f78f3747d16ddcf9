// Package ports declares the interfaces the engine's external
// collaborators satisfy.
package ports

import (
	"context"

	"stacksearch/domain/trials"
)

// TrialStore persists per-trial records. Implementations must be safe
// for concurrent Append from parallel trial workers; records are merged
// rather than shared, and completed records are never rolled back.
type TrialStore interface {
	// Append persists finished trial results under a batch identifier.
	Append(ctx context.Context, batchID string, results ...trials.Result) error

	// Load returns every persisted record, merged across batches and
	// workers.
	Load(ctx context.Context) ([]trials.Result, error)
}
