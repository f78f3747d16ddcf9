package filestore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stacksearch/domain/trials"
)

func TestAppendLoadRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	records := []trials.Result{
		{Scale: 0, Seed: 1, TS: 0.5, Converged: true},
		{Scale: 5, Seed: 2, NS: 3.2, Gamma: 2.1, TS: 4.4, Converged: true},
	}
	require.NoError(t, store.Append(ctx, "batch-a", records...))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestLoadMergesBatches(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "batch-a", trials.Result{Seed: 1, Converged: true}))
	require.NoError(t, store.Append(ctx, "batch-b", trials.Result{Seed: 2, Converged: true}))

	// A second store over the same directory sees both batches.
	other, err := New(dir)
	require.NoError(t, err)
	loaded, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestConcurrentAppend(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = store.Append(ctx, "shared", trials.Result{Seed: int64(w*perWorker + i), Converged: true})
			}
		}(w)
	}
	wg.Wait()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, workers*perWorker)

	seen := make(map[int64]bool)
	for _, r := range loaded {
		assert.False(t, seen[r.Seed], "seed %d duplicated or torn", r.Seed)
		seen[r.Seed] = true
	}
}

func TestAppendNothingIsNoop(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "empty"))
	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
