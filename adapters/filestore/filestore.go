// Package filestore persists trial records as JSON-lines files, one file
// per batch, merged back together on load.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"stacksearch/domain/trials"
	"stacksearch/internal/errors"
)

// Store writes each batch to <dir>/<batchID>.jsonl. Appends within a
// batch are serialized by a mutex; distinct batches never share a file,
// so parallel runs merge cleanly on Load.
type Store struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.StorageError("failed to create trial store directory", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Append(ctx context.Context, batchID string, results ...trials.Result) error {
	if len(results) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, batchID+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return errors.StorageError("failed to open trial file", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return errors.StorageError("failed to encode trial record", err)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.StorageError("failed to flush trial file", err)
	}
	return nil
}

// Load merges every batch file in the directory, ordered by file name
// then line for reproducible aggregation.
func (s *Store) Load(ctx context.Context) ([]trials.Result, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.jsonl"))
	if err != nil {
		return nil, errors.StorageError("failed to list trial files", err)
	}
	sort.Strings(paths)

	var out []trials.Result
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := readBatch(path)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}
	return out, nil
}

func readBatch(path string) ([]trials.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.StorageError("failed to open trial file", err)
	}
	defer f.Close()

	var out []trials.Result
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var res trials.Result
		if err := json.Unmarshal(line, &res); err != nil {
			return nil, errors.Wrapf(err, "corrupt trial record in %s", path)
		}
		out = append(out, res)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.StorageError("failed to read trial file", err)
	}
	return out, nil
}
