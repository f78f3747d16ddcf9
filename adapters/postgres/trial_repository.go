// Package postgres persists trial records in a PostgreSQL table shared
// by distributed trial runners.
package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"stacksearch/domain/trials"
	"stacksearch/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS trial_results (
	id         BIGSERIAL PRIMARY KEY,
	batch_id   TEXT NOT NULL,
	scale      DOUBLE PRECISION NOT NULL,
	seed       BIGINT NOT NULL,
	n_s        DOUBLE PRECISION NOT NULL,
	gamma      DOUBLE PRECISION NOT NULL,
	ts         DOUBLE PRECISION NOT NULL,
	converged  BOOLEAN NOT NULL,
	degenerate BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trial_results_scale ON trial_results (scale);`

// TrialRepository implements ports.TrialStore over sqlx. Concurrent
// appends are safe; each row is an independent insert.
type TrialRepository struct {
	db *sqlx.DB
}

// Connect opens the database and ensures the trial table exists.
func Connect(dsn string) (*TrialRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.StorageError("failed to connect to postgres", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.StorageError("failed to ensure trial schema", err)
	}
	return &TrialRepository{db: db}, nil
}

// NewTrialRepository wraps an existing connection (tests inject one).
func NewTrialRepository(db *sqlx.DB) *TrialRepository {
	return &TrialRepository{db: db}
}

func (r *TrialRepository) Append(ctx context.Context, batchID string, results ...trials.Result) error {
	if len(results) == 0 {
		return nil
	}
	query := `
		INSERT INTO trial_results (batch_id, scale, seed, n_s, gamma, ts, converged, degenerate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.StorageError("failed to begin trial insert", err)
	}
	for _, res := range results {
		if _, err := tx.ExecContext(ctx, query,
			batchID, res.Scale, res.Seed, res.NS, res.Gamma, res.TS, res.Converged, res.Degenerate,
		); err != nil {
			tx.Rollback()
			return errors.StorageError("failed to insert trial record", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.StorageError("failed to commit trial insert", err)
	}
	return nil
}

// Load returns every record across all batches, in insertion order.
func (r *TrialRepository) Load(ctx context.Context) ([]trials.Result, error) {
	query := `
		SELECT scale, seed, n_s, gamma, ts, converged, degenerate
		FROM trial_results
		ORDER BY id`

	var out []trials.Result
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, errors.StorageError("failed to load trial records", err)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (r *TrialRepository) Close() error {
	return r.db.Close()
}
