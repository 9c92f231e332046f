// Package postgres persists run records in PostgreSQL. Summaries and
// diagnostics are stored as JSONB payloads alongside the queryable run
// metadata.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gokinet/domain/core"
	"gokinet/domain/posterior"
	"gokinet/domain/run"
	"gokinet/ports"
)

// Store implements the run store against PostgreSQL
type Store struct {
	db *sqlx.DB
}

// Open connects to the database at the given URL and pings it
func Open(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return NewStore(db), nil
}

// NewStore wraps an existing connection pool
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

var _ ports.RunStore = (*Store)(nil)

// Close releases the underlying connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the run table if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS inference_runs (
			id          TEXT PRIMARY KEY,
			label       TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL,
			timesteps   INTEGER NOT NULL,
			chains      INTEGER NOT NULL,
			seed        BIGINT NOT NULL,
			fingerprint JSONB NOT NULL,
			converged   BOOLEAN NOT NULL,
			diverged    BOOLEAN NOT NULL,
			rhat        JSONB NOT NULL,
			divergences INTEGER NOT NULL,
			warnings    TEXT[] NOT NULL DEFAULT '{}',
			elapsed_ms  BIGINT NOT NULL,
			params      JSONB NOT NULL,
			predictive  JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS inference_runs_created_at_idx
			ON inference_runs (created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrating inference_runs: %w", err)
	}
	return nil
}

type runRow struct {
	ID          string         `db:"id"`
	Label       string         `db:"label"`
	CreatedAt   time.Time      `db:"created_at"`
	Timesteps   int            `db:"timesteps"`
	Chains      int            `db:"chains"`
	Seed        int64          `db:"seed"`
	Fingerprint []byte         `db:"fingerprint"`
	Converged   bool           `db:"converged"`
	Diverged    bool           `db:"diverged"`
	RHat        []byte         `db:"rhat"`
	Divergences int            `db:"divergences"`
	Warnings    pq.StringArray `db:"warnings"`
	ElapsedMs   int64          `db:"elapsed_ms"`
	Params      []byte         `db:"params"`
	Predictive  []byte         `db:"predictive"`
}

func encodeRow(rec *run.Record) (*runRow, error) {
	fingerprint, err := json.Marshal(rec.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("encoding fingerprint: %w", err)
	}
	rhat, err := json.Marshal(rec.RHat)
	if err != nil {
		return nil, fmt.Errorf("encoding rhat: %w", err)
	}
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return nil, fmt.Errorf("encoding params: %w", err)
	}
	predictive, err := json.Marshal(rec.Predictive)
	if err != nil {
		return nil, fmt.Errorf("encoding predictive: %w", err)
	}
	return &runRow{
		ID:          rec.ID.String(),
		Label:       rec.Label,
		CreatedAt:   rec.CreatedAt,
		Timesteps:   rec.Timesteps,
		Chains:      rec.Chains,
		Seed:        rec.Seed,
		Fingerprint: fingerprint,
		Converged:   rec.Converged,
		Diverged:    rec.Diverged,
		RHat:        rhat,
		Divergences: rec.Divergences,
		Warnings:    pq.StringArray(rec.Warnings),
		ElapsedMs:   rec.ElapsedMs,
		Params:      params,
		Predictive:  predictive,
	}, nil
}

func (r *runRow) decode() (*run.Record, error) {
	rec := &run.Record{
		ID:          core.RunID(r.ID),
		Label:       r.Label,
		CreatedAt:   r.CreatedAt,
		Timesteps:   r.Timesteps,
		Chains:      r.Chains,
		Seed:        r.Seed,
		Converged:   r.Converged,
		Diverged:    r.Diverged,
		Divergences: r.Divergences,
		Warnings:    []string(r.Warnings),
		ElapsedMs:   r.ElapsedMs,
	}
	if err := json.Unmarshal(r.Fingerprint, &rec.Fingerprint); err != nil {
		return nil, fmt.Errorf("decoding fingerprint for run %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.RHat, &rec.RHat); err != nil {
		return nil, fmt.Errorf("decoding rhat for run %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.Params, &rec.Params); err != nil {
		return nil, fmt.Errorf("decoding params for run %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.Predictive, &rec.Predictive); err != nil {
		return nil, fmt.Errorf("decoding predictive for run %s: %w", r.ID, err)
	}
	if rec.Params == nil {
		rec.Params = []posterior.ParamSummary{}
	}
	return rec, nil
}

// Save upserts a run record
func (s *Store) Save(ctx context.Context, rec *run.Record) error {
	row, err := encodeRow(rec)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO inference_runs (
			id, label, created_at, timesteps, chains, seed, fingerprint,
			converged, diverged, rhat, divergences, warnings, elapsed_ms,
			params, predictive
		) VALUES (
			:id, :label, :created_at, :timesteps, :chains, :seed, :fingerprint,
			:converged, :diverged, :rhat, :divergences, :warnings, :elapsed_ms,
			:params, :predictive
		)
		ON CONFLICT (id) DO UPDATE SET
			label = EXCLUDED.label,
			converged = EXCLUDED.converged,
			diverged = EXCLUDED.diverged,
			rhat = EXCLUDED.rhat,
			divergences = EXCLUDED.divergences,
			warnings = EXCLUDED.warnings,
			elapsed_ms = EXCLUDED.elapsed_ms,
			params = EXCLUDED.params,
			predictive = EXCLUDED.predictive
	`, row)
	if err != nil {
		return fmt.Errorf("saving run %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a run record by ID
func (s *Store) Get(ctx context.Context, id core.RunID) (*run.Record, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, label, created_at, timesteps, chains, seed, fingerprint,
		       converged, diverged, rhat, divergences, warnings, elapsed_ms,
		       params, predictive
		FROM inference_runs
		WHERE id = $1
	`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	return row.decode()
}

// List returns the most recent runs, newest first
func (s *Store) List(ctx context.Context, limit int) ([]*run.Record, error) {
	query := `
		SELECT id, label, created_at, timesteps, chains, seed, fingerprint,
		       converged, diverged, rhat, divergences, warnings, elapsed_ms,
		       params, predictive
		FROM inference_runs
		ORDER BY created_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var rows []runRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	records := make([]*run.Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].decode()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
