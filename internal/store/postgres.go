// Package store provides run-history storage backends for PersonaPipe.
//
// This file implements the PostgreSQL-backed run store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL run store from a connection
// string DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres run store ready")

	return &PostgresStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) RecordRun(r RunRecord) error {
	apps, counts, err := encodeRunJSON(r)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO runs
		(id, started_at, finished_at, success, apps, entry_counts, error_count,
		 output_path, overall_quality, realism_score, diversity_score, coherence_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.StartedAt, r.FinishedAt, r.Success, apps, counts, r.ErrorCount,
		nilIfEmpty(r.OutputPath), nilIfEmpty(r.OverallQuality),
		r.RealismScore, r.DiversityScore, r.CoherenceScore)
	if err != nil {
		slog.Error("Failed to insert run", "run_id", r.ID, "error", err)
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// ListRuns returns recorded runs newest first.
func (s *PostgresStore) ListRuns() ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT id, started_at, finished_at, success, apps,
		entry_counts, error_count, output_path, overall_quality,
		realism_score, diversity_score, coherence_score
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
