// Package store provides run-history storage backends for PersonaPipe.
//
// This file implements the SQLite-backed run store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite run store. The DSN is a file path to
// the database file; its directory is created when missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite run store ready", "dsn", cfg.DSN)

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordRun(r RunRecord) error {
	apps, counts, err := encodeRunJSON(r)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO runs
		(id, started_at, finished_at, success, apps, entry_counts, error_count,
		 output_path, overall_quality, realism_score, diversity_score, coherence_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
func (s *SQLiteStore) ListRuns() ([]RunRecord, error) {
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
