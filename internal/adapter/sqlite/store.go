// Package sqlite persists the enriched accident table so it can be browsed
// and queried with ordinary SQL tooling.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/accident-risk-etl/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS accidents (
	position    INTEGER PRIMARY KEY,
	id          TEXT    NOT NULL,
	latitude    REAL    NOT NULL,
	longitude   REAL    NOT NULL,
	injured     INTEGER NOT NULL,
	deaths      INTEGER NOT NULL,
	intensity   INTEGER NOT NULL,
	pct_injured REAL    NOT NULL,
	pct_deaths  REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_accidents_intensity ON accidents (intensity DESC);
CREATE TABLE IF NOT EXISTS runs (
	processed_at     TEXT    NOT NULL,
	rows_read        INTEGER NOT NULL,
	rows_dropped     INTEGER NOT NULL,
	records_enriched INTEGER NOT NULL
);`

// Store is a SQLite-backed sink for the enriched dataset. Each load replaces
// the accidents table and appends the run summary to the runs table.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck,gosec // setup error takes precedence
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck,gosec // setup error takes precedence
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Name() string { return "sqlite" }

// Load replaces the accidents table with the run's dataset in one transaction.
func (s *Store) Load(ctx context.Context, artifacts domain.Artifacts) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, "DELETE FROM accidents"); err != nil {
		return fmt.Errorf("clear accidents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO accidents
		(position, id, latitude, longitude, injured, deaths, intensity, pct_injured, pct_deaths)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range artifacts.Dataset {
		if _, err := stmt.ExecContext(ctx, i, rec.ID, rec.Latitude, rec.Longitude,
			rec.Injured, rec.Deaths, rec.Intensity, rec.PctInjured, rec.PctDeaths); err != nil {
			return fmt.Errorf("insert accident %q: %w", rec.ID, err)
		}
	}

	sum := artifacts.Summary
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs (processed_at, rows_read, rows_dropped, records_enriched) VALUES (?, ?, ?, ?)",
		sum.ProcessedAt.UTC().Format(time.RFC3339), sum.RowsRead, sum.RowsDropped, sum.RecordsEnriched); err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Records reads the stored dataset back in its original order.
func (s *Store) Records(ctx context.Context) ([]domain.EnrichedRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, latitude, longitude, injured, deaths,
		intensity, pct_injured, pct_deaths FROM accidents ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query accidents: %w", err)
	}
	defer rows.Close()

	out := []domain.EnrichedRecord{}
	for rows.Next() {
		var rec domain.EnrichedRecord
		if err := rows.Scan(&rec.ID, &rec.Latitude, &rec.Longitude, &rec.Injured, &rec.Deaths,
			&rec.Intensity, &rec.PctInjured, &rec.PctDeaths); err != nil {
			return nil, fmt.Errorf("scan accident: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LastRun returns the most recently stored run summary.
func (s *Store) LastRun(ctx context.Context) (domain.RunSummary, error) {
	var (
		sum         domain.RunSummary
		processedAt string
	)
	err := s.db.QueryRowContext(ctx, `SELECT processed_at, rows_read, rows_dropped, records_enriched
		FROM runs ORDER BY rowid DESC LIMIT 1`).Scan(&processedAt, &sum.RowsRead, &sum.RowsDropped, &sum.RecordsEnriched)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("query last run: %w", err)
	}
	if sum.ProcessedAt, err = time.Parse(time.RFC3339, processedAt); err != nil {
		return domain.RunSummary{}, fmt.Errorf("parse processed_at: %w", err)
	}
	return sum, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
