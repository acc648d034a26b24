// Package history keeps a SQLite ledger of every variant training run.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS training_runs (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id            TEXT NOT NULL,
    variant           TEXT NOT NULL,
    status            TEXT NOT NULL,
    started_at        TEXT NOT NULL,
    completed_at      TEXT NOT NULL,
    duration_ms       INTEGER NOT NULL,
    epochs            INTEGER NOT NULL DEFAULT 0,
    best_val_accuracy REAL NOT NULL DEFAULT 0,
    final_accuracy    REAL NOT NULL DEFAULT 0,
    error_message     TEXT NOT NULL DEFAULT '',
    created_at        TEXT NOT NULL DEFAULT (datetime('now')),
    UNIQUE(job_id, variant)
);
CREATE INDEX IF NOT EXISTS idx_training_runs_variant ON training_runs(variant);
`

// Run is one variant's outcome inside a training job.
type Run struct {
	ID              int64     `json:"id"`
	JobID           string    `json:"job_id"`
	Variant         string    `json:"variant"`
	Status          string    `json:"status"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationMs      int64     `json:"duration_ms"`
	Epochs          int       `json:"epochs"`
	BestValAccuracy float64   `json:"best_val_accuracy"`
	FinalAccuracy   float64   `json:"final_accuracy"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// Store provides SQLite-backed storage for training runs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the ledger at dbPath and runs migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	// WAL lets the API read while the worker writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Record stores a run. A second record for the same job and variant is ignored.
func (s *Store) Record(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO training_runs (
			job_id, variant, status,
			started_at, completed_at, duration_ms,
			epochs, best_val_accuracy, final_accuracy,
			error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.JobID, r.Variant, r.Status,
		r.StartedAt.UTC().Format(time.RFC3339), r.CompletedAt.UTC().Format(time.RFC3339), r.DurationMs,
		r.Epochs, r.BestValAccuracy, r.FinalAccuracy,
		r.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert training run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. An empty variant matches all.
func (s *Store) Recent(ctx context.Context, variant string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, variant, status,
		       started_at, completed_at, duration_ms,
		       epochs, best_val_accuracy, final_accuracy,
		       error_message
		FROM training_runs
		WHERE (? = '' OR variant = ?)
		ORDER BY id DESC
		LIMIT ?`, variant, variant, limit)
	if err != nil {
		return nil, fmt.Errorf("query training runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var startedAt, completedAt string
		if err := rows.Scan(
			&r.ID, &r.JobID, &r.Variant, &r.Status,
			&startedAt, &completedAt, &r.DurationMs,
			&r.Epochs, &r.BestValAccuracy, &r.FinalAccuracy,
			&r.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
			r.StartedAt = t
		}
		if t, err := time.Parse(time.RFC3339, completedAt); err == nil {
			r.CompletedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Stats aggregates runs per variant.
type Stats struct {
	Variant         string  `json:"variant"`
	Runs            int     `json:"runs"`
	Failures        int     `json:"failures"`
	BestValAccuracy float64 `json:"best_val_accuracy"`
	AvgDurationMs   float64 `json:"avg_duration_ms"`
}

// StatsByVariant returns aggregate numbers for every variant with runs.
func (s *Store) StatsByVariant(ctx context.Context) (map[string]Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT variant,
		       COUNT(*),
		       SUM(CASE WHEN status != 'completed' THEN 1 ELSE 0 END),
		       MAX(best_val_accuracy),
		       AVG(duration_ms)
		FROM training_runs
		GROUP BY variant`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Stats)
	for rows.Next() {
		var st Stats
		if err := rows.Scan(&st.Variant, &st.Runs, &st.Failures, &st.BestValAccuracy, &st.AvgDurationMs); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out[st.Variant] = st
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
