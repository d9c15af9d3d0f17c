// Package archive persists calibration artifacts so analysis tooling
// can consume completed runs after the process exits.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/signalsfoundry/auxetic-sensor/design"
	"github.com/signalsfoundry/auxetic-sensor/pipeline"
)

// Record is one archived measurement run: the design under test, its
// derived properties, and the fitted calibration curve. Reading-level
// data is deliberately not archived; the curve plus residual statistics
// are the exported contract.
type Record struct {
	RunID     string                      `json:"run_id"`
	CreatedAt time.Time                   `json:"created_at"`
	Params    design.CellParameters       `json:"params"`
	Props     design.MechanicalProperties `json:"props"`
	Curve     pipeline.CalibrationCurve   `json:"curve"`
	Readings  int                         `json:"readings"`
}

// Store is a SQLite-backed archive of calibration runs. Each run is a
// single JSON payload row keyed by run ID and insertion order.
type Store struct {
	db *sql.DB
}

// Open creates (or reopens) the archive at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "calibration.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS calibration_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create calibration_runs table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun appends one completed run to the archive.
func (s *Store) SaveRun(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO calibration_runs (run_id, created_at, payload) VALUES (?, ?, ?)`,
		rec.RunID, rec.CreatedAt.Format(time.RFC3339Nano), payload,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Runs returns all archived runs in insertion order.
func (s *Store) Runs(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM calibration_runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode run: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LatestRun returns the most recently archived run, or sql.ErrNoRows
// when the archive is empty.
func (s *Store) LatestRun(ctx context.Context) (Record, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM calibration_runs ORDER BY id DESC LIMIT 1`,
	).Scan(&payload)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("decode run: %w", err)
	}
	return rec, nil
}
