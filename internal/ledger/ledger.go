// Package ledger persists bootstrap run history in a local sqlite
// database so `envup history` can show what happened on this machine.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Outcome classifies a finished run.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeNoInterpreter Outcome = "no-interpreter"
	OutcomeInstallFailed Outcome = "install-failed"
	OutcomeCancelled     Outcome = "cancelled"
	OutcomeError         Outcome = "error"
)

// Store manages the run history database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open creates or opens the ledger under dataDir.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "envup.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		outcome TEXT,
		exit_code INTEGER
	);

	CREATE TABLE IF NOT EXISTS steps (
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT,
		duration_ms INTEGER,
		PRIMARY KEY (run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginRun records the start of a bootstrap run and returns its ID.
func (s *Store) BeginRun(started time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at) VALUES (?, ?)`,
		id, started.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// RecordStep appends one step outcome to a run.
func (s *Store) RecordStep(runID string, seq int, name, status, detail string, took time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO steps (run_id, seq, name, status, detail, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, seq, name, status, detail, took.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record step %s: %w", name, err)
	}
	return nil
}

// FinishRun stamps a run with its outcome and exit code.
func (s *Store) FinishRun(runID string, outcome Outcome, exitCode int, finished time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, outcome = ?, exit_code = ? WHERE id = ?`,
		finished.UnixMilli(), string(outcome), exitCode, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RunSummary is one row of `envup history`.
type RunSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    Outcome
	ExitCode   int
}

// RecentRuns returns the newest runs first.
func (s *Store) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, started_at, COALESCE(finished_at, 0), COALESCE(outcome, ''), COALESCE(exit_code, 0)
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished int64
		var outcome string
		if err := rows.Scan(&r.ID, &started, &finished, &outcome, &r.ExitCode); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(started)
		if finished > 0 {
			r.FinishedAt = time.UnixMilli(finished)
		}
		r.Outcome = Outcome(outcome)
		out = append(out, r)
	}
	return out, rows.Err()
}

// StepRecord is one recorded step of a run.
type StepRecord struct {
	Seq      int
	Name     string
	Status   string
	Detail   string
	Duration time.Duration
}

// StepsFor returns the steps of a run in sequence order.
func (s *Store) StepsFor(runID string) ([]StepRecord, error) {
	rows, err := s.db.Query(
		`SELECT seq, name, status, COALESCE(detail, ''), COALESCE(duration_ms, 0)
		 FROM steps WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var out []StepRecord
	for rows.Next() {
		var st StepRecord
		var ms int64
		if err := rows.Scan(&st.Seq, &st.Name, &st.Status, &st.Detail, &ms); err != nil {
			return nil, err
		}
		st.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, st)
	}
	return out, rows.Err()
}
