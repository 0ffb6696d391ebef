// ABOUTME: SQLite persistence for workflow runs and conversation turns. The full
// ABOUTME: state serializes as one JSON document; summary columns exist for listing.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/draftforge/canvasflow/workflow"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	prompt      TEXT NOT NULL,
	step        TEXT NOT NULL,
	completed   INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	role        TEXT NOT NULL,
	text        TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_run ON turns(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_updated ON runs(updated_at);
`

// Store persists runs in a single SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts or replaces the run row for the given state.
func (s *Store) SaveRun(ctx context.Context, st *workflow.WorkflowState) error {
	data, err := st.Marshal()
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	completed := 0
	if st.IsComplete {
		completed = 1
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, prompt, step, completed, error, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			step = excluded.step,
			completed = excluded.completed,
			error = excluded.error,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		st.RunID, st.UserPrompt, string(st.CurrentStep), completed, st.Error, string(data), now, now)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// LoadRun reconstructs a run's state by id.
func (s *Store) LoadRun(ctx context.Context, id string) (*workflow.WorkflowState, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM runs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	return workflow.UnmarshalState([]byte(data))
}

// RunSummary is one row of the run listing.
type RunSummary struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Step      string    `json:"step"`
	Completed bool      `json:"completed"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListRuns returns the most recently updated runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, prompt, step, completed, error, updated_at
		FROM runs ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var completed int
		if err := rows.Scan(&r.ID, &r.Prompt, &r.Step, &completed, &r.Error, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Completed = completed != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendTurn records one conversation turn for a run.
func (s *Store) AppendTurn(ctx context.Context, runID, role, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (run_id, role, text, created_at) VALUES (?, ?, ?, ?)`,
		runID, role, text, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Turn is one persisted conversation turn.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Turns returns a run's conversation turns in insertion order.
func (s *Store) Turns(ctx context.Context, runID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, text FROM turns WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Role, &t.Text); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
