// Package store keeps the history of pipeline runs in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/YuminosukeSato/scigo-automl/pkg/errors"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one row of the history.
type Run struct {
	ID          string             `json:"run_id"`
	CreatedAt   time.Time          `json:"created_at"`
	Dataset     string             `json:"dataset"`
	ProblemType string             `json:"problem_type"`
	Target      string             `json:"target"`
	BestModel   string             `json:"best_model"`
	BestScore   float64            `json:"best_score"`
	ModelScores map[string]float64 `json:"model_scores"`
	ResultsPath string             `json:"results_path"`
	Status      string             `json:"status"`
	Error       string             `json:"error,omitempty"`
	DurationMs  int64              `json:"duration_ms"`
}

// Store is a run history backed by database/sql and the pure Go SQLite
// driver.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "create database directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate database")
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		dataset TEXT NOT NULL,
		problem_type TEXT NOT NULL,
		target TEXT NOT NULL,
		best_model TEXT NOT NULL,
		best_score REAL NOT NULL,
		model_scores TEXT NOT NULL,
		results_path TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return errors.WithStack(err)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces a run.
func (s *Store) Save(ctx context.Context, r *Run) error {
	if r == nil {
		return errors.NewValueError("store.Save", "run cannot be nil")
	}
	if r.ID == "" {
		return errors.NewValueError("store.Save", "run ID cannot be empty")
	}
	scores := r.ModelScores
	if scores == nil {
		scores = map[string]float64{}
	}
	encoded, err := json.Marshal(scores)
	if err != nil {
		return errors.Wrap(err, "encode model scores")
	}

	query := `
	INSERT INTO runs (id, created_at, dataset, problem_type, target, best_model,
		best_score, model_scores, results_path, status, error, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		best_model = excluded.best_model,
		best_score = excluded.best_score,
		model_scores = excluded.model_scores,
		results_path = excluded.results_path,
		status = excluded.status,
		error = excluded.error,
		duration_ms = excluded.duration_ms
	`
	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		r.CreatedAt.UTC().Format(time.RFC3339Nano),
		r.Dataset,
		r.ProblemType,
		r.Target,
		r.BestModel,
		r.BestScore,
		string(encoded),
		r.ResultsPath,
		r.Status,
		r.Error,
		r.DurationMs,
	)
	if err != nil {
		return errors.Wrapf(err, "save run %s", r.ID)
	}
	return nil
}

const selectRun = `
	SELECT id, created_at, dataset, problem_type, target, best_model,
		best_score, model_scores, results_path, status, error, duration_ms
	FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r       Run
		created string
		scores  string
	)
	if err := row.Scan(&r.ID, &created, &r.Dataset, &r.ProblemType, &r.Target, &r.BestModel,
		&r.BestScore, &scores, &r.ResultsPath, &r.Status, &r.Error, &r.DurationMs); err != nil {
		return nil, errors.WithStack(err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, errors.Wrapf(err, "parse created_at of run %s", r.ID)
	}
	r.CreatedAt = t
	if err := json.Unmarshal([]byte(scores), &r.ModelScores); err != nil {
		return nil, errors.Wrapf(err, "decode model scores of run %s", r.ID)
	}
	return &r, nil
}

// Get returns one run or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, selectRun+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "run %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load run %s", id)
	}
	return r, nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := selectRun + ` ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		runs = append(runs, r)
	}
	return runs, errors.Wrap(rows.Err(), "iterate runs")
}
