// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store archives analysis runs and tuned hyperparameters in a
// local SQLite database. The engine itself only maps documents to
// documents; the archive is a convenience collaborator so that `analyze
// --tuned` can pick up the latest tuning run without a parameter file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/citation-engine/pkg/types"
)

const dbFile = "citation-engine.db"

// Store manages the run archive database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive at resultsDir/citation-engine.db,
// creating the schema if needed.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.ResultsDir
	if dir == "" {
		dir = "results"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			user_id TEXT,
			scraped_at TEXT,
			model_type TEXT,
			process_var REAL,
			overdispersion REAL,
			min_count REAL,
			variance_floor REAL,
			n_papers INTEGER,
			document TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tuned (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			process_var REAL NOT NULL,
			overdispersion REAL NOT NULL,
			log_likelihood REAL NOT NULL,
			grid_size INTEGER,
			n_papers INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RunSummary is one row of `runs list`.
type RunSummary struct {
	ID             int64   `json:"id"`
	CreatedAt      string  `json:"created_at"`
	UserID         string  `json:"user_id"`
	ScrapedAt      string  `json:"scraped_at"`
	NPapers        int     `json:"n_papers"`
	ProcessVar     float64 `json:"process_var"`
	Overdispersion float64 `json:"overdispersion"`
}

// SaveRun archives a rates document and returns its row ID.
func (s *Store) SaveRun(ctx context.Context, doc types.RateDocument) (int64, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("encoding document: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (created_at, user_id, scraped_at, model_type,
			process_var, overdispersion, min_count, variance_floor, n_papers, document)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), doc.UserID, doc.ScrapedAt,
		doc.Model.Type, doc.Model.ProcessVar, doc.Model.Overdispersion,
		doc.Model.MinCount, doc.Model.VarianceFloor, len(doc.Papers), string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	return res.LastInsertId()
}

// ListRuns returns run summaries, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, user_id, scraped_at, n_papers, process_var, overdispersion
		 FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.UserID, &r.ScrapedAt,
			&r.NPapers, &r.ProcessVar, &r.Overdispersion); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns the archived document for one run ID.
func (s *Store) GetRun(ctx context.Context, id int64) (types.RateDocument, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM runs WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return types.RateDocument{}, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return types.RateDocument{}, fmt.Errorf("reading run %d: %w", id, err)
	}

	var doc types.RateDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return types.RateDocument{}, fmt.Errorf("decoding run %d: %w", id, err)
	}
	return doc, nil
}

// SaveTuned archives a tuning result (without its surface).
func (s *Store) SaveTuned(ctx context.Context, res types.TuneResult) (int64, error) {
	out, err := s.db.ExecContext(ctx,
		`INSERT INTO tuned (created_at, process_var, overdispersion, log_likelihood, grid_size, n_papers)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339),
		res.Optimal.ProcessVar, res.Optimal.Overdispersion, res.Optimal.LogLikelihood,
		len(res.Domain.Q), res.NPapers,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting tuned parameters: %w", err)
	}
	return out.LastInsertId()
}

// LatestTuned returns the most recently archived tuned parameters.
func (s *Store) LatestTuned(ctx context.Context) (types.TunedParameters, error) {
	var p types.TunedParameters
	err := s.db.QueryRowContext(ctx,
		`SELECT process_var, overdispersion, log_likelihood
		 FROM tuned ORDER BY id DESC LIMIT 1`).
		Scan(&p.ProcessVar, &p.Overdispersion, &p.LogLikelihood)
	if err == sql.ErrNoRows {
		return types.TunedParameters{}, fmt.Errorf("no tuned parameters stored; run `citation-engine tune --save` first")
	}
	if err != nil {
		return types.TunedParameters{}, fmt.Errorf("reading tuned parameters: %w", err)
	}
	return p, nil
}
