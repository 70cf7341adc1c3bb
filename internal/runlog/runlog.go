// Package runlog persists a local history of pipeline runs in sqlite.
//
// Recording is best-effort by design: the ledger exists for the history and
// report commands, and a ledger problem must never fail a pipeline that
// produced a perfectly good splat.
package runlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB wraps the run-ledger database.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the ledger at path and applies any pending
// schema migrations.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db := &DB{sqldb}
	if err := db.migrateUp(); err != nil {
		sqldb.Close()
		return nil, err
	}
	return db, nil
}

// Run is one recorded pipeline invocation.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Mode        string
	Input       string
	OutputName  string
	Frames      int
	Iterations  int
	Downscale   int
	SaveEvery   int
	Validation  bool
	Status      string // "success" or "failed"
	FailedStage string
	Artifact    string
}

// StageRecord is one executed stage within a run.
type StageRecord struct {
	RunID      string
	Seq        int
	Stage      string
	Status     string
	DurationMS int64
	ExitCode   int
}

// InsertRun persists a run, assigning an ID when empty, and returns the ID.
func (db *DB) InsertRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	validation := 0
	if r.Validation {
		validation = 1
	}
	_, err := db.Exec(`
		INSERT INTO runs (
			run_id, started_at, finished_at, mode, input, output_name,
			frames, iterations, downscale, save_every, validation,
			status, failed_stage, artifact
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UnixMilli(), r.FinishedAt.UnixMilli(), r.Mode, r.Input, r.OutputName,
		r.Frames, r.Iterations, r.Downscale, r.SaveEvery, validation,
		r.Status, r.FailedStage, r.Artifact,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// InsertStages persists the per-stage records of one run in a transaction.
func (db *DB) InsertStages(runID string, stages []StageRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for i, s := range stages {
		if _, err := tx.Exec(`
			INSERT INTO run_stages (run_id, seq, stage, status, duration_ms, exit_code)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, i, s.Stage, s.Status, s.DurationMS, s.ExitCode,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert stage %s: %w", s.Stage, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT run_id, started_at, finished_at, mode, input, output_name,
		       frames, iterations, downscale, save_every, validation,
		       status, failed_stage, artifact
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID, or the most recent run when id is empty.
func (db *DB) GetRun(id string) (*Run, error) {
	query := `
		SELECT run_id, started_at, finished_at, mode, input, output_name,
		       frames, iterations, downscale, save_every, validation,
		       status, failed_stage, artifact
		FROM runs`
	var row *sql.Rows
	var err error
	if id == "" {
		row, err = db.Query(query + ` ORDER BY started_at DESC LIMIT 1`)
	} else {
		row, err = db.Query(query+` WHERE run_id = ?`, id)
	}
	if err != nil {
		return nil, err
	}
	defer row.Close()

	if !row.Next() {
		if err := row.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	r, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// StagesForRun returns the stage records of a run in execution order.
func (db *DB) StagesForRun(runID string) ([]StageRecord, error) {
	rows, err := db.Query(`
		SELECT run_id, seq, stage, status, duration_ms, exit_code
		FROM run_stages WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []StageRecord
	for rows.Next() {
		var s StageRecord
		if err := rows.Scan(&s.RunID, &s.Seq, &s.Stage, &s.Status, &s.DurationMS, &s.ExitCode); err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

func scanRun(rows *sql.Rows) (Run, error) {
	var r Run
	var started, finished int64
	var validation int
	err := rows.Scan(
		&r.ID, &started, &finished, &r.Mode, &r.Input, &r.OutputName,
		&r.Frames, &r.Iterations, &r.Downscale, &r.SaveEvery, &validation,
		&r.Status, &r.FailedStage, &r.Artifact,
	)
	if err != nil {
		return Run{}, err
	}
	r.StartedAt = time.UnixMilli(started)
	r.FinishedAt = time.UnixMilli(finished)
	r.Validation = validation != 0
	return r, nil
}
