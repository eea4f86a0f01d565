package database

import (
	"database/sql"
	"fmt"
	"time"
)

// RunsRepository handles database operations for pipeline runs
type RunsRepository struct {
	db *DB
}

// NewRunsRepository creates a new run repository
func NewRunsRepository(db *DB) *RunsRepository {
	return &RunsRepository{db: db}
}

const runColumns = `id, stage_name, status, input_params, output_summary,
	       error_message, error_trace, started_at, completed_at`

func scanRun(row interface{ Scan(...interface{}) error }) (*Run, error) {
	var run Run
	var completedAt sql.NullTime
	err := row.Scan(
		&run.ID, &run.StageName, &run.Status, &run.InputParams,
		&run.OutputSummary, &run.ErrorMessage, &run.ErrorTrace,
		&run.StartedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	return &run, nil
}

// Insert creates a new run row in running status
func (r *RunsRepository) Insert(run *Run) (string, error) {
	var id string
	err := r.db.QueryRow(`
		INSERT INTO runs (stage_name, status, input_params)
		VALUES ($1, $2, $3)
		RETURNING id
	`, run.StageName, RunStatusRunning, run.InputParams).Scan(&id)

	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	return id, nil
}

// Complete marks a run as finished with the given terminal status and output
// summary. Only a running run can be completed.
func (r *RunsRepository) Complete(id string, status string, summary Params) error {
	result, err := r.db.Exec(`
		UPDATE runs
		SET status = $2, output_summary = $3, completed_at = NOW()
		WHERE id = $1 AND status = $4
	`, id, status, summary, RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check completed run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s is not running", id)
	}
	return nil
}

// Fail marks a run as failed, recording the error message and trace. Only a
// running run can be failed.
func (r *RunsRepository) Fail(id string, message, trace string) error {
	result, err := r.db.Exec(`
		UPDATE runs
		SET status = $2, error_message = $3, error_trace = $4, completed_at = NOW()
		WHERE id = $1 AND status = $5
	`, id, RunStatusFailed, message, trace, RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to fail run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check failed run: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s is not running", id)
	}
	return nil
}

// GetByID returns the run with the given id, or nil if none exists
func (r *RunsRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT `+runColumns+`
		FROM runs
		WHERE id = $1
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run by id: %w", err)
	}
	return run, nil
}

// List returns runs most recent first, optionally filtered by stage name
func (r *RunsRepository) List(stageName string, limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT `+runColumns+`
		FROM runs
		WHERE ($1 = '' OR stage_name = $1)
		ORDER BY started_at DESC
		LIMIT $2
	`, stageName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return runs, nil
}

// GetLastCompleted returns the most recent successfully completed run of a
// stage, or nil if the stage has never completed
func (r *RunsRepository) GetLastCompleted(stageName string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT `+runColumns+`
		FROM runs
		WHERE stage_name = $1 AND status = $2
		ORDER BY completed_at DESC
		LIMIT 1
	`, stageName, RunStatusCompleted)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last completed run: %w", err)
	}
	return run, nil
}

// MarkStuck fails running runs that started before the cutoff. These are
// orphans left behind by a crashed process; a live run refreshes nothing, so
// age is the only signal available.
func (r *RunsRepository) MarkStuck(olderThan time.Time) (int64, error) {
	result, err := r.db.Exec(`
		UPDATE runs
		SET status = $1, error_message = 'marked stuck', completed_at = NOW()
		WHERE status = $2 AND started_at < $3
	`, RunStatusFailed, RunStatusRunning, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stuck runs: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count stuck runs: %w", err)
	}
	return affected, nil
}
