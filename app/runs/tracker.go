package runs

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/sche/vc-agents/app/database"
)

// Tracker brackets one pipeline-stage invocation with a persisted run record.
// Every start is matched by exactly one terminal transition (completed,
// partial or failed); a run is never reopened.
type Tracker struct {
	repo database.RunRepository
}

// NewTracker creates a new run tracker
func NewTracker(repo database.RunRepository) *Tracker {
	return &Tracker{repo: repo}
}

// Start inserts a running run row and returns its id
func (t *Tracker) Start(stageName string, params database.Params) (string, error) {
	run := &database.Run{
		StageName:   stageName,
		InputParams: params,
	}
	id, err := t.repo.Insert(run)
	if err != nil {
		return "", fmt.Errorf("failed to start run for %s: %w", stageName, err)
	}
	slog.Debug("Run started", "stage", stageName, "run_id", id)
	return id, nil
}

// Finish marks a run completed or partial with its output summary
func (t *Tracker) Finish(runID string, status string, summary database.Params) error {
	if status != database.RunStatusCompleted && status != database.RunStatusPartial {
		return fmt.Errorf("invalid terminal status %q", status)
	}
	if err := t.repo.Complete(runID, status, summary); err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	slog.Debug("Run finished", "run_id", runID, "status", status)
	return nil
}

// Fail marks a run failed with an error message and trace
func (t *Tracker) Fail(runID string, message, trace string) error {
	if err := t.repo.Fail(runID, message, trace); err != nil {
		return fmt.Errorf("failed to mark run %s failed: %w", runID, err)
	}
	slog.Debug("Run failed", "run_id", runID, "error", message)
	return nil
}

// Track runs fn inside a run bracket. The terminal status is recorded on
// every exit path: the status fn returns on success, failed when fn returns
// an error or reports a batch with no successes, and failed with a stack
// trace when fn panics (the panic is re-raised after the run is finalized).
func (t *Tracker) Track(stageName string, params database.Params, fn func(runID string) (string, database.Params, error)) error {
	runID, err := t.Start(stageName, params)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			if failErr := t.Fail(runID, fmt.Sprintf("panic: %v", r), string(debug.Stack())); failErr != nil {
				slog.Error("Failed to record panicked run", "run_id", runID, "error", failErr)
			}
			panic(r)
		}
	}()

	status, summary, err := fn(runID)
	if err != nil {
		if failErr := t.Fail(runID, err.Error(), ""); failErr != nil {
			slog.Error("Failed to record failed run", "run_id", runID, "error", failErr)
		}
		return err
	}

	// A batch where nothing succeeded is a terminal failure even though fn
	// itself returned cleanly
	if status == database.RunStatusFailed {
		return t.Fail(runID, "no batch items succeeded", "")
	}

	return t.Finish(runID, status, summary)
}

// MarkStuck fails running rows older than maxAge. A crashed process cannot
// finalize its own bracket, so a supervisor sweep is the only way those rows
// reach a terminal status.
func (t *Tracker) MarkStuck(maxAge time.Duration) (int64, error) {
	count, err := t.repo.MarkStuck(time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		slog.Warn("Marked stuck runs as failed", "count", count, "max_age", maxAge)
	}
	return count, nil
}
