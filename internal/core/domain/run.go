package domain

import (
	"fmt"
	"time"
)

// RunState is the outcome of a pipeline run.
type RunState string

// Available run states.
const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunCancelled RunState = "cancelled"
)

// IsTerminal returns true once the run has finished.
func (s RunState) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// RunStatus records one execution of the pipeline for a source.
type RunStatus struct {
	ID          string
	SourceID    string
	StartedAt   time.Time
	CompletedAt time.Time
	State       RunState

	Scanned   int
	New       int
	Changed   int
	Deleted   int
	Skipped   int
	Errored   int
	Unchanged int

	// TimedOut is set when the run stopped early because its time budget ran out.
	// A timed-out run can still complete.
	TimedOut bool

	LastError string
}

// Duration returns the wall time of the run. For a run that has not
// completed, the time elapsed until now is returned.
func (r RunStatus) Duration(now time.Time) time.Duration {
	switch {
	case !r.CompletedAt.IsZero() && !r.StartedAt.IsZero():
		return r.CompletedAt.Sub(r.StartedAt)
	case !r.StartedAt.IsZero():
		return now.Sub(r.StartedAt)
	default:
		return 0
	}
}

// Succeeded returns true for completed runs.
func (r RunStatus) Succeeded() bool {
	return r.State == RunCompleted
}

// String returns a one-line summary.
func (r RunStatus) String() string {
	s := fmt.Sprintf("[%s] source=%s scanned=%d new=%d changed=%d deleted=%d errors=%d duration=%s",
		r.State, r.SourceID, r.Scanned, r.New, r.Changed, r.Deleted, r.Errored,
		r.Duration(time.Now()).Round(time.Millisecond))
	if r.TimedOut {
		s += " (timed out)"
	}
	return s
}
