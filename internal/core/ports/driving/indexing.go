package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// IndexingService runs the pipeline for sources and reports on past runs.
type IndexingService interface {
	// RunNow queues a run for one source and returns immediately.
	// Returns domain.ErrRunInProgress if the source is already queued or running.
	RunNow(ctx context.Context, sourceID string) error

	// RunAndWait queues a run for one source and blocks until it finishes.
	RunAndWait(ctx context.Context, sourceID string) (domain.RunStatus, error)

	// RunAll queues one job that runs every enabled source in turn.
	RunAll(ctx context.Context) error

	// IsRunning reports whether a run for the source is queued or in progress.
	IsRunning(sourceID string) bool

	// ItemCounts returns item counts per state for a source.
	ItemCounts(ctx context.Context, sourceID string) (domain.ItemCounts, error)

	// ItemStatus returns the bookkeeping record of a single item.
	ItemStatus(ctx context.Context, sourceID, path string) (*domain.ItemStatus, error)

	// RunHistory returns up to limit runs of a source, newest first.
	RunHistory(ctx context.Context, sourceID string, limit int) ([]domain.RunStatus, error)

	// LastSuccessfulRun returns the most recent completed run or nil.
	LastSuccessfulRun(ctx context.Context, sourceID string) (*domain.RunStatus, error)

	// PurgeTombstones removes deleted-item records older than the given age.
	PurgeTombstones(ctx context.Context, sourceID string, olderThan time.Duration) (int, error)

	// AddListener registers a listener for run events.
	AddListener(l Listener)

	// RemoveListener unregisters a listener.
	RemoveListener(l Listener)
}

// Listener receives run events. Callbacks run on worker goroutines and must
// not block for long.
type Listener interface {
	// OnRunStarted is called before the pipeline starts.
	OnRunStarted(sourceID string)

	// OnRunCompleted is called for runs that ended in the completed state,
	// including completed runs that timed out.
	OnRunCompleted(sourceID string, run domain.RunStatus)

	// OnRunFailed is called for failed and cancelled runs.
	OnRunFailed(sourceID string, message string)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are ignored.
type ListenerFuncs struct {
	Started   func(sourceID string)
	Completed func(sourceID string, run domain.RunStatus)
	Failed    func(sourceID string, message string)
}

// OnRunStarted implements Listener.
func (f *ListenerFuncs) OnRunStarted(sourceID string) {
	if f.Started != nil {
		f.Started(sourceID)
	}
}

// OnRunCompleted implements Listener.
func (f *ListenerFuncs) OnRunCompleted(sourceID string, run domain.RunStatus) {
	if f.Completed != nil {
		f.Completed(sourceID, run)
	}
}

// OnRunFailed implements Listener.
func (f *ListenerFuncs) OnRunFailed(sourceID string, message string) {
	if f.Failed != nil {
		f.Failed(sourceID, message)
	}
}
