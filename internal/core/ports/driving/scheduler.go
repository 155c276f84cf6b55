package driving

import "context"

// Scheduler triggers runs for sources according to their schedule.
type Scheduler interface {
	// Start begins checking sources for due runs.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops the scheduler.
	Stop() error
}
