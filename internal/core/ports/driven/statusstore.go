package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// StatusStore persists item statuses and run records.
//
// Implementations must return values the caller may mutate freely, and must
// tolerate concurrent reads while a run is being saved.
type StatusStore interface {
	// LoadItemStatuses returns all item statuses of a source keyed by path.
	// The map is a fresh copy owned by the caller.
	LoadItemStatuses(ctx context.Context, sourceID string) (map[string]*domain.ItemStatus, error)

	// SaveItemStatuses replaces the stored statuses of a source with statuses.
	SaveItemStatuses(ctx context.Context, sourceID string, statuses map[string]*domain.ItemStatus) error

	// GetItemStatus returns one item status, or domain.ErrNotFound.
	GetItemStatus(ctx context.Context, sourceID, path string) (*domain.ItemStatus, error)

	// SaveRun stores or updates a run record.
	SaveRun(ctx context.Context, run domain.RunStatus) error

	// CountByState returns item counts with every state present.
	CountByState(ctx context.Context, sourceID string) (domain.ItemCounts, error)

	// LoadRuns returns up to limit runs of a source, newest first.
	// A non-positive limit returns every stored run.
	LoadRuns(ctx context.Context, sourceID string, limit int) ([]domain.RunStatus, error)

	// LastSuccessfulRun returns the most recent completed run, or nil if there is none.
	LastSuccessfulRun(ctx context.Context, sourceID string) (*domain.RunStatus, error)

	// PurgeTombstones removes deleted items whose DeletedAt is before olderThan
	// and returns how many were removed.
	PurgeTombstones(ctx context.Context, sourceID string, olderThan time.Time) (int, error)

	// DeleteSource removes every item and run record of a source.
	DeleteSource(ctx context.Context, sourceID string) error
}
