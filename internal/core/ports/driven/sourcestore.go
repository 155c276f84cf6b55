package driven

import (
	"context"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// SourceStore persists source descriptors. Implementations hand out copies,
// so callers may modify returned sources freely.
type SourceStore interface {
	// Save inserts the source or replaces the one with the same ID.
	Save(ctx context.Context, source domain.Source) error

	// Get returns domain.ErrNotFound for unknown IDs.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// Delete returns domain.ErrNotFound for unknown IDs.
	Delete(ctx context.Context, id string) error

	// List returns every source ordered by name.
	List(ctx context.Context) ([]domain.Source, error)
}
