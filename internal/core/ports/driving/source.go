package driving

import (
	"context"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// SourceService manages source configurations.
type SourceService interface {
	// Add validates and stores a new source. An ID is assigned when empty.
	Add(ctx context.Context, source domain.Source) (*domain.Source, error)

	// AddPreset stores a copy of a named preset rooted at home.
	AddPreset(ctx context.Context, name, home string) (*domain.Source, error)

	// Get retrieves a source by ID.
	Get(ctx context.Context, id string) (*domain.Source, error)

	// List returns all configured sources.
	List(ctx context.Context) ([]domain.Source, error)

	// Update modifies an existing source configuration.
	Update(ctx context.Context, source domain.Source) error

	// SetEnabled enables or disables a source.
	SetEnabled(ctx context.Context, id string, enabled bool) error

	// Remove deletes a source together with its item and run records.
	Remove(ctx context.Context, id string) error
}
