package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
)

// Ensure SourceService implements the interface.
var _ driving.SourceService = (*SourceService)(nil)

// SourceService manages source configurations.
type SourceService struct {
	sourceStore driven.SourceStore
	statusStore driven.StatusStore
	indexer     driving.IndexingService
	purger      driven.SourcePurger
}

// NewSourceService creates a new source service. The status store and
// indexer are optional; without them Remove only deletes the configuration.
func NewSourceService(
	sourceStore driven.SourceStore,
	statusStore driven.StatusStore,
	indexer driving.IndexingService,
) *SourceService {
	return &SourceService{
		sourceStore: sourceStore,
		statusStore: statusStore,
		indexer:     indexer,
	}
}

// SetIndexPurger sets the index that Remove clears for a deleted source.
func (s *SourceService) SetIndexPurger(p driven.SourcePurger) {
	s.purger = p
}

// Add validates and stores a new source. An ID is assigned when empty.
func (s *SourceService) Add(ctx context.Context, source domain.Source) (*domain.Source, error) {
	if s.sourceStore == nil {
		return nil, domain.ErrNotImplemented
	}
	if source.ID == "" {
		source.ID = uuid.NewString()
	}
	if err := source.Validate(); err != nil {
		return nil, err
	}
	// Check if already exists
	existing, err := s.sourceStore.Get(ctx, source.ID)
	if err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	now := time.Now()
	source.CreatedAt = now
	source.UpdatedAt = now
	if err := s.sourceStore.Save(ctx, source); err != nil {
		return nil, err
	}
	return &source, nil
}

// AddPreset stores a copy of a named preset rooted at home.
func (s *SourceService) AddPreset(ctx context.Context, name, home string) (*domain.Source, error) {
	preset, ok := domain.Preset(name, home)
	if !ok {
		return nil, fmt.Errorf("%w: unknown preset %q", domain.ErrInvalidInput, name)
	}
	return s.Add(ctx, preset)
}

// Get retrieves a source by ID.
func (s *SourceService) Get(ctx context.Context, id string) (*domain.Source, error) {
	if s.sourceStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.sourceStore.Get(ctx, id)
}

// List returns all configured sources.
func (s *SourceService) List(ctx context.Context) ([]domain.Source, error) {
	if s.sourceStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.sourceStore.List(ctx)
}

// Update modifies an existing source configuration.
func (s *SourceService) Update(ctx context.Context, source domain.Source) error {
	if s.sourceStore == nil {
		return domain.ErrNotImplemented
	}
	if err := source.Validate(); err != nil {
		return err
	}
	existing, err := s.sourceStore.Get(ctx, source.ID)
	if err != nil {
		return domain.ErrNotFound
	}
	source.CreatedAt = existing.CreatedAt
	source.UpdatedAt = time.Now()
	return s.sourceStore.Save(ctx, source)
}

// SetEnabled enables or disables a source.
func (s *SourceService) SetEnabled(ctx context.Context, id string, enabled bool) error {
	source, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	source.Enabled = enabled
	return s.Update(ctx, *source)
}

// Remove deletes a source together with its item and run records.
func (s *SourceService) Remove(ctx context.Context, id string) error {
	if s.sourceStore == nil {
		return domain.ErrNotImplemented
	}
	if s.indexer != nil && s.indexer.IsRunning(id) {
		return fmt.Errorf("%w: %s", domain.ErrRunInProgress, id)
	}
	if err := s.sourceStore.Delete(ctx, id); err != nil {
		return err
	}
	if s.statusStore != nil {
		if err := s.statusStore.DeleteSource(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete item statuses: %w", err)
		}
	}
	if s.purger != nil {
		if err := s.purger.RemoveSource(ctx, id); err != nil {
			return fmt.Errorf("remove indexed content: %w", err)
		}
	}
	return nil
}
