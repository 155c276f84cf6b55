package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchResult
	err     error
	opts    domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.opts = opts
	return m.results, m.err
}

// mockSourceService is a mock implementation of driving.SourceService.
type mockSourceService struct {
	sources []domain.Source
	err     error
}

func (m *mockSourceService) Add(_ context.Context, s domain.Source) (*domain.Source, error) {
	return &s, m.err
}

func (m *mockSourceService) AddPreset(_ context.Context, _, _ string) (*domain.Source, error) {
	return nil, domain.ErrNotImplemented
}

func (m *mockSourceService) Get(_ context.Context, id string) (*domain.Source, error) {
	for _, s := range m.sources {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockSourceService) List(_ context.Context) ([]domain.Source, error) {
	return m.sources, m.err
}

func (m *mockSourceService) Update(_ context.Context, _ domain.Source) error { return m.err }

func (m *mockSourceService) SetEnabled(_ context.Context, _ string, _ bool) error { return m.err }

func (m *mockSourceService) Remove(_ context.Context, _ string) error { return m.err }

// mockIndexingService is a mock implementation of driving.IndexingService.
type mockIndexingService struct {
	running   map[string]bool
	counts    domain.ItemCounts
	runs      []domain.RunStatus
	last      *domain.RunStatus
	err       error
	triggered []string
	limit     int
}

func (m *mockIndexingService) RunNow(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.triggered = append(m.triggered, id)
	return nil
}

func (m *mockIndexingService) RunAndWait(_ context.Context, _ string) (domain.RunStatus, error) {
	return domain.RunStatus{}, m.err
}

func (m *mockIndexingService) RunAll(_ context.Context) error { return m.err }

func (m *mockIndexingService) IsRunning(id string) bool { return m.running[id] }

func (m *mockIndexingService) ItemCounts(_ context.Context, _ string) (domain.ItemCounts, error) {
	return m.counts, m.err
}

func (m *mockIndexingService) ItemStatus(_ context.Context, _, _ string) (*domain.ItemStatus, error) {
	return nil, domain.ErrNotFound
}

func (m *mockIndexingService) RunHistory(_ context.Context, _ string, limit int) ([]domain.RunStatus, error) {
	m.limit = limit
	return m.runs, m.err
}

func (m *mockIndexingService) LastSuccessfulRun(_ context.Context, _ string) (*domain.RunStatus, error) {
	return m.last, m.err
}

func (m *mockIndexingService) PurgeTombstones(_ context.Context, _ string, _ time.Duration) (int, error) {
	return 0, m.err
}

func (m *mockIndexingService) AddListener(_ driving.Listener)    {}
func (m *mockIndexingService) RemoveListener(_ driving.Listener) {}
