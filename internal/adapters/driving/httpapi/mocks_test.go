package httpapi

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
)

var (
	_ driving.SourceService   = (*mockSourceService)(nil)
	_ driving.IndexingService = (*mockIndexingService)(nil)
	_ driving.SearchService   = (*mockSearchService)(nil)
)

type mockSourceService struct {
	sources []domain.Source
	listErr error
}

func (m *mockSourceService) Add(_ context.Context, s domain.Source) (*domain.Source, error) {
	m.sources = append(m.sources, s)
	return &s, nil
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
	return m.sources, m.listErr
}

func (m *mockSourceService) Update(_ context.Context, _ domain.Source) error { return nil }

func (m *mockSourceService) SetEnabled(_ context.Context, _ string, _ bool) error { return nil }

func (m *mockSourceService) Remove(_ context.Context, _ string) error { return nil }

type mockIndexingService struct {
	runNowErr error
	running   map[string]bool
	counts    domain.ItemCounts
	items     map[string]domain.ItemStatus
	runs      []domain.RunStatus
	last      *domain.RunStatus

	triggered []string
	runAll    int
	limit     int
}

func (m *mockIndexingService) RunNow(_ context.Context, id string) error {
	if m.runNowErr != nil {
		return m.runNowErr
	}
	m.triggered = append(m.triggered, id)
	return nil
}

func (m *mockIndexingService) RunAndWait(_ context.Context, _ string) (domain.RunStatus, error) {
	return domain.RunStatus{}, domain.ErrNotImplemented
}

func (m *mockIndexingService) RunAll(_ context.Context) error {
	m.runAll++
	return nil
}

func (m *mockIndexingService) IsRunning(id string) bool { return m.running[id] }

func (m *mockIndexingService) ItemCounts(_ context.Context, _ string) (domain.ItemCounts, error) {
	return m.counts, nil
}

func (m *mockIndexingService) ItemStatus(_ context.Context, _, path string) (*domain.ItemStatus, error) {
	st, ok := m.items[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

func (m *mockIndexingService) RunHistory(_ context.Context, _ string, limit int) ([]domain.RunStatus, error) {
	m.limit = limit
	return m.runs, nil
}

func (m *mockIndexingService) LastSuccessfulRun(_ context.Context, _ string) (*domain.RunStatus, error) {
	return m.last, nil
}

func (m *mockIndexingService) PurgeTombstones(_ context.Context, _ string, _ time.Duration) (int, error) {
	return 0, nil
}

func (m *mockIndexingService) AddListener(_ driving.Listener)    {}
func (m *mockIndexingService) RemoveListener(_ driving.Listener) {}

type mockSearchService struct {
	query string
	opts  domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, q string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.query = q
	m.opts = opts
	return []domain.SearchResult{{SourceID: "docs", Path: "/docs/a.md", Title: "A", Snippet: "alpha", Score: 1.5}}, nil
}
