package cli

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
)

var (
	_ driving.SourceService   = (*mockSourceService)(nil)
	_ driving.IndexingService = (*mockIndexingService)(nil)
	_ driving.SearchService   = (*mockSearchService)(nil)
	_ driving.SettingsService = (*mockSettingsService)(nil)
)

// mockSourceService keeps sources in insertion order.
type mockSourceService struct {
	mu      sync.Mutex
	sources []domain.Source
	nextID  int
	err     error
}

func (m *mockSourceService) Add(_ context.Context, s domain.Source) (*domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if s.ID == "" {
		m.nextID++
		s.ID = fmt.Sprintf("src-%d", m.nextID)
	}
	m.sources = append(m.sources, s)
	return &s, nil
}

func (m *mockSourceService) AddPreset(ctx context.Context, name, home string) (*domain.Source, error) {
	preset, ok := domain.Preset(name, home)
	if !ok {
		return nil, fmt.Errorf("%w: unknown preset %q", domain.ErrInvalidInput, name)
	}
	return m.Add(ctx, preset)
}

func (m *mockSourceService) Get(_ context.Context, id string) (*domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sources {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockSourceService) List(_ context.Context) ([]domain.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sources), m.err
}

func (m *mockSourceService) Update(_ context.Context, s domain.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sources {
		if m.sources[i].ID == s.ID {
			m.sources[i] = s
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockSourceService) SetEnabled(_ context.Context, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sources {
		if m.sources[i].ID == id {
			m.sources[i].Enabled = enabled
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockSourceService) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.sources {
		if m.sources[i].ID == id {
			m.sources = slices.Delete(m.sources, i, i+1)
			return nil
		}
	}
	return domain.ErrNotFound
}

// mockIndexingService completes every run immediately.
type mockIndexingService struct {
	mu        sync.Mutex
	runs      map[string]domain.RunStatus
	history   []domain.RunStatus
	counts    domain.ItemCounts
	items     map[string]domain.ItemStatus
	last      *domain.RunStatus
	listeners []driving.Listener
	ran       []string
	purged    time.Duration
}

func (m *mockIndexingService) RunNow(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ran = append(m.ran, id)
	return nil
}

func (m *mockIndexingService) RunAndWait(_ context.Context, id string) (domain.RunStatus, error) {
	m.mu.Lock()
	m.ran = append(m.ran, id)
	listeners := slices.Clone(m.listeners)
	run, ok := m.runs[id]
	m.mu.Unlock()

	if !ok {
		now := time.Now()
		run = domain.RunStatus{SourceID: id, State: domain.RunCompleted, StartedAt: now, CompletedAt: now, Scanned: 3, New: 3}
	}
	for _, l := range listeners {
		l.OnRunStarted(id)
	}
	return run, nil
}

func (m *mockIndexingService) RunAll(_ context.Context) error { return nil }

func (m *mockIndexingService) IsRunning(_ string) bool { return false }

func (m *mockIndexingService) ItemCounts(_ context.Context, _ string) (domain.ItemCounts, error) {
	if m.counts == nil {
		return domain.NewItemCounts(), nil
	}
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
	if limit > 0 && len(m.history) > limit {
		return m.history[:limit], nil
	}
	return m.history, nil
}

func (m *mockIndexingService) LastSuccessfulRun(_ context.Context, _ string) (*domain.RunStatus, error) {
	return m.last, nil
}

func (m *mockIndexingService) PurgeTombstones(_ context.Context, _ string, olderThan time.Duration) (int, error) {
	m.purged = olderThan
	return 2, nil
}

func (m *mockIndexingService) AddListener(l driving.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *mockIndexingService) RemoveListener(l driving.Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = slices.DeleteFunc(m.listeners, func(x driving.Listener) bool { return x == l })
}

type mockSearchService struct {
	opts domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.opts = opts
	return []domain.SearchResult{{
		SourceID:   "notes",
		Path:       "/home/me/notes/plan.md",
		Title:      "Plan",
		ChunkIndex: 1,
		Snippet:    "migration plan for the storage layer",
		Score:      2.5,
	}}, nil
}

type mockSettingsService struct {
	settings domain.Settings
	set      map[string]string
}

func (m *mockSettingsService) Get() (domain.Settings, error) { return m.settings, nil }

func (m *mockSettingsService) Set(key, value string) error {
	if key == "bogus" {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string { return []string{"http.addr", "indexing.workers"} }

type mockWorkers struct {
	started, closed int
}

func (m *mockWorkers) Start(_ context.Context) error {
	m.started++
	return nil
}

func (m *mockWorkers) Close() error {
	m.closed++
	return nil
}

type testServices struct {
	sources  *mockSourceService
	indexing *mockIndexingService
	search   *mockSearchService
	settings *mockSettingsService
	workers  *mockWorkers
}

// setupTestServices installs mocks and returns them with a restore function.
func setupTestServices() (*testServices, func()) {
	old := App{
		Sources:   sourceService,
		Indexing:  indexingService,
		Search:    searchService,
		Settings:  settingsService,
		Scheduler: scheduler,
		Workers:   workers,
		Watcher:   watcher,
		Metrics:   metricsHandler,
		DataDir:   dataDir,
	}
	oldApp := app

	ts := &testServices{
		sources:  &mockSourceService{},
		indexing: &mockIndexingService{},
		search:   &mockSearchService{},
		settings: &mockSettingsService{settings: domain.DefaultSettings(), set: map[string]string{}},
		workers:  &mockWorkers{},
	}
	use(&App{
		Sources:  ts.sources,
		Indexing: ts.indexing,
		Search:   ts.search,
		Settings: ts.settings,
		Workers:  ts.workers,
	})
	return ts, func() {
		use(&old)
		app = oldApp
	}
}

// execute runs the root command with args and returns the combined output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}
