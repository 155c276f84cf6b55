package services

import (
	"context"
	"errors"
	"iter"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

// --- Mock implementations for pipeline and service testing ---

var (
	_ driven.StatusStore      = (*mockStatusStore)(nil)
	_ driven.Scanner          = (*mockScanner)(nil)
	_ driven.ContentProcessor = (*mockProcessor)(nil)
	_ driven.SourceStore      = (*mockSourceStore)(nil)
)

// mockStatusStore keeps item statuses and runs in memory.
type mockStatusStore struct {
	mu       sync.RWMutex
	items    map[string]map[string]domain.ItemStatus
	runs     map[string][]domain.RunStatus
	loadErr  error
	saveErr  error
	saveRuns int
}

func newMockStatusStore() *mockStatusStore {
	return &mockStatusStore{
		items: make(map[string]map[string]domain.ItemStatus),
		runs:  make(map[string][]domain.RunStatus),
	}
}

func (m *mockStatusStore) seed(sourceID string, statuses ...domain.ItemStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[sourceID] == nil {
		m.items[sourceID] = make(map[string]domain.ItemStatus)
	}
	for _, st := range statuses {
		st.SourceID = sourceID
		m.items[sourceID][st.Path] = st
	}
}

func (m *mockStatusStore) item(sourceID, path string) domain.ItemStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.items[sourceID][path]
}

func (m *mockStatusStore) LoadItemStatuses(_ context.Context, sourceID string) (map[string]*domain.ItemStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]*domain.ItemStatus, len(m.items[sourceID]))
	for path, st := range m.items[sourceID] {
		cp := st
		out[path] = &cp
	}
	return out, nil
}

func (m *mockStatusStore) SaveItemStatuses(_ context.Context, sourceID string, statuses map[string]*domain.ItemStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	next := make(map[string]domain.ItemStatus, len(statuses))
	for path, st := range statuses {
		next[path] = *st
	}
	m.items[sourceID] = next
	return nil
}

func (m *mockStatusStore) GetItemStatus(_ context.Context, sourceID, path string) (*domain.ItemStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.items[sourceID][path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

func (m *mockStatusStore) SaveRun(_ context.Context, run domain.RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveRuns++
	m.runs[run.SourceID] = append(m.runs[run.SourceID], run)
	return nil
}

func (m *mockStatusStore) CountByState(_ context.Context, sourceID string) (domain.ItemCounts, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := domain.NewItemCounts()
	for _, st := range m.items[sourceID] {
		counts[st.State]++
	}
	return counts, nil
}

func (m *mockStatusStore) LoadRuns(_ context.Context, sourceID string, limit int) ([]domain.RunStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := append([]domain.RunStatus(nil), m.runs[sourceID]...)
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *mockStatusStore) LastSuccessfulRun(ctx context.Context, sourceID string) (*domain.RunStatus, error) {
	runs, _ := m.LoadRuns(ctx, sourceID, 0)
	for _, r := range runs {
		if r.State == domain.RunCompleted {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *mockStatusStore) PurgeTombstones(_ context.Context, sourceID string, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for path, st := range m.items[sourceID] {
		if st.State == domain.ItemDeleted && st.DeletedAt.Before(olderThan) {
			delete(m.items[sourceID], path)
			n++
		}
	}
	return n, nil
}

func (m *mockStatusStore) DeleteSource(_ context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, sourceID)
	delete(m.runs, sourceID)
	return nil
}

func (m *mockStatusStore) runCount(sourceID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs[sourceID])
}

// mockScanner yields a fixed list of items.
type mockScanner struct {
	kind     domain.SourceKind
	mu       sync.Mutex
	items    []domain.ScannedItem
	content  map[string][]byte
	fetchErr map[string]error
	scanErr  error
	// onYield runs before each item is yielded.
	onYield func(i int)
	// block makes Scan wait for ctx after yielding all items.
	block   bool
	fetches int
}

func newMockScanner(items ...domain.ScannedItem) *mockScanner {
	return &mockScanner{
		kind:     domain.SourceKindLocal,
		items:    items,
		content:  make(map[string][]byte),
		fetchErr: make(map[string]error),
	}
}

func (m *mockScanner) Kind() domain.SourceKind { return m.kind }

func (m *mockScanner) setItems(items ...domain.ScannedItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}

func (m *mockScanner) Scan(ctx context.Context, _ domain.Source) iter.Seq2[domain.ScannedItem, error] {
	m.mu.Lock()
	items := append([]domain.ScannedItem(nil), m.items...)
	m.mu.Unlock()
	return func(yield func(domain.ScannedItem, error) bool) {
		for i, item := range items {
			if m.onYield != nil {
				m.onYield(i)
			}
			if err := ctx.Err(); err != nil {
				yield(domain.ScannedItem{}, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
		if m.scanErr != nil {
			yield(domain.ScannedItem{}, m.scanErr)
			return
		}
		if m.block {
			<-ctx.Done()
			yield(domain.ScannedItem{}, ctx.Err())
		}
	}
}

func (m *mockScanner) FetchContent(ctx context.Context, _ domain.Source, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.fetchErr[path]; err != nil {
		return nil, err
	}
	if c, ok := m.content[path]; ok {
		return c, nil
	}
	return []byte("content of " + path), nil
}

// mockProcessor records calls and returns a fixed chunk count.
type mockProcessor struct {
	mu        sync.Mutex
	chunks    int
	err       error
	removeErr error
	processed []string
	removed   []string
	// hook runs inside Process before returning.
	hook func(ctx context.Context) error
}

func newMockProcessor(chunks int) *mockProcessor {
	return &mockProcessor{chunks: chunks}
}

func (m *mockProcessor) Process(ctx context.Context, _ domain.Source, path string, _ []byte, _ string) (int, error) {
	if m.hook != nil {
		if err := m.hook(ctx); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed = append(m.processed, path)
	if m.err != nil {
		return 0, m.err
	}
	return m.chunks, nil
}

func (m *mockProcessor) RemoveFromIndex(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, documentID)
	return m.removeErr
}

func (m *mockProcessor) processedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.processed...)
}

func (m *mockProcessor) removedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

// mockSourceStore implements driven.SourceStore for testing.
type mockSourceStore struct {
	mu      sync.RWMutex
	sources map[string]domain.Source
	saveErr error
}

func newMockSourceStore(sources ...domain.Source) *mockSourceStore {
	m := &mockSourceStore{sources: make(map[string]domain.Source)}
	for _, s := range sources {
		m.sources[s.ID] = s
	}
	return m
}

func (m *mockSourceStore) Save(_ context.Context, source domain.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.sources[source.ID] = source.Clone()
	return nil
}

func (m *mockSourceStore) Get(_ context.Context, id string) (*domain.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sources[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *mockSourceStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.sources, id)
	return nil
}

func (m *mockSourceStore) List(_ context.Context) ([]domain.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.sources))
	for k := range maps.Keys(m.sources) {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.Source, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.sources[k])
	}
	return out, nil
}

var errBoom = errors.New("boom")

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
