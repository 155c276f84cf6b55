package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
)

// Ensure StatusStore implements the interface.
var _ driven.StatusStore = (*StatusStore)(nil)

// StatusStore is an in-memory implementation of driven.StatusStore.
// Values are copied on the way in and out.
type StatusStore struct {
	mu           sync.RWMutex
	items        map[string]map[string]domain.ItemStatus
	runs         map[string][]domain.RunStatus
	historyLimit int
}

// NewStatusStore creates a status store that keeps at most historyLimit runs
// per source. A non-positive limit keeps every run.
func NewStatusStore(historyLimit int) *StatusStore {
	return &StatusStore{
		items:        make(map[string]map[string]domain.ItemStatus),
		runs:         make(map[string][]domain.RunStatus),
		historyLimit: historyLimit,
	}
}

// LoadItemStatuses returns a copy of the item statuses of a source.
func (s *StatusStore) LoadItemStatuses(_ context.Context, sourceID string) (map[string]*domain.ItemStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*domain.ItemStatus, len(s.items[sourceID]))
	for path, st := range s.items[sourceID] {
		cp := st
		out[path] = &cp
	}
	return out, nil
}

// SaveItemStatuses replaces the statuses of a source.
func (s *StatusStore) SaveItemStatuses(_ context.Context, sourceID string, statuses map[string]*domain.ItemStatus) error {
	next := make(map[string]domain.ItemStatus, len(statuses))
	for path, st := range statuses {
		if st == nil {
			continue
		}
		cp := *st
		cp.SourceID = sourceID
		cp.Path = path
		next[path] = cp
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sourceID] = next
	return nil
}

// GetItemStatus returns one item status.
func (s *StatusStore) GetItemStatus(_ context.Context, sourceID, path string) (*domain.ItemStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.items[sourceID][path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

// SaveRun inserts a run or replaces the stored run with the same ID.
func (s *StatusStore) SaveRun(_ context.Context, run domain.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := s.runs[run.SourceID]
	if i := slices.IndexFunc(runs, func(r domain.RunStatus) bool { return r.ID != "" && r.ID == run.ID }); i >= 0 {
		runs[i] = run
		return nil
	}
	runs = append(runs, run)
	sortNewestFirst(runs)
	if s.historyLimit > 0 && len(runs) > s.historyLimit {
		runs = runs[:s.historyLimit]
	}
	s.runs[run.SourceID] = runs
	return nil
}

// CountByState returns item counts with every state present.
func (s *StatusStore) CountByState(_ context.Context, sourceID string) (domain.ItemCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := domain.NewItemCounts()
	for _, st := range s.items[sourceID] {
		counts[st.State]++
	}
	return counts, nil
}

// LoadRuns returns up to limit runs, newest first.
func (s *StatusStore) LoadRuns(_ context.Context, sourceID string, limit int) ([]domain.RunStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := slices.Clone(s.runs[sourceID])
	sortNewestFirst(runs)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// LastSuccessfulRun returns the most recent completed run or nil.
func (s *StatusStore) LastSuccessfulRun(ctx context.Context, sourceID string) (*domain.RunStatus, error) {
	runs, err := s.LoadRuns(ctx, sourceID, 0)
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if r.State == domain.RunCompleted {
			return &r, nil
		}
	}
	return nil, nil
}

// PurgeTombstones removes deleted items whose DeletedAt is before olderThan.
func (s *StatusStore) PurgeTombstones(_ context.Context, sourceID string, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for path, st := range s.items[sourceID] {
		if st.State == domain.ItemDeleted && st.DeletedAt.Before(olderThan) {
			delete(s.items[sourceID], path)
			n++
		}
	}
	return n, nil
}

// DeleteSource drops every record of a source.
func (s *StatusStore) DeleteSource(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sourceID)
	delete(s.runs, sourceID)
	return nil
}

func sortNewestFirst(runs []domain.RunStatus) {
	slices.SortStableFunc(runs, func(a, b domain.RunStatus) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
}
