package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-indexer/internal/logger"
)

// Ensure IndexingService implements the interface.
var _ driving.IndexingService = (*IndexingService)(nil)

// job is one unit of work for the worker pool.
type job struct {
	sourceID string
	all      bool
	done     chan domain.RunStatus
}

// IndexingService queues pipeline runs onto a bounded worker pool.
//
// A source is never run twice at the same time: RunNow refuses a source that
// is already queued or running. With the default of one worker every run in
// the process is serialised.
type IndexingService struct {
	sources  driven.SourceStore
	store    driven.StatusStore
	pipeline *Pipeline
	workers  int
	jobs     chan job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]struct{}
	started bool
	closed  bool

	listenersMu sync.RWMutex
	listeners   []driving.Listener
}

// NewIndexingService creates the service. Call Start to launch the workers.
func NewIndexingService(
	sources driven.SourceStore,
	store driven.StatusStore,
	pipeline *Pipeline,
	settings domain.Settings,
) *IndexingService {
	workers := settings.Workers
	if workers <= 0 {
		workers = 1
	}
	queue := settings.QueueSize
	if queue <= 0 {
		queue = domain.DefaultSettings().QueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &IndexingService{
		sources:  sources,
		store:    store,
		pipeline: pipeline,
		workers:  workers,
		jobs:     make(chan job, queue),
		ctx:      ctx,
		cancel:   cancel,
		running:  make(map[string]struct{}),
	}
}

// Start launches the worker pool. Workers stop when ctx is cancelled or
// Close is called; an in-flight run is cancelled and persists what it has.
func (s *IndexingService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrServiceClosed
	}
	if s.started {
		return nil
	}
	s.started = true

	context.AfterFunc(ctx, s.cancel)
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	logger.Debug("indexing: started %d worker(s)", s.workers)
	return nil
}

// Close cancels in-flight runs and waits for the workers to exit.
func (s *IndexingService) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

// RunNow queues a run for one source and returns immediately.
func (s *IndexingService) RunNow(ctx context.Context, sourceID string) error {
	_, err := s.submit(ctx, sourceID, false)
	return err
}

// RunAndWait queues a run for one source and waits for its result.
func (s *IndexingService) RunAndWait(ctx context.Context, sourceID string) (domain.RunStatus, error) {
	done, err := s.submit(ctx, sourceID, true)
	if err != nil {
		return domain.RunStatus{}, err
	}
	select {
	case run := <-done:
		return run, nil
	case <-ctx.Done():
		return domain.RunStatus{}, ctx.Err()
	case <-s.ctx.Done():
		return domain.RunStatus{}, domain.ErrServiceClosed
	}
}

// RunAll queues one job that runs every enabled source in turn. Sources that
// are already queued or running are skipped.
func (s *IndexingService) RunAll(ctx context.Context) error {
	return s.enqueue(ctx, job{all: true})
}

func (s *IndexingService) submit(ctx context.Context, sourceID string, wait bool) (chan domain.RunStatus, error) {
	if _, err := s.sources.Get(ctx, sourceID); err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	if !s.markRunning(sourceID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunInProgress, sourceID)
	}

	j := job{sourceID: sourceID}
	if wait {
		j.done = make(chan domain.RunStatus, 1)
	}
	if err := s.enqueue(ctx, j); err != nil {
		s.unmarkRunning(sourceID)
		return nil, err
	}
	return j.done, nil
}

func (s *IndexingService) enqueue(ctx context.Context, j job) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return domain.ErrServiceClosed
	}

	select {
	case s.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return domain.ErrServiceClosed
	}
}

func (s *IndexingService) markRunning(sourceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.running[sourceID]; busy {
		return false
	}
	s.running[sourceID] = struct{}{}
	return true
}

func (s *IndexingService) unmarkRunning(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, sourceID)
}

// IsRunning reports whether a run for the source is queued or in progress.
func (s *IndexingService) IsRunning(sourceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[sourceID]
	return ok
}

func (s *IndexingService) worker() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case j := <-s.jobs:
			if j.all {
				s.runAll()
				continue
			}
			s.runQueued(j)
		}
	}
}

func (s *IndexingService) runQueued(j job) {
	defer s.unmarkRunning(j.sourceID)

	source, err := s.sources.Get(s.ctx, j.sourceID)
	if err != nil {
		msg := fmt.Sprintf("get source: %v", err)
		logger.Warn("indexing: %s", msg)
		s.notifyFailed(j.sourceID, msg)
		if j.done != nil {
			j.done <- domain.RunStatus{SourceID: j.sourceID, State: domain.RunFailed, LastError: msg}
		}
		return
	}

	run := s.execute(*source)
	if j.done != nil {
		j.done <- run
	}
}

func (s *IndexingService) runAll() {
	sources, err := s.sources.List(s.ctx)
	if err != nil {
		logger.Error("indexing: list sources: %v", err)
		return
	}
	for _, source := range sources {
		if s.ctx.Err() != nil {
			return
		}
		if !source.Enabled {
			continue
		}
		if !s.markRunning(source.ID) {
			logger.Debug("indexing: %s already in flight, skipped", source.Name)
			continue
		}
		s.execute(source)
		s.unmarkRunning(source.ID)
	}
}

// execute runs the pipeline and notifies listeners.
func (s *IndexingService) execute(source domain.Source) domain.RunStatus {
	s.notifyStarted(source.ID)
	run := s.pipeline.Run(s.ctx, source)
	if run.State == domain.RunCompleted {
		s.notifyCompleted(source.ID, run)
	} else {
		s.notifyFailed(source.ID, run.LastError)
	}
	return run
}

// AddListener registers a listener for run events.
func (s *IndexingService) AddListener(l driving.Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// RemoveListener unregisters a listener.
func (s *IndexingService) RemoveListener(l driving.Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = slices.DeleteFunc(s.listeners, func(x driving.Listener) bool { return x == l })
}

func (s *IndexingService) snapshotListeners() []driving.Listener {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()
	return slices.Clone(s.listeners)
}

func (s *IndexingService) notifyStarted(sourceID string) {
	for _, l := range s.snapshotListeners() {
		safeNotify("started", func() { l.OnRunStarted(sourceID) })
	}
}

func (s *IndexingService) notifyCompleted(sourceID string, run domain.RunStatus) {
	for _, l := range s.snapshotListeners() {
		safeNotify("completed", func() { l.OnRunCompleted(sourceID, run) })
	}
}

func (s *IndexingService) notifyFailed(sourceID, msg string) {
	for _, l := range s.snapshotListeners() {
		safeNotify("failed", func() { l.OnRunFailed(sourceID, msg) })
	}
}

// safeNotify calls fn and logs a panic instead of letting it reach the worker.
func safeNotify(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("indexing: listener panicked on %s event: %v", event, r)
		}
	}()
	fn()
}

// ItemCounts returns item counts per state for a source.
func (s *IndexingService) ItemCounts(ctx context.Context, sourceID string) (domain.ItemCounts, error) {
	return s.store.CountByState(ctx, sourceID)
}

// ItemStatus returns the bookkeeping record of a single item.
func (s *IndexingService) ItemStatus(ctx context.Context, sourceID, path string) (*domain.ItemStatus, error) {
	return s.store.GetItemStatus(ctx, sourceID, path)
}

// RunHistory returns up to limit runs of a source, newest first.
func (s *IndexingService) RunHistory(ctx context.Context, sourceID string, limit int) ([]domain.RunStatus, error) {
	return s.store.LoadRuns(ctx, sourceID, limit)
}

// LastSuccessfulRun returns the most recent completed run or nil.
func (s *IndexingService) LastSuccessfulRun(ctx context.Context, sourceID string) (*domain.RunStatus, error) {
	return s.store.LastSuccessfulRun(ctx, sourceID)
}

// PurgeTombstones removes deleted-item records older than the given age.
func (s *IndexingService) PurgeTombstones(ctx context.Context, sourceID string, olderThan time.Duration) (int, error) {
	if olderThan < 0 {
		return 0, fmt.Errorf("%w: negative age", domain.ErrInvalidInput)
	}
	if s.IsRunning(sourceID) {
		return 0, fmt.Errorf("%w: %s", domain.ErrRunInProgress, sourceID)
	}
	n, err := s.store.PurgeTombstones(ctx, sourceID, time.Now().Add(-olderThan))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}
	return n, nil
}
