package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-indexer/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler decides when sources are due and submits them to the indexing
// service. It never runs the pipeline itself.
type Scheduler struct {
	sources driven.SourceStore
	store   driven.StatusStore
	indexer driving.IndexingService
	tick    time.Duration
	catchUp bool
	now     func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler using the tick interval and daily
// catch-up policy from settings.
func NewScheduler(
	sources driven.SourceStore,
	store driven.StatusStore,
	indexer driving.IndexingService,
	settings domain.Settings,
) *Scheduler {
	tick := settings.TickInterval
	if tick <= 0 {
		tick = time.Minute
	}
	return &Scheduler{
		sources: sources,
		store:   store,
		indexer: indexer,
		tick:    tick,
		catchUp: settings.CatchUpDaily,
		now:     time.Now,
	}
}

// Start triggers on-startup sources and then checks for due sources on
// every tick. This method blocks until Stop is called or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.runStartupSources(ctx)
	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	s.checkDueSources(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.checkDueSources(ctx)
		}
	}
}

func (s *Scheduler) runStartupSources(ctx context.Context) {
	sources, err := s.sources.List(ctx)
	if err != nil {
		logger.Error("scheduler: failed to list sources: %v", err)
		return
	}
	for _, src := range sources {
		if src.Enabled && src.Schedule == domain.ScheduleOnStartup {
			s.trigger(ctx, src)
		}
	}
}

// checkDueSources submits every enabled source whose schedule is due.
func (s *Scheduler) checkDueSources(ctx context.Context) {
	sources, err := s.sources.List(ctx)
	if err != nil {
		logger.Error("scheduler: failed to list sources: %v", err)
		return
	}

	now := s.now()
	for _, src := range sources {
		if !src.Enabled || s.indexer.IsRunning(src.ID) {
			continue
		}
		due, err := s.isDue(ctx, src, now)
		if err != nil {
			logger.Warn("scheduler: failed to evaluate %s: %v", src.Name, err)
			continue
		}
		if due {
			s.trigger(ctx, src)
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context, src domain.Source) {
	err := s.indexer.RunNow(ctx, src.ID)
	switch {
	case err == nil:
		logger.Info("scheduler: triggered run for %s", src.Name)
	case errors.Is(err, domain.ErrRunInProgress):
		logger.Debug("scheduler: %s already running", src.Name)
	default:
		logger.Warn("scheduler: failed to trigger %s: %v", src.Name, err)
	}
}

func (s *Scheduler) isDue(ctx context.Context, src domain.Source, now time.Time) (bool, error) {
	switch src.Schedule {
	case domain.ScheduleInterval:
		last, err := s.store.LastSuccessfulRun(ctx, src.ID)
		if err != nil {
			return false, err
		}
		return IntervalDue(src, last, now), nil
	case domain.ScheduleDaily:
		runs, err := s.store.LoadRuns(ctx, src.ID, 1)
		if err != nil {
			return false, err
		}
		var last *domain.RunStatus
		if len(runs) > 0 {
			last = &runs[0]
		}
		return DailyDue(src, last, now, s.catchUp), nil
	default:
		return false, nil
	}
}

// IntervalDue reports whether an interval source is due: it has never
// completed a run, or its last completed run ended at least one interval ago.
func IntervalDue(src domain.Source, lastSuccess *domain.RunStatus, now time.Time) bool {
	if lastSuccess == nil || lastSuccess.CompletedAt.IsZero() {
		return true
	}
	return now.Sub(lastSuccess.CompletedAt) >= src.Interval()
}

// DailyDue reports whether a daily source is due. It is due in the minute
// matching StartHour:StartMinute unless a run already started that calendar
// day. With catchUp, any later minute of the same day also qualifies.
func DailyDue(src domain.Source, lastRun *domain.RunStatus, now time.Time, catchUp bool) bool {
	if lastRun != nil && sameDay(lastRun.StartedAt.In(now.Location()), now) {
		return false
	}
	if now.Hour() == src.StartHour && now.Minute() == src.StartMinute {
		return true
	}
	if !catchUp {
		return false
	}
	return now.Hour()*60+now.Minute() > src.StartHour*60+src.StartMinute
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
