package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/logger"
)

// Default watcher tuning.
const (
	DefaultDebounce    = 5 * time.Second
	DefaultMinInterval = 30 * time.Second
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long a source must be quiet before it is triggered.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithMinInterval sets the minimum time between two triggers of one source.
func WithMinInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.minInterval = d
		}
	}
}

// Watcher requests runs for local sources whose files change. Bursts of
// events are collapsed by a per-source debounce timer, and each source is
// rate limited so a busy tree cannot trigger back-to-back runs.
type Watcher struct {
	trigger     func(sourceID string) error
	debounce    time.Duration
	minInterval time.Duration

	mu       sync.Mutex
	roots    map[string]watchedRoot // absolute root -> source
	timers   map[string]*time.Timer
	limiters map[string]*rate.Limiter
	fsw      *fsnotify.Watcher
	stopped  bool
}

type watchedRoot struct {
	sourceID string
	source   domain.Source
}

// NewWatcher creates a watcher that calls trigger with the ID of a changed
// source. A trigger that fails with domain.ErrRunInProgress is retried after
// another debounce period so changes made during a run are not lost.
func NewWatcher(trigger func(sourceID string) error, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		trigger:     trigger,
		debounce:    DefaultDebounce,
		minInterval: DefaultMinInterval,
		roots:       make(map[string]watchedRoot),
		timers:      make(map[string]*time.Timer),
		limiters:    make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the scope paths of every enabled local source with Watch set
// and blocks until ctx is done. Sources without watchable roots are ignored.
func (w *Watcher) Run(ctx context.Context, sources []domain.Source) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	w.mu.Lock()
	w.fsw = fsw
	w.stopped = false
	w.mu.Unlock()

	watched := 0
	for _, src := range sources {
		if !src.Enabled || !src.Watch || src.Kind != domain.SourceKindLocal {
			continue
		}
		for _, root := range src.ScopePaths {
			abs, err := filepath.Abs(root)
			if err != nil {
				continue
			}
			if err := w.addTree(abs, src); err != nil {
				logger.Warn("watch: %s: %v", abs, err)
				continue
			}
			watched++
		}
	}
	logger.Debug("watch: watching %d roots", watched)

	defer w.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)
		}
	}
}

// addTree registers root for src and adds every visible directory below it.
func (w *Watcher) addTree(root string, src domain.Source) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory", domain.ErrInvalidInput)
	}

	w.mu.Lock()
	w.roots[root] = watchedRoot{sourceID: src.ID, source: src}
	w.mu.Unlock()

	return w.addDirs(root, root, src)
}

func (w *Watcher) addDirs(root, dir string, src domain.Source) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			rel := filepath.ToSlash(strings.TrimPrefix(path, root+string(filepath.Separator)))
			if isHidden(d.Name()) || excluded(src.ExcludePatterns, rel, true) {
				return filepath.SkipDir
			}
		}
		if err := w.fsw.Add(path); err != nil {
			logger.Debug("watch: cannot add %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	root, wr, ok := w.rootFor(event.Name)
	if !ok {
		return
	}
	rel := filepath.ToSlash(strings.TrimPrefix(event.Name, root+string(filepath.Separator)))
	if isHidden(rel) {
		return
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}
	if excluded(wr.source.ExcludePatterns, rel, isDir) {
		return
	}
	if isDir && event.Has(fsnotify.Create) {
		if err := w.addDirs(root, event.Name, wr.source); err != nil {
			logger.Debug("watch: cannot add %s: %v", event.Name, err)
		}
	}
	if !isDir && event.Has(fsnotify.Create|fsnotify.Write) && !included(wr.source.IncludePatterns, filepath.Base(event.Name)) {
		return
	}

	w.schedule(wr.sourceID)
}

// rootFor returns the longest watched root containing path.
func (w *Watcher) rootFor(path string) (string, watchedRoot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var (
		best  string
		found watchedRoot
	)
	for root, wr := range w.roots {
		if strings.HasPrefix(path, root+string(filepath.Separator)) && len(root) > len(best) {
			best, found = root, wr
		}
	}
	return best, found, best != ""
}

// schedule (re)starts the debounce timer of a source.
func (w *Watcher) schedule(sourceID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if t, ok := w.timers[sourceID]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[sourceID] = time.AfterFunc(w.debounce, func() { w.fire(sourceID) })
}

func (w *Watcher) fire(sourceID string) {
	w.mu.Lock()
	lim, ok := w.limiters[sourceID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(w.minInterval), 1)
		w.limiters[sourceID] = lim
	}
	if lim.Tokens() < 1 {
		// Try again once the limiter admits another run.
		r := lim.Reserve()
		delay := r.Delay()
		r.Cancel()
		if t, ok := w.timers[sourceID]; ok {
			t.Reset(delay)
		}
		w.mu.Unlock()
		return
	}
	delete(w.timers, sourceID)
	w.mu.Unlock()

	logger.Debug("watch: changes in source %s", sourceID)
	err := w.trigger(sourceID)
	switch {
	case err == nil:
		// Only a started run uses up the rate limit.
		lim.Allow()
	case errors.Is(err, domain.ErrRunInProgress):
		logger.Debug("watch: source %s busy, retrying", sourceID)
		w.schedule(sourceID)
	default:
		logger.Warn("watch: trigger %s: %v", sourceID, err)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
}
