package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
)

// recordingListener collects events in order.
type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingListener) OnRunStarted(sourceID string) { l.add("started:" + sourceID) }

func (l *recordingListener) OnRunCompleted(sourceID string, _ domain.RunStatus) {
	l.add("completed:" + sourceID)
}

func (l *recordingListener) OnRunFailed(sourceID string, _ string) { l.add("failed:" + sourceID) }

func (l *recordingListener) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *recordingListener) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func newTestService(t *testing.T, scanner *mockScanner, proc *mockProcessor, sources ...domain.Source) (*IndexingService, *mockStatusStore) {
	t.Helper()
	store := newMockStatusStore()
	pipeline := NewPipeline(NewScannerRegistry(scanner), store, proc)
	svc := NewIndexingService(newMockSourceStore(sources...), store, pipeline, domain.DefaultSettings())
	t.Cleanup(func() { _ = svc.Close() })
	return svc, store
}

func namedSource(id string) domain.Source {
	return domain.NewSource(id, domain.SourceKindLocal, "source "+id)
}

func TestIndexingService_RunAndWait(t *testing.T) {
	scanner := newMockScanner(file("a", baseTime, 1))
	svc, store := newTestService(t, scanner, newMockProcessor(1), namedSource("s1"))
	listener := &recordingListener{}
	svc.AddListener(listener)
	require.NoError(t, svc.Start(context.Background()))

	run, err := svc.RunAndWait(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.State)
	assert.Equal(t, 1, run.New)
	assert.Equal(t, []string{"started:s1", "completed:s1"}, listener.snapshot())
	assert.False(t, svc.IsRunning("s1"))

	counts, err := svc.ItemCounts(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.ItemIndexed])
	assert.Equal(t, 0, counts[domain.ItemError])

	history, err := svc.RunHistory(context.Background(), "s1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	last, err := svc.LastSuccessfulRun(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, run.ID, last.ID)

	st, err := svc.ItemStatus(context.Background(), "s1", "a")
	require.NoError(t, err)
	assert.Equal(t, domain.ItemIndexed, st.State)
	assert.Equal(t, 1, store.runCount("s1"))
}

func TestIndexingService_RunNow_UnknownSource(t *testing.T) {
	svc, _ := newTestService(t, newMockScanner(), newMockProcessor(1))

	err := svc.RunNow(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIndexingService_RunNow_RejectsDuplicate(t *testing.T) {
	scanner := newMockScanner(file("a", baseTime, 1))
	proc := newMockProcessor(1)
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	proc.hook = func(context.Context) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}
	svc, _ := newTestService(t, scanner, proc, namedSource("s1"))
	require.NoError(t, svc.Start(context.Background()))

	require.NoError(t, svc.RunNow(context.Background(), "s1"))
	<-started
	assert.True(t, svc.IsRunning("s1"))

	err := svc.RunNow(context.Background(), "s1")
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	close(release)
	assert.Eventually(t, func() bool { return !svc.IsRunning("s1") }, 2*time.Second, 10*time.Millisecond)
}

func TestIndexingService_SingleWorkerSerialisesRuns(t *testing.T) {
	scanner := newMockScanner(file("a", baseTime, 1))
	proc := newMockProcessor(1)
	var mu sync.Mutex
	active, maxActive := 0, 0
	proc.hook = func(context.Context) error {
		mu.Lock()
		active++
		if active > maxActive {
			maxActive = active
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return nil
	}
	svc, _ := newTestService(t, scanner, proc, namedSource("s1"), namedSource("s2"), namedSource("s3"))
	require.NoError(t, svc.Start(context.Background()))

	var wg sync.WaitGroup
	for _, id := range []string{"s1", "s2", "s3"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run, err := svc.RunAndWait(context.Background(), id)
			assert.NoError(t, err)
			assert.Equal(t, domain.RunCompleted, run.State)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
}

func TestIndexingService_RunAll(t *testing.T) {
	disabled := namedSource("s2")
	disabled.Enabled = false
	scanner := newMockScanner(file("a", baseTime, 1))
	svc, store := newTestService(t, scanner, newMockProcessor(1), namedSource("s1"), disabled, namedSource("s3"))

	done := make(chan string, 3)
	svc.AddListener(&driving.ListenerFuncs{
		Completed: func(sourceID string, _ domain.RunStatus) { done <- sourceID },
	})
	require.NoError(t, svc.Start(context.Background()))

	require.NoError(t, svc.RunAll(context.Background()))

	got := []string{<-done, <-done}
	assert.Equal(t, []string{"s1", "s3"}, got)
	assert.Zero(t, store.runCount("s2"))
}

func TestIndexingService_FailedRunNotifiesFailure(t *testing.T) {
	src := namedSource("s1")
	src.Kind = domain.SourceKindWeb
	svc, _ := newTestService(t, newMockScanner(), newMockProcessor(1), src)

	failed := make(chan string, 1)
	svc.AddListener(&driving.ListenerFuncs{
		Failed: func(_ string, msg string) { failed <- msg },
	})
	require.NoError(t, svc.Start(context.Background()))

	run, err := svc.RunAndWait(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.State)
	assert.Contains(t, <-failed, domain.ErrNoScanner.Error())
}

func TestIndexingService_ListenerPanicIsIsolated(t *testing.T) {
	svc, _ := newTestService(t, newMockScanner(file("a", baseTime, 1)), newMockProcessor(1), namedSource("s1"))
	svc.AddListener(&driving.ListenerFuncs{
		Started: func(string) { panic("listener bug") },
	})
	second := &recordingListener{}
	svc.AddListener(second)
	require.NoError(t, svc.Start(context.Background()))

	run, err := svc.RunAndWait(context.Background(), "s1")

	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.State)
	assert.Equal(t, []string{"started:s1", "completed:s1"}, second.snapshot())
}

func TestIndexingService_RemoveListener(t *testing.T) {
	svc, _ := newTestService(t, newMockScanner(), newMockProcessor(1), namedSource("s1"))
	l := &recordingListener{}
	svc.AddListener(l)
	svc.RemoveListener(l)
	require.NoError(t, svc.Start(context.Background()))

	_, err := svc.RunAndWait(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, l.snapshot())
}

func TestIndexingService_CloseCancelsInFlightRun(t *testing.T) {
	scanner := newMockScanner(file("a", baseTime, 1))
	scanner.block = true
	svc, store := newTestService(t, scanner, newMockProcessor(1), namedSource("s1"))
	require.NoError(t, svc.Start(context.Background()))

	require.NoError(t, svc.RunNow(context.Background(), "s1"))
	assert.Eventually(t, func() bool {
		scanner.mu.Lock()
		defer scanner.mu.Unlock()
		return scanner.fetches > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Close())

	runs, err := store.LoadRuns(context.Background(), "s1", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunCancelled, runs[0].State)

	assert.ErrorIs(t, svc.RunNow(context.Background(), "s1"), domain.ErrServiceClosed)
}

func TestIndexingService_PurgeTombstones(t *testing.T) {
	svc, store := newTestService(t, newMockScanner(), newMockProcessor(1), namedSource("s1"))
	old := domain.ItemStatus{Path: "old", State: domain.ItemDeleted, DeletedAt: time.Now().Add(-48 * time.Hour)}
	recent := domain.ItemStatus{Path: "recent", State: domain.ItemDeleted, DeletedAt: time.Now()}
	store.seed("s1", old, recent)

	n, err := svc.PurgeTombstones(context.Background(), "s1", 24*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = store.GetItemStatus(context.Background(), "s1", "old")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.PurgeTombstones(context.Background(), "s1", -time.Hour)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
