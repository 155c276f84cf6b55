package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexer/internal/logger"
)

const (
	defaultProgressEvery = 500
	noProcessorReason    = "no content processor configured"
)

// Pipeline runs one incremental indexing pass over a source: scan, delta
// detection, processing of new and changed items, tombstoning of removed
// items and persistence of the status map and run record.
//
// A Pipeline holds no per-run state and may be shared, but the caller must
// not run the same source twice concurrently.
type Pipeline struct {
	scanners      *ScannerRegistry
	store         driven.StatusStore
	processor     driven.ContentProcessor
	now           func() time.Time
	progressEvery int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithClock overrides the clock used for deadlines and timestamps.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithProgressInterval sets how many scanned items pass between progress logs.
func WithProgressInterval(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.progressEvery = n
		}
	}
}

// NewPipeline creates a pipeline. The processor may be nil, in which case new
// and changed items are recorded as pending.
func NewPipeline(
	scanners *ScannerRegistry,
	store driven.StatusStore,
	processor driven.ContentProcessor,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		scanners:      scanners,
		store:         store,
		processor:     processor,
		now:           time.Now,
		progressEvery: defaultProgressEvery,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// runState carries the mutable state of one run.
type runState struct {
	source   domain.Source
	scanner  driven.Scanner
	statuses map[string]*domain.ItemStatus
	seen     map[string]struct{}
	run      domain.RunStatus
	deadline time.Time
	timedOut bool
}

// Run executes the pipeline for source and returns the final run record.
// Run never returns an error: run-level failures end the run in the failed
// state with LastError set, and cancellation of ctx ends it as cancelled.
func (p *Pipeline) Run(ctx context.Context, source domain.Source) domain.RunStatus {
	rs := &runState{
		source: source,
		seen:   make(map[string]struct{}),
		run: domain.RunStatus{
			ID:        uuid.NewString(),
			SourceID:  source.ID,
			StartedAt: p.now(),
			State:     domain.RunRunning,
		},
	}
	logger.Info("indexing: starting run for %s (%s)", source.Name, source.Kind)

	scanner, ok := p.scanners.Get(source.Kind)
	if !ok {
		return p.finish(ctx, rs, false, fmt.Errorf("%w: %s", domain.ErrNoScanner, source.Kind))
	}
	rs.scanner = scanner

	statuses, err := p.store.LoadItemStatuses(ctx, source.ID)
	if err != nil {
		return p.finish(ctx, rs, false, fmt.Errorf("load item statuses: %w", err))
	}
	if statuses == nil {
		statuses = make(map[string]*domain.ItemStatus)
	}
	rs.statuses = statuses

	runCtx := ctx
	if d := source.MaxDuration(); d > 0 {
		rs.deadline = rs.run.StartedAt.Add(d)
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	scanErr := p.scan(runCtx, rs)

	switch {
	case ctx.Err() != nil:
		rs.run.State = domain.RunCancelled
		rs.run.LastError = ctx.Err().Error()
	case scanErr != nil && errors.Is(scanErr, context.DeadlineExceeded) && runCtx.Err() != nil:
		rs.timedOut = true
		scanErr = nil
	}
	if rs.timedOut {
		logger.Info("indexing: max duration of %d min reached for %s; remaining items are picked up next run",
			source.MaxDurationMinutes, source.Name)
	}

	if rs.run.State == domain.RunRunning && scanErr == nil && !rs.timedOut {
		p.tombstone(ctx, rs)
	}
	return p.finish(ctx, rs, true, scanErr)
}

// scan consumes the scanner sequence. It returns the scanner's error, or the
// context error that interrupted processing of an item.
func (p *Pipeline) scan(ctx context.Context, rs *runState) error {
	for item, err := range rs.scanner.Scan(ctx, rs.source) {
		if err != nil {
			return err
		}
		rs.run.Scanned++
		rs.seen[item.Path] = struct{}{}

		if !rs.deadline.IsZero() && !p.now().Before(rs.deadline) {
			rs.timedOut = true
			return nil
		}

		if err := p.handleItem(ctx, rs, item); err != nil {
			return err
		}

		if rs.run.Scanned%p.progressEvery == 0 {
			logger.Info("indexing: progress %d items (new=%d changed=%d unchanged=%d)",
				rs.run.Scanned, rs.run.New, rs.run.Changed, rs.run.Unchanged)
		}
	}
	return nil
}

// handleItem applies the delta decision to one scanned item. Only context
// errors are returned; item-level failures are recorded on the item status.
func (p *Pipeline) handleItem(ctx context.Context, rs *runState, item domain.ScannedItem) error {
	if item.IsDir {
		rs.run.Skipped++
		return nil
	}

	prev, exists := rs.statuses[item.Path]

	if limit := rs.source.MaxFileSizeBytes; limit > 0 && item.Size > limit {
		p.skipOversize(ctx, rs, item, prev, limit)
		return nil
	}

	if !exists {
		rs.run.New++
		return p.processItem(ctx, rs, item, nil)
	}

	changed, content, err := p.detectChange(ctx, rs, prev, item)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rs.run.Changed++
		p.recordError(rs, item, fmt.Errorf("%w: %w", domain.ErrFetchContent, err))
		return nil
	}
	if !changed {
		rs.run.Unchanged++
		return nil
	}
	rs.run.Changed++
	return p.processItem(ctx, rs, item, content)
}

// detectChange evaluates the source's change detection mode against the
// prior status. When content had to be fetched for hashing it is returned so
// it is not read twice.
func (p *Pipeline) detectChange(
	ctx context.Context,
	rs *runState,
	prev *domain.ItemStatus,
	item domain.ScannedItem,
) (bool, []byte, error) {
	switch rs.source.ChangeDetection {
	case domain.ChangeDetectionContentHash:
		content, err := rs.scanner.FetchContent(ctx, rs.source, item.Path)
		if err != nil {
			return false, nil, err
		}
		if prev.NeedsReindexByHash(hashContent(content)) {
			return true, content, nil
		}
		prev.LastModified, prev.Size = item.LastModified, item.Size
		return false, nil, nil

	case domain.ChangeDetectionMtimeThenHash:
		if !prev.NeedsReindex(item.LastModified, item.Size) {
			return false, nil, nil
		}
		if prev.State != domain.ItemIndexed || prev.ChunkCount <= 0 || prev.ContentHash == "" {
			return true, nil, nil
		}
		content, err := rs.scanner.FetchContent(ctx, rs.source, item.Path)
		if err != nil {
			return false, nil, err
		}
		if prev.NeedsReindexByHash(hashContent(content)) {
			return true, content, nil
		}
		// Touched but identical: remember the new stats so the next run
		// does not hash again.
		prev.LastModified, prev.Size = item.LastModified, item.Size
		return false, nil, nil

	default:
		return prev.NeedsReindex(item.LastModified, item.Size), nil, nil
	}
}

// processItem fetches (unless content is given) and processes one item and
// records the outcome. If ctx ends while the item is in flight, the prior
// status is left untouched and the context error is returned.
func (p *Pipeline) processItem(ctx context.Context, rs *runState, item domain.ScannedItem, content []byte) error {
	next := p.workingCopy(rs, item)

	if p.processor == nil {
		next.State = domain.ItemPending
		next.SkipReason = noProcessorReason
		rs.statuses[item.Path] = next
		return nil
	}

	if content == nil {
		var err error
		content, err = rs.scanner.FetchContent(ctx, rs.source, item.Path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.recordError(rs, item, fmt.Errorf("%w: %w", domain.ErrFetchContent, err))
			return nil
		}
	}

	chunks, err := p.processor.Process(ctx, rs.source, item.Path, content, item.MIMEType)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.recordError(rs, item, err)
		return nil
	}

	next.MarkIndexed(p.now(), chunks, hashContent(content))
	rs.statuses[item.Path] = next
	logger.Debug("indexing: indexed %s (%d chunks)", item.Path, chunks)
	return nil
}

// workingCopy returns a copy of the item's status (or a new one) carrying the
// freshly scanned stats.
func (p *Pipeline) workingCopy(rs *runState, item domain.ScannedItem) *domain.ItemStatus {
	next := &domain.ItemStatus{
		SourceID: rs.source.ID,
		Path:     item.Path,
		State:    domain.ItemPending,
	}
	if prev, ok := rs.statuses[item.Path]; ok {
		cp := *prev
		next = &cp
	}
	next.LastModified = item.LastModified
	next.Size = item.Size
	return next
}

func (p *Pipeline) recordError(rs *runState, item domain.ScannedItem, err error) {
	next := p.workingCopy(rs, item)
	next.MarkError(err.Error())
	rs.statuses[item.Path] = next
	rs.run.Errored++
	logger.Warn("indexing: error processing %s: %v", item.Path, err)
}

func (p *Pipeline) skipOversize(
	ctx context.Context,
	rs *runState,
	item domain.ScannedItem,
	prev *domain.ItemStatus,
	limit int64,
) {
	if prev != nil && prev.State == domain.ItemIndexed {
		p.removeFromIndex(ctx, rs.source.ID, item.Path)
	}
	next := p.workingCopy(rs, item)
	next.MarkSkipped(fmt.Sprintf("size %d exceeds limit of %d bytes", item.Size, limit))
	next.ChunkCount = 0
	rs.statuses[item.Path] = next
	rs.run.Skipped++
}

// tombstone marks every previously known, unseen item as deleted.
func (p *Pipeline) tombstone(ctx context.Context, rs *runState) {
	for path, st := range rs.statuses {
		if _, ok := rs.seen[path]; ok || st.State == domain.ItemDeleted {
			continue
		}
		st.MarkDeleted(p.now())
		p.removeFromIndex(ctx, rs.source.ID, path)
		rs.run.Deleted++
	}
}

func (p *Pipeline) removeFromIndex(ctx context.Context, sourceID, path string) {
	if p.processor == nil {
		return
	}
	if err := p.processor.RemoveFromIndex(ctx, driven.DocumentID(sourceID, path)); err != nil {
		logger.Warn("indexing: error removing %s from index: %v", path, err)
	}
}

// finish persists the status map (when loaded) and the run record.
func (p *Pipeline) finish(ctx context.Context, rs *runState, saveStatuses bool, runErr error) domain.RunStatus {
	saveCtx := context.WithoutCancel(ctx)

	if runErr != nil && rs.run.State == domain.RunRunning {
		rs.run.State = domain.RunFailed
		rs.run.LastError = runErr.Error()
	}
	rs.run.TimedOut = rs.timedOut

	if saveStatuses {
		if err := p.store.SaveItemStatuses(saveCtx, rs.source.ID, rs.statuses); err != nil {
			rs.run.State = domain.RunFailed
			rs.run.LastError = fmt.Sprintf("save item statuses: %v", err)
		}
	}

	if rs.run.State == domain.RunRunning {
		rs.run.State = domain.RunCompleted
	}
	rs.run.CompletedAt = p.now()

	if err := p.store.SaveRun(saveCtx, rs.run); err != nil {
		logger.Error("indexing: failed to save run %s: %v", rs.run.ID, err)
	}

	if rs.run.State == domain.RunCompleted {
		logger.Info("indexing: run completed: %s", rs.run)
	} else {
		logger.Warn("indexing: run %s for %s: %s", rs.run.State, rs.source.Name, rs.run.LastError)
	}
	return rs.run
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
