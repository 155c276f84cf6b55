package domain

import (
	"fmt"
	"time"
)

// ItemState is the lifecycle state of an indexed item.
type ItemState string

// Available item states.
const (
	ItemPending ItemState = "pending"
	ItemIndexed ItemState = "indexed"
	ItemSkipped ItemState = "skipped"
	ItemError   ItemState = "error"
	ItemDeleted ItemState = "deleted"
)

// ItemStates lists every state in display order.
var ItemStates = []ItemState{ItemPending, ItemIndexed, ItemSkipped, ItemError, ItemDeleted}

// IsValid returns true if the state is recognised.
func (s ItemState) IsValid() bool {
	switch s {
	case ItemPending, ItemIndexed, ItemSkipped, ItemError, ItemDeleted:
		return true
	default:
		return false
	}
}

// SchemaVersion is recorded on every successfully indexed item.
const SchemaVersion = 1

// ItemStatus is the bookkeeping record for one item of a source.
// There is at most one record per (SourceID, Path). Deleted items keep their
// record as a tombstone.
type ItemStatus struct {
	SourceID string
	Path     string
	State    ItemState

	// LastModified and Size are the values observed at the last successful scan.
	LastModified time.Time
	Size         int64

	// ContentHash is the hex sha256 of the processed bytes, when known.
	ContentHash string

	IndexedAt     time.Time
	SchemaVersion int
	ParserVersion string
	ChunkCount    int

	ErrorMessage string
	SkipReason   string
	ErrorCount   int

	DeletedAt time.Time
}

// NeedsReindex reports whether an item with the given modification time and
// size must be processed again.
//
// Items that were never indexed, or that produced no chunks, are always
// reprocessed so that extraction failures heal on a later run.
func (s *ItemStatus) NeedsReindex(modified time.Time, size int64) bool {
	if s.State != ItemIndexed {
		return true
	}
	if s.ChunkCount <= 0 {
		return true
	}
	return !modified.Equal(s.LastModified) || size != s.Size
}

// NeedsReindexByHash reports whether content with the given hash must be
// processed again.
func (s *ItemStatus) NeedsReindexByHash(hash string) bool {
	if s.State != ItemIndexed {
		return true
	}
	if s.ChunkCount <= 0 {
		return true
	}
	return s.ContentHash == "" || s.ContentHash != hash
}

// MarkIndexed records a successful processing result.
func (s *ItemStatus) MarkIndexed(at time.Time, chunks int, hash string) {
	s.State = ItemIndexed
	s.IndexedAt = at
	s.SchemaVersion = SchemaVersion
	s.ChunkCount = chunks
	s.ContentHash = hash
	s.ErrorMessage = ""
	s.ErrorCount = 0
	s.SkipReason = ""
	s.DeletedAt = time.Time{}
}

// MarkError records a failed processing attempt.
func (s *ItemStatus) MarkError(msg string) {
	s.State = ItemError
	s.ErrorMessage = msg
	s.ErrorCount++
}

// MarkSkipped records that the item was intentionally not processed.
func (s *ItemStatus) MarkSkipped(reason string) {
	s.State = ItemSkipped
	s.SkipReason = reason
}

// MarkDeleted turns the record into a tombstone.
func (s *ItemStatus) MarkDeleted(at time.Time) {
	s.State = ItemDeleted
	s.DeletedAt = at
}

// String returns a short human-readable form.
func (s ItemStatus) String() string {
	return fmt.Sprintf("[%s] %s (chunks: %d)", s.State, s.Path, s.ChunkCount)
}

// ItemCounts is the number of items per state for a source.
type ItemCounts map[ItemState]int

// NewItemCounts returns counts with every state present and zero.
func NewItemCounts() ItemCounts {
	c := make(ItemCounts, len(ItemStates))
	for _, s := range ItemStates {
		c[s] = 0
	}
	return c
}

// Total returns the sum over all states.
func (c ItemCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Live returns the number of items that are not tombstones.
func (c ItemCounts) Live() int {
	return c.Total() - c[ItemDeleted]
}
