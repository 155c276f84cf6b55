package driven

import (
	"context"
	"iter"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// Scanner enumerates the items of a source. One scanner serves every source
// of its Kind.
type Scanner interface {
	// Kind returns the source kind this scanner handles.
	Kind() domain.SourceKind

	// Scan lazily yields the items currently in scope. The sequence is
	// single-pass; stopping iteration early must release any resources.
	// A non-nil error ends the scan. When ctx is done the scanner should stop
	// and yield ctx.Err().
	Scan(ctx context.Context, source domain.Source) iter.Seq2[domain.ScannedItem, error]

	// FetchContent returns the raw bytes of an item previously yielded by Scan.
	FetchContent(ctx context.Context, source domain.Source, path string) ([]byte, error)
}
