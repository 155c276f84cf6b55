package driven

import (
	"context"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// ChunkSearcher queries indexed chunks by keyword.
type ChunkSearcher interface {
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}

// ChunkStore persists the chunks of indexed documents.
type ChunkStore interface {
	// ReplaceDocument swaps every chunk of a document for chunks in one step.
	ReplaceDocument(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// DeleteDocument removes every chunk of a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// DeleteSource removes every chunk of a source.
	DeleteSource(ctx context.Context, sourceID string) error
}
