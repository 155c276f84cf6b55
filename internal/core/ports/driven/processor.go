package driven

import (
	"context"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// ContentProcessor turns item bytes into searchable index entries.
type ContentProcessor interface {
	// Process extracts, chunks and indexes content and returns the number of
	// chunks produced. Zero is a valid result (empty text). Reprocessing the
	// same path replaces its previous entries.
	Process(ctx context.Context, source domain.Source, path string, content []byte, mimeType string) (int, error)

	// RemoveFromIndex deletes every index entry for a document.
	RemoveFromIndex(ctx context.Context, documentID string) error
}

// DocumentID is the identifier a processor uses for an item of a source.
func DocumentID(sourceID, path string) string {
	return sourceID + ":" + path
}

// SourcePurger is implemented by processors that can drop every index entry
// of a source at once.
type SourcePurger interface {
	RemoveSource(ctx context.Context, sourceID string) error
}
