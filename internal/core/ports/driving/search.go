package driving

import (
	"context"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

// SearchService queries the chunk index built by the content processor.
type SearchService interface {
	// Search returns the best matching chunks for a query.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
