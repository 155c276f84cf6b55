package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-indexer/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 100
)

// SearchService queries the chunk index.
type SearchService struct {
	searcher driven.ChunkSearcher
}

// NewSearchService creates a search service. The searcher may be nil when no
// index is configured.
func NewSearchService(searcher driven.ChunkSearcher) *SearchService {
	return &SearchService{searcher: searcher}
}

// Search returns the best matching chunks for a query.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if s.searcher == nil {
		return nil, domain.ErrNotImplemented
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	switch {
	case opts.Limit <= 0:
		opts.Limit = defaultSearchLimit
	case opts.Limit > maxSearchLimit:
		opts.Limit = maxSearchLimit
	}

	logger.Debug("search: query=%q limit=%d sources=%v", query, opts.Limit, opts.SourceIDs)
	results, err := s.searcher.Search(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("search: %d results", len(results))
	return results, nil
}
