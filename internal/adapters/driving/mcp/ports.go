package mcp

import (
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
)

// Ports are the core services the MCP tools call. Only Search is required;
// tools backed by a nil port report that the feature is unavailable.
type Ports struct {
	Search   driving.SearchService
	Sources  driving.SourceService
	Indexing driving.IndexingService
}

// Validate reports a missing required port.
func (p *Ports) Validate() error {
	if p == nil || p.Search == nil {
		return ErrMissingSearchService
	}
	return nil
}
