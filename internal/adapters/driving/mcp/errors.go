// Package mcp provides an MCP (Model Context Protocol) server adapter for the
// indexer. It lets AI assistants search the chunk index, inspect sources and
// their runs, and trigger runs.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrIndexingUnavailable is returned by run tools when no indexing service is wired.
var ErrIndexingUnavailable = errors.New("mcp: indexing service is not available")
