package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "sercha://"

// Per-source resource views, addressed as sercha://sources/{sourceId}/{view}.
const (
	viewRuns   = "runs"
	viewStatus = "status"
)

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sources",
		Name:        "sources",
		Description: "All configured index sources",
		MIMEType:    "application/json",
	}, s.handleSourcesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{sourceId}/" + viewRuns,
		Name:        "source-runs",
		Description: "Recent indexing runs of a source, newest first",
		MIMEType:    "application/json",
	}, s.handleSourceResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "sources/{sourceId}/" + viewStatus,
		Name:        "source-status",
		Description: "Item counts per state and the last successful run of a source",
		MIMEType:    "application/json",
	}, s.handleSourceResource)
}

func (s *Server) handleSourcesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	_, output, err := s.handleListSources(ctx, nil, ListSourcesInput{})
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	return jsonResource(req.Params.URI, output.Sources)
}

// handleSourceResource serves both per-source templates; the view is taken
// from the last URI segment.
func (s *Server) handleSourceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	sourceID, view := parseSourceURI(uri)
	if s.ports.Indexing == nil || sourceID == "" {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	switch view {
	case viewRuns:
		_, output, err := s.handleRunHistory(ctx, nil, HistoryInput{SourceID: sourceID})
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		return jsonResource(uri, output.Runs)
	case viewStatus:
		_, output, err := s.handleStatus(ctx, nil, SourceInput{SourceID: sourceID})
		if err != nil {
			return nil, fmt.Errorf("reading status: %w", err)
		}
		return jsonResource(uri, output)
	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// parseSourceURI splits sercha://sources/{sourceId}/{view}. Both parts are
// empty when the URI has another shape.
func parseSourceURI(uri string) (sourceID, view string) {
	rest, ok := strings.CutPrefix(uri, uriScheme+"sources/")
	if !ok {
		return "", ""
	}
	sourceID, view, ok = strings.Cut(rest, "/")
	if !ok || sourceID == "" || view == "" || strings.Contains(view, "/") {
		return "", ""
	}
	return sourceID, view
}
