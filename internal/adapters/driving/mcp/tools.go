package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

const (
	defaultSearchLimit  = 10
	defaultHistoryLimit = 10
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query   string   `json:"query" jsonschema:"the search query to find indexed text"`
	Limit   int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Sources []string `json:"sources,omitempty" jsonschema:"restrict results to these source IDs"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single matching chunk.
type SearchResultOutput struct {
	SourceID   string  `json:"source_id"`
	Path       string  `json:"path"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

// ListSourcesInput is the (empty) input schema for list_sources.
type ListSourcesInput struct{}

// ListSourcesOutput is the output schema for list_sources.
type ListSourcesOutput struct {
	Sources []SourceOutput `json:"sources"`
}

// SourceOutput summarises one source.
type SourceOutput struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Enabled  bool     `json:"enabled"`
	Schedule string   `json:"schedule"`
	Scope    []string `json:"scope"`
	Running  bool     `json:"running"`
}

// SourceInput selects a source.
type SourceInput struct {
	SourceID string `json:"source_id" jsonschema:"the ID of the source"`
}

// StatusOutput is the output schema for index_status.
type StatusOutput struct {
	SourceID      string         `json:"source_id"`
	Running       bool           `json:"running"`
	Counts        map[string]int `json:"counts"`
	LastSuccessAt string         `json:"last_success_at,omitempty"`
}

// RunOutput is the output schema for run_source.
type RunOutput struct {
	SourceID string `json:"source_id"`
	Queued   bool   `json:"queued"`
}

// HistoryInput is the input schema for run_history.
type HistoryInput struct {
	SourceID string `json:"source_id" jsonschema:"the ID of the source"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of runs to return (default 10)"`
}

// HistoryOutput is the output schema for run_history.
type HistoryOutput struct {
	Runs []RunSummary `json:"runs"`
}

// RunSummary describes one past run.
type RunSummary struct {
	State      string `json:"state"`
	StartedAt  string `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
	Scanned    int    `json:"scanned"`
	New        int    `json:"new"`
	Changed    int    `json:"changed"`
	Deleted    int    `json:"deleted"`
	Errored    int    `json:"errored"`
	TimedOut   bool   `json:"timed_out,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the indexed text of all sources",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_sources",
		Description: "List configured index sources",
	}, s.handleListSources)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_status",
		Description: "Show item counts and the last successful run of a source",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_source",
		Description: "Queue an indexing run for a source",
	}, s.handleRunSource)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_history",
		Description: "List recent indexing runs of a source, newest first",
	}, s.handleRunHistory)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	opts := domain.SearchOptions{Limit: limit, SourceIDs: input.Sources}
	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i, r := range results {
		output.Results[i] = SearchResultOutput{
			SourceID:   r.SourceID,
			Path:       r.Path,
			Title:      r.Title,
			ChunkIndex: r.ChunkIndex,
			Snippet:    r.Snippet,
			Score:      r.Score,
		}
	}

	return nil, output, nil
}

func (s *Server) handleListSources(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListSourcesInput,
) (*mcp.CallToolResult, ListSourcesOutput, error) {
	output := ListSourcesOutput{Sources: []SourceOutput{}}
	if s.ports.Sources == nil {
		return nil, output, nil
	}

	sources, err := s.ports.Sources.List(ctx)
	if err != nil {
		return nil, ListSourcesOutput{}, err
	}
	for _, src := range sources {
		out := SourceOutput{
			ID:       src.ID,
			Name:     src.Name,
			Kind:     src.Kind.String(),
			Enabled:  src.Enabled,
			Schedule: string(src.Schedule),
			Scope:    src.ScopePaths,
		}
		if s.ports.Indexing != nil {
			out.Running = s.ports.Indexing.IsRunning(src.ID)
		}
		output.Sources = append(output.Sources, out)
	}
	return nil, output, nil
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SourceInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if s.ports.Indexing == nil {
		return nil, StatusOutput{}, ErrIndexingUnavailable
	}

	counts, err := s.ports.Indexing.ItemCounts(ctx, input.SourceID)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	last, err := s.ports.Indexing.LastSuccessfulRun(ctx, input.SourceID)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	output := StatusOutput{
		SourceID: input.SourceID,
		Running:  s.ports.Indexing.IsRunning(input.SourceID),
		Counts:   make(map[string]int, len(counts)),
	}
	for state, n := range counts {
		output.Counts[string(state)] = n
	}
	if last != nil {
		output.LastSuccessAt = last.StartedAt.Format(time.RFC3339)
	}
	return nil, output, nil
}

func (s *Server) handleRunSource(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SourceInput,
) (*mcp.CallToolResult, RunOutput, error) {
	if s.ports.Indexing == nil {
		return nil, RunOutput{}, ErrIndexingUnavailable
	}
	if err := s.ports.Indexing.RunNow(ctx, input.SourceID); err != nil {
		return nil, RunOutput{}, err
	}
	return nil, RunOutput{SourceID: input.SourceID, Queued: true}, nil
}

func (s *Server) handleRunHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input HistoryInput,
) (*mcp.CallToolResult, HistoryOutput, error) {
	if s.ports.Indexing == nil {
		return nil, HistoryOutput{}, ErrIndexingUnavailable
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	runs, err := s.ports.Indexing.RunHistory(ctx, input.SourceID, limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	output := HistoryOutput{Runs: make([]RunSummary, len(runs))}
	for i, r := range runs {
		output.Runs[i] = summarise(r)
	}
	return nil, output, nil
}

func summarise(r domain.RunStatus) RunSummary {
	return RunSummary{
		State:      string(r.State),
		StartedAt:  r.StartedAt.Format(time.RFC3339),
		DurationMS: r.Duration(time.Now()).Milliseconds(),
		Scanned:    r.Scanned,
		New:        r.New,
		Changed:    r.Changed,
		Deleted:    r.Deleted,
		Errored:    r.Errored,
		TimedOut:   r.TimedOut,
		LastError:  r.LastError,
	}
}
