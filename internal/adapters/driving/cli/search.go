package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

var (
	searchLimit   int
	searchJSON    bool
	searchSources []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed text",
	Long: `Performs a ranked full-text search over the chunks of all indexed items.
Use --source to restrict the search to particular sources.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVarP(&searchSources, "source", "s", nil, "restrict to source ID (repeatable)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	opts := domain.SearchOptions{
		Limit:     searchLimit,
		SourceIDs: searchSources,
	}

	results, err := searchService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

type searchResultJSON struct {
	SourceID   string  `json:"source_id"`
	Path       string  `json:"path"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, len(results))
	for i, r := range results {
		out[i] = searchResultJSON(r)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	width := terminalWidth(cmd.OutOrStdout()) - 6
	for i, r := range results {
		// Format: [N] Title (Score)
		title := r.Title
		if title == "" {
			title = r.Path
		}

		cmd.Printf("  [%d] %s %s\n", i+1, titleStyle.Render(title), mutedStyle.Render(fmt.Sprintf("(%.2f)", r.Score)))
		cmd.Printf("      %s\n", mutedStyle.Render(fmt.Sprintf("%s: %s #%d", r.SourceID, r.Path, r.ChunkIndex)))
		if r.Snippet != "" {
			cmd.Printf("      %s\n", truncate(r.Snippet, width))
		}
		cmd.Println()
	}

	return nil
}
