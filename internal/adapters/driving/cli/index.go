package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-indexer/internal/lock"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run the indexer and inspect its state",
}

var indexRunCmd = &cobra.Command{
	Use:   "run [source-id]",
	Short: "Index a source now and wait for the result",
	Long: `Runs the incremental pipeline for one source, or for every enabled source
with --all, and prints the run summary. Fails if another process holds the
data directory lock.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndexRun,
}

var indexStatusCmd = &cobra.Command{
	Use:   "status [source-id]",
	Short: "Show item counts and the last successful run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndexStatus,
}

var indexItemCmd = &cobra.Command{
	Use:   "item [source-id] [path]",
	Short: "Show the bookkeeping record of one item",
	Args:  cobra.ExactArgs(2),
	RunE:  runIndexItem,
}

var indexRunsCmd = &cobra.Command{
	Use:   "runs [source-id]",
	Short: "List recent runs of a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexRuns,
}

var indexPurgeCmd = &cobra.Command{
	Use:   "purge [source-id]",
	Short: "Remove tombstones of deleted items",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexPurge,
}

var (
	indexAll       bool
	runsLimit      int
	purgeOlderThan time.Duration
)

func init() {
	indexRunCmd.Flags().BoolVar(&indexAll, "all", false, "run every enabled source")
	indexRunsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "maximum number of runs")
	indexPurgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 30*24*time.Hour, "only purge tombstones older than this")

	indexCmd.AddCommand(indexRunCmd, indexStatusCmd, indexItemCmd, indexRunsCmd, indexPurgeCmd)
	rootCmd.AddCommand(indexCmd)
}

// startWorkers takes the data directory lock and starts the worker pool.
// The returned function undoes both.
func startWorkers(ctx context.Context) (func(), error) {
	var dirLock *lock.DirLock
	if dataDir != "" {
		dirLock = lock.New(dataDir)
		if err := dirLock.TryLock(); err != nil {
			return nil, err
		}
	}
	release := func() {
		if dirLock != nil {
			_ = dirLock.Unlock()
		}
	}
	if workers == nil {
		return release, nil
	}
	if err := workers.Start(ctx); err != nil {
		release()
		return nil, fmt.Errorf("start workers: %w", err)
	}
	return func() {
		_ = workers.Close()
		release()
	}, nil
}

func runIndexRun(cmd *cobra.Command, args []string) error {
	if err := requireIndexing(); err != nil {
		return err
	}
	if indexAll == (len(args) == 1) {
		return errors.New("give either a source ID or --all")
	}

	ids := args
	if indexAll {
		if err := requireSources(); err != nil {
			return err
		}
		sources, err := sourceService.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list sources: %w", err)
		}
		ids = nil
		for _, s := range sources {
			if s.Enabled {
				ids = append(ids, s.ID)
			}
		}
		if len(ids) == 0 {
			cmd.Println("No enabled sources.")
			return nil
		}
	}

	stop, err := startWorkers(cmd.Context())
	if err != nil {
		return err
	}
	defer stop()

	progress := &driving.ListenerFuncs{
		Started: func(id string) {
			cmd.Println(mutedStyle.Render("Indexing " + id + "..."))
		},
	}
	indexingService.AddListener(progress)
	defer indexingService.RemoveListener(progress)

	var failed int
	for _, id := range ids {
		run, err := indexingService.RunAndWait(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("run %s: %w", id, err)
		}
		printRun(cmd, run)
		if !run.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d run(s) did not complete", failed, len(ids))
	}
	return nil
}

func printRun(cmd *cobra.Command, run domain.RunStatus) {
	state := stateStyle(string(run.State)).Render(string(run.State))
	cmd.Printf("%s %s in %s\n", state, run.SourceID, run.Duration(time.Now()).Round(time.Millisecond))
	cmd.Printf("  scanned %d, new %d, changed %d, unchanged %d, deleted %d, skipped %d, errors %d\n",
		run.Scanned, run.New, run.Changed, run.Unchanged, run.Deleted, run.Skipped, run.Errored)
	if run.TimedOut {
		cmd.Println(warningStyle.Render("  stopped early: time budget exhausted"))
	}
	if run.LastError != "" {
		cmd.Println(errorStyle.Render("  " + run.LastError))
	}
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	if err := requireIndexing(); err != nil {
		return err
	}
	if len(args) == 1 {
		return printSourceStatus(cmd, args[0])
	}

	if err := requireSources(); err != nil {
		return err
	}
	sources, err := sourceService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tINDEXED\tPENDING\tERRORS\tSKIPPED\tDELETED\tLAST SUCCESS")
	for _, s := range sources {
		counts, err := indexingService.ItemCounts(cmd.Context(), s.ID)
		if err != nil {
			return fmt.Errorf("count items of %s: %w", s.ID, err)
		}
		last, err := indexingService.LastSuccessfulRun(cmd.Context(), s.ID)
		if err != nil {
			return fmt.Errorf("last run of %s: %w", s.ID, err)
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n", s.ID,
			counts[domain.ItemIndexed], counts[domain.ItemPending], counts[domain.ItemError],
			counts[domain.ItemSkipped], counts[domain.ItemDeleted], lastSuccess(last))
	}
	return w.Flush()
}

func printSourceStatus(cmd *cobra.Command, id string) error {
	ctx := cmd.Context()
	counts, err := indexingService.ItemCounts(ctx, id)
	if err != nil {
		return fmt.Errorf("count items: %w", err)
	}
	last, err := indexingService.LastSuccessfulRun(ctx, id)
	if err != nil {
		return fmt.Errorf("last run: %w", err)
	}

	cmd.Println(titleStyle.Render(id))
	cmd.Println(field("Running", yesNo(indexingService.IsRunning(id))))
	for _, state := range domain.ItemStates {
		cmd.Println(field(string(state), fmt.Sprint(counts[state])))
	}
	cmd.Println(field("Last success", lastSuccess(last)))
	return nil
}

func lastSuccess(run *domain.RunStatus) string {
	if run == nil {
		return "never"
	}
	return run.StartedAt.Local().Format("2006-01-02 15:04")
}

func runIndexItem(cmd *cobra.Command, args []string) error {
	if err := requireIndexing(); err != nil {
		return err
	}
	item, err := indexingService.ItemStatus(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("item status: %w", err)
	}

	cmd.Println(titleStyle.Render(item.Path))
	cmd.Println(field("State", stateStyle(string(item.State)).Render(string(item.State))))
	cmd.Println(field("Modified", item.LastModified.Local().Format(time.RFC3339)))
	cmd.Println(field("Size", fmt.Sprintf("%d bytes", item.Size)))
	if item.ContentHash != "" {
		cmd.Println(field("Hash", item.ContentHash))
	}
	if !item.IndexedAt.IsZero() {
		cmd.Println(field("Indexed", item.IndexedAt.Local().Format(time.RFC3339)))
		cmd.Println(field("Chunks", fmt.Sprint(item.ChunkCount)))
	}
	if item.ErrorMessage != "" {
		cmd.Println(field("Error", fmt.Sprintf("%s (%d attempt(s))", item.ErrorMessage, item.ErrorCount)))
	}
	if item.SkipReason != "" {
		cmd.Println(field("Skipped", item.SkipReason))
	}
	if !item.DeletedAt.IsZero() {
		cmd.Println(field("Deleted", item.DeletedAt.Local().Format(time.RFC3339)))
	}
	return nil
}

func runIndexRuns(cmd *cobra.Command, args []string) error {
	if err := requireIndexing(); err != nil {
		return err
	}
	runs, err := indexingService.RunHistory(cmd.Context(), args[0], runsLimit)
	if err != nil {
		return fmt.Errorf("run history: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSTATE\tDURATION\tSCANNED\tNEW\tCHANGED\tDELETED\tERRORS")
	for _, r := range runs {
		state := string(r.State)
		if r.TimedOut {
			state += " (timed out)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), state,
			r.Duration(time.Now()).Round(time.Millisecond), r.Scanned, r.New, r.Changed, r.Deleted, r.Errored)
	}
	return w.Flush()
}

func runIndexPurge(cmd *cobra.Command, args []string) error {
	if err := requireIndexing(); err != nil {
		return err
	}
	n, err := indexingService.PurgeTombstones(cmd.Context(), args[0], purgeOlderThan)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}
	cmd.Printf("Purged %d tombstone(s)\n", n)
	return nil
}
