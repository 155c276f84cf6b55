package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage index sources",
	Long:  `Add, inspect and remove the sources the indexer scans.`,
}

var addEntry sourceEntry

var sourceAddCmd = &cobra.Command{
	Use:   "add [kind]",
	Short: "Add a source",
	Long: `Add a source of the given kind (local or mail).

Examples:
  sercha-indexer source add local --name Notes --path ~/notes --include '*.md'
  sercha-indexer source add mail --path ~/Mail --schedule daily --start 02:30`,
	Args: cobra.ExactArgs(1),
	RunE: runSourceAdd,
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sources",
	Args:  cobra.NoArgs,
	RunE:  runSourceList,
}

var sourceShowCmd = &cobra.Command{
	Use:   "show [source-id]",
	Short: "Show a source's configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceShow,
}

var sourceRemoveCmd = &cobra.Command{
	Use:   "remove [source-id]",
	Short: "Remove a source and its index data",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourceRemove,
}

var sourceEnableCmd = &cobra.Command{
	Use:   "enable [source-id]",
	Short: "Enable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], true)
	},
}

var sourceDisableCmd = &cobra.Command{
	Use:   "disable [source-id]",
	Short: "Disable a source",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], false)
	},
}

var presetHome string

var sourcePresetCmd = &cobra.Command{
	Use:       "preset [name]",
	Short:     "Add a preset source (documents, mail or calendar)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: domain.PresetNames,
	RunE:      runSourcePreset,
}

func init() {
	f := sourceAddCmd.Flags()
	f.StringVar(&addEntry.ID, "id", "", "source ID (generated when empty)")
	f.StringVar(&addEntry.Name, "name", "", "display name (defaults to the first path's base name)")
	f.StringSliceVarP(&addEntry.Paths, "path", "p", nil, "scope path (repeatable)")
	f.StringSliceVar(&addEntry.Include, "include", nil, "include glob matched against file names (repeatable)")
	f.StringSliceVar(&addEntry.Exclude, "exclude", nil, "exclude glob matched against relative paths (repeatable)")
	f.StringVar(&addEntry.Schedule, "schedule", "", "manual, on_startup, interval or daily")
	f.IntVar(&addEntry.IntervalMinutes, "interval", 0, "minutes between interval runs")
	f.StringVar(&addEntry.Start, "start", "", "daily start time as HH:MM")
	f.IntVar(&addEntry.MaxDurationMinutes, "max-duration", 0, "run time budget in minutes (0 = unbounded)")
	f.StringVar(&addEntry.ChangeDetection, "change-detection", "", "mtime_size, content_hash or mtime_then_hash")
	f.StringVar(&addEntry.Direction, "direction", "", "default, newest_first or oldest_first")
	f.IntVar(&addEntry.ChunkSize, "chunk-size", 0, "words per chunk")
	f.IntVar(&addEntry.ChunkOverlap, "chunk-overlap", 0, "words shared by adjacent chunks")
	f.BoolVar(&addEntry.Watch, "watch", false, "run on filesystem changes while serving")
	f.Int("max-depth", domain.DefaultMaxDepth, "maximum directory depth (0 = unlimited)")
	f.Int64("max-size", domain.DefaultMaxFileSizeBytes, "skip items larger than this many bytes (0 = no limit)")
	f.Int("max-chunks", domain.DefaultMaxChunksPerItem, "maximum chunks per item (0 = no cap)")
	f.Bool("no-fulltext", false, "track items without storing chunks")
	f.Bool("disabled", false, "add the source disabled")

	sourcePresetCmd.Flags().StringVar(&presetHome, "home", "", "home directory the preset is rooted at")

	sourceCmd.AddCommand(sourceAddCmd, sourceListCmd, sourceShowCmd, sourceRemoveCmd,
		sourceEnableCmd, sourceDisableCmd, sourcePresetCmd, sourceImportCmd)
	rootCmd.AddCommand(sourceCmd)
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
	if err := requireSources(); err != nil {
		return err
	}

	entry := addEntry
	entry.Kind = args[0]
	f := cmd.Flags()
	if f.Changed("max-depth") {
		n, _ := f.GetInt("max-depth")
		entry.MaxDepth = &n
	}
	if f.Changed("max-size") {
		n, _ := f.GetInt64("max-size")
		entry.MaxFileSizeBytes = &n
	}
	if f.Changed("max-chunks") {
		n, _ := f.GetInt("max-chunks")
		entry.MaxChunksPerItem = &n
	}
	if f.Changed("no-fulltext") {
		off, _ := f.GetBool("no-fulltext")
		on := !off
		entry.Fulltext = &on
	}
	if f.Changed("disabled") {
		off, _ := f.GetBool("disabled")
		on := !off
		entry.Enabled = &on
	}
	if len(entry.Paths) == 0 {
		return fmt.Errorf("%w: at least one --path is required", domain.ErrInvalidInput)
	}

	src, err := entry.toSource()
	if err != nil {
		return err
	}
	added, err := sourceService.Add(cmd.Context(), src)
	if err != nil {
		return fmt.Errorf("add source: %w", err)
	}
	cmd.Printf("%s %s (%s)\n", successStyle.Render("Added source"), added.ID, added.Name)
	return nil
}

func runSourceList(cmd *cobra.Command, _ []string) error {
	if err := requireSources(); err != nil {
		return err
	}
	sources, err := sourceService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("No sources configured. Add one with 'sercha-indexer source add'.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tSCHEDULE\tENABLED\tSCOPE")
	for _, s := range sources {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Name, s.Kind, scheduleLabel(s), yesNo(s.Enabled), strings.Join(s.ScopePaths, ", "))
	}
	return w.Flush()
}

func runSourceShow(cmd *cobra.Command, args []string) error {
	if err := requireSources(); err != nil {
		return err
	}
	s, err := sourceService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get source: %w", err)
	}

	cmd.Println(titleStyle.Render(s.Name))
	cmd.Println(field("ID", s.ID))
	cmd.Println(field("Kind", s.Kind.String()))
	cmd.Println(field("Enabled", yesNo(s.Enabled)))
	cmd.Println(field("Scope", strings.Join(s.ScopePaths, ", ")))
	if len(s.IncludePatterns) > 0 {
		cmd.Println(field("Include", strings.Join(s.IncludePatterns, ", ")))
	}
	if len(s.ExcludePatterns) > 0 {
		cmd.Println(field("Exclude", strings.Join(s.ExcludePatterns, ", ")))
	}
	cmd.Println(field("Max depth", fmt.Sprint(s.MaxDepth)))
	cmd.Println(field("Max file size", fmt.Sprintf("%d bytes", s.MaxFileSizeBytes)))
	cmd.Println(field("Schedule", scheduleLabel(*s)))
	if d := s.MaxDuration(); d > 0 {
		cmd.Println(field("Time budget", d.String()))
	}
	cmd.Println(field("Change detection", string(s.ChangeDetection)))
	cmd.Println(field("Direction", string(s.Direction)))
	cmd.Println(field("Full text", yesNo(s.FulltextEnabled)))
	cmd.Println(field("Chunking", fmt.Sprintf("%d words, %d overlap, max %d", s.ChunkSize, s.ChunkOverlap, s.MaxChunksPerItem)))
	cmd.Println(field("Watch", yesNo(s.Watch)))
	return nil
}

func runSourceRemove(cmd *cobra.Command, args []string) error {
	if err := requireSources(); err != nil {
		return err
	}
	if err := sourceService.Remove(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	cmd.Printf("Removed source %s\n", args[0])
	return nil
}

func setEnabled(cmd *cobra.Command, id string, enabled bool) error {
	if err := requireSources(); err != nil {
		return err
	}
	if err := sourceService.SetEnabled(cmd.Context(), id, enabled); err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	cmd.Printf("Source %s %s\n", id, state)
	return nil
}

func runSourcePreset(cmd *cobra.Command, args []string) error {
	if err := requireSources(); err != nil {
		return err
	}
	home := presetHome
	if home == "" {
		var err error
		if home, err = os.UserHomeDir(); err != nil {
			return fmt.Errorf("resolve home directory: %w", err)
		}
	}
	src, err := sourceService.AddPreset(cmd.Context(), args[0], home)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
			return fmt.Errorf("%w (available: %s)", err, strings.Join(domain.PresetNames, ", "))
		}
		return fmt.Errorf("add preset: %w", err)
	}
	cmd.Printf("%s %s (%s)\n", successStyle.Render("Added source"), src.ID, src.Name)
	return nil
}

func scheduleLabel(s domain.Source) string {
	switch s.Schedule {
	case domain.ScheduleInterval:
		return fmt.Sprintf("every %s", s.Interval())
	case domain.ScheduleDaily:
		return fmt.Sprintf("daily at %02d:%02d", s.StartHour, s.StartMinute)
	default:
		return string(s.Schedule)
	}
}
