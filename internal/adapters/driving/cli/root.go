// Package cli provides the cobra command tree of sercha-indexer.
//
// Commands reach the core only through driving ports held in package
// variables. Execute fills them from a Bootstrap function once the persistent
// flags have been parsed, so tests can swap in mocks directly.
package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-indexer/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Options are the persistent flags handed to Bootstrap.
type Options struct {
	ConfigDir string
	DataDir   string
	Verbose   bool
}

// Workers is the indexing worker pool lifecycle.
type Workers interface {
	Start(ctx context.Context) error
	Close() error
}

// Watcher triggers runs on filesystem changes until ctx is done.
type Watcher interface {
	Run(ctx context.Context, sources []domain.Source) error
}

// App is the set of services built by Bootstrap.
type App struct {
	Sources   driving.SourceService
	Indexing  driving.IndexingService
	Search    driving.SearchService
	Settings  driving.SettingsService
	Scheduler driving.Scheduler
	Workers   Workers
	Watcher   Watcher

	// Metrics serves the Prometheus exposition. Optional.
	Metrics http.Handler

	// DataDir is the resolved data directory, used for the process lock.
	DataDir string

	// Close releases storage and log files.
	Close func() error
}

// Bootstrap builds the application from the parsed persistent flags.
type Bootstrap func(ctx context.Context, opts Options) (*App, error)

var (
	sourceService   driving.SourceService
	indexingService driving.IndexingService
	searchService   driving.SearchService
	settingsService driving.SettingsService
	scheduler       driving.Scheduler
	workers         Workers
	watcher         Watcher
	metricsHandler  http.Handler
	dataDir         string

	bootstrap Bootstrap
	app       *App
	opts      Options
)

var rootCmd = &cobra.Command{
	Use:   "sercha-indexer",
	Short: "Incremental indexer for local files and mail",
	Long: `sercha-indexer keeps a full-text index of configured sources up to date.

Sources are scanned incrementally: only new and changed items are processed,
and items that disappear are tombstoned. Runs are triggered manually, on a
schedule, or by filesystem changes while 'sercha-indexer serve' is running.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug output")
	pf.StringVar(&opts.ConfigDir, "config-dir", "", "configuration directory (default ~/.sercha-indexer)")
	pf.StringVar(&opts.DataDir, "data-dir", "", "data directory (overrides data.dir)")
}

// noServices marks commands that run without Bootstrap.
const noServices = "no-services"

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)
	if bootstrap == nil || app != nil {
		return nil
	}
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[noServices]; ok {
			return nil
		}
	}

	built, err := bootstrap(cmd.Context(), opts)
	if err != nil {
		return err
	}
	use(built)
	return nil
}

// use installs the services of a.
func use(a *App) {
	app = a
	sourceService = a.Sources
	indexingService = a.Indexing
	searchService = a.Search
	settingsService = a.Settings
	scheduler = a.Scheduler
	workers = a.Workers
	watcher = a.Watcher
	metricsHandler = a.Metrics
	dataDir = a.DataDir
}

// Execute runs the command tree with services from b.
func Execute(ctx context.Context, v string, b Bootstrap) error {
	if v != "" {
		version = v
	}
	bootstrap = b
	defer func() {
		if app != nil && app.Close != nil {
			if err := app.Close(); err != nil {
				logger.Warn("close: %v", err)
			}
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func requireSources() error {
	if sourceService == nil {
		return errors.New("source service not configured")
	}
	return nil
}

func requireIndexing() error {
	if indexingService == nil {
		return errors.New("indexing service not configured")
	}
	return nil
}
