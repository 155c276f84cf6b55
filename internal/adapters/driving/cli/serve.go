package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-indexer/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/sercha-indexer/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/logger"
)

var (
	serveHTTPAddr string
	serveMCPAddr  string
	serveNoWatch  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the indexing service",
	Long: `Runs the worker pool, the scheduler and the filesystem watcher until
interrupted. When an HTTP address is configured (http.addr or --http) the
admin API and Prometheus metrics are served on it.

Only one service may use a data directory at a time.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "admin API listen address (overrides http.addr)")
	serveCmd.Flags().StringVar(&serveMCPAddr, "mcp", "", "also serve MCP over HTTP on this address")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "disable the filesystem watcher")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := requireIndexing(); err != nil {
		return err
	}
	if err := requireSources(); err != nil {
		return err
	}

	addr := serveHTTPAddr
	if addr == "" && settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		addr = settings.HTTPAddr
	}

	watch := watcher != nil && !serveNoWatch
	var watched []domain.Source
	if watch {
		sources, err := sourceService.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list sources: %w", err)
		}
		watched = sources
	}

	stop, err := startWorkers(cmd.Context())
	if err != nil {
		return err
	}
	defer stop()

	g, ctx := errgroup.WithContext(cmd.Context())

	if scheduler != nil {
		g.Go(func() error {
			return scheduler.Start(ctx)
		})
	}

	if watch {
		g.Go(func() error {
			return watcher.Run(ctx, watched)
		})
	}

	if addr != "" {
		api, err := httpapi.NewServer(httpapi.Ports{
			Sources:  sourceService,
			Indexing: indexingService,
			Search:   searchService,
			Metrics:  metricsHandler,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return api.Run(ctx, addr)
		})
	}

	if serveMCPAddr != "" {
		server, err := mcp.NewServer(&mcp.Ports{
			Search:   searchService,
			Sources:  sourceService,
			Indexing: indexingService,
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			return server.RunHTTP(ctx, serveMCPAddr)
		})
	}

	logger.Info("serve: indexing service running")
	err = g.Wait()
	logger.Info("serve: stopped")
	return err
}
