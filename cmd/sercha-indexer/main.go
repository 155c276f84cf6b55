// Command sercha-indexer keeps a full-text index of local files and mail up
// to date.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/sercha-indexer/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-indexer/internal/adapters/driven/index"
	"github.com/custodia-labs/sercha-indexer/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-indexer/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-indexer/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-indexer/internal/connectors/mail"
	"github.com/custodia-labs/sercha-indexer/internal/core/services"
	"github.com/custodia-labs/sercha-indexer/internal/logger"
	"github.com/custodia-labs/sercha-indexer/internal/normalisers"
	"github.com/custodia-labs/sercha-indexer/internal/observability"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx, version, bootstrap)
	stop()
	if err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}

// bootstrap wires the driven adapters into the core services.
func bootstrap(_ context.Context, opts cli.Options) (*cli.App, error) {
	configStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = settings.DataDir
	}
	if dataDir == "" {
		dataDir = filepath.Join(filepath.Dir(configStore.Path()), "data")
	}

	closeLog, err := logger.Setup(logger.Config{
		Verbose: opts.Verbose,
		File:    settings.LogFile,
		Level:   settings.LogLevel,
	})
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(dataDir, sqlite.WithHistoryLimit(settings.HistoryLimit))
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Debug("store: %s", store.Path())

	chunks := store.ChunkIndex()
	processor := index.NewProcessor(normalisers.Defaults(), chunks)
	scanners := services.NewScannerRegistry(filesystem.New(), mail.New())
	pipeline := services.NewPipeline(scanners, store.StatusStore(), processor)

	indexing := services.NewIndexingService(store.SourceStore(), store.StatusStore(), pipeline, settings)
	scheduler := services.NewScheduler(store.SourceStore(), store.StatusStore(), indexing, settings)

	sources := services.NewSourceService(store.SourceStore(), store.StatusStore(), indexing)
	sources.SetIndexPurger(processor)

	metrics, err := observability.New()
	if err != nil {
		_ = store.Close()
		_ = closeLog()
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	indexing.AddListener(metrics)

	watcher := filesystem.NewWatcher(func(sourceID string) error {
		return indexing.RunNow(context.Background(), sourceID)
	}, filesystem.WithDebounce(settings.WatchDebounce))

	return &cli.App{
		Sources:   sources,
		Indexing:  indexing,
		Search:    services.NewSearchService(chunks),
		Settings:  settingsService,
		Scheduler: scheduler,
		Workers:   indexing,
		Watcher:   watcher,
		Metrics:   metrics.Handler(),
		DataDir:   dataDir,
		Close: func() error {
			return errors.Join(
				indexing.Close(),
				metrics.Shutdown(context.Background()),
				store.Close(),
				closeLog(),
			)
		},
	}, nil
}
