// Package observability exports run metrics in the Prometheus format.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
	"github.com/custodia-labs/sercha-indexer/internal/core/ports/driving"
)

// Ensure Metrics implements the listener interface.
var _ driving.Listener = (*Metrics)(nil)

const meterName = "sercha-indexer"

// Metrics records run events as OpenTelemetry instruments backed by a
// private Prometheus registry. Register it as a listener on the indexing
// service and serve Handler on /metrics.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider

	runs     metric.Int64Counter
	failures metric.Int64Counter
	items    metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter

	mu      sync.Mutex
	started map[string]bool
}

// New creates the meter provider, the exporter and every instrument.
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)

	m := &Metrics{registry: registry, provider: provider, started: make(map[string]bool)}

	if m.runs, err = meter.Int64Counter(
		"indexer_runs_total",
		metric.WithDescription("Completed pipeline runs"),
	); err != nil {
		return nil, fmt.Errorf("create runs counter: %w", err)
	}
	if m.failures, err = meter.Int64Counter(
		"indexer_run_failures_total",
		metric.WithDescription("Failed or cancelled pipeline runs"),
	); err != nil {
		return nil, fmt.Errorf("create failures counter: %w", err)
	}
	if m.items, err = meter.Int64Counter(
		"indexer_items_total",
		metric.WithDescription("Items seen by completed runs, by outcome"),
	); err != nil {
		return nil, fmt.Errorf("create items counter: %w", err)
	}
	if m.duration, err = meter.Float64Histogram(
		"indexer_run_duration_seconds",
		metric.WithDescription("Wall time of completed runs"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	if m.active, err = meter.Int64UpDownCounter(
		"indexer_runs_active",
		metric.WithDescription("Runs currently executing"),
	); err != nil {
		return nil, fmt.Errorf("create active gauge: %w", err)
	}
	return m, nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Shutdown flushes and stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

// OnRunStarted counts an active run.
func (m *Metrics) OnRunStarted(sourceID string) {
	m.mu.Lock()
	m.started[sourceID] = true
	m.mu.Unlock()
	m.active.Add(context.Background(), 1, metric.WithAttributes(attribute.String("source", sourceID)))
}

// OnRunCompleted records the outcome of a completed run.
func (m *Metrics) OnRunCompleted(sourceID string, run domain.RunStatus) {
	ctx := context.Background()
	m.finish(ctx, sourceID)

	src := attribute.String("source", sourceID)
	m.runs.Add(ctx, 1, metric.WithAttributes(src, attribute.Bool("timed_out", run.TimedOut)))
	m.duration.Record(ctx, run.Duration(run.CompletedAt).Seconds(), metric.WithAttributes(src))

	for outcome, n := range map[string]int{
		"new":       run.New,
		"changed":   run.Changed,
		"deleted":   run.Deleted,
		"skipped":   run.Skipped,
		"errored":   run.Errored,
		"unchanged": run.Unchanged,
	} {
		if n > 0 {
			m.items.Add(ctx, int64(n), metric.WithAttributes(src, attribute.String("outcome", outcome)))
		}
	}
}

// OnRunFailed counts a failed run.
func (m *Metrics) OnRunFailed(sourceID string, _ string) {
	ctx := context.Background()
	m.finish(ctx, sourceID)
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", sourceID)))
}

// finish decrements the active gauge for runs that were counted as started.
func (m *Metrics) finish(ctx context.Context, sourceID string) {
	m.mu.Lock()
	started := m.started[sourceID]
	delete(m.started, sourceID)
	m.mu.Unlock()
	if started {
		m.active.Add(ctx, -1, metric.WithAttributes(attribute.String("source", sourceID)))
	}
}
