// Package metrics exposes Prometheus collectors for the calendar ingester.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "econ_calendar"

// Cycle results
const (
	ResultSuccess    = "success"
	ResultFetchError = "fetch_error"
	ResultParseError = "parse_error"
	ResultEmpty      = "empty"
	ResultStoreError = "store_error"
)

const (
	shutdownGrace      = 5 * time.Second
	readHeaderDeadline = 10 * time.Second
)

// Metrics holds the ingester's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	cycles       *prometheus.CounterVec
	records      *prometheus.CounterVec
	skippedRows  prometheus.Counter
	fetchDur     prometheus.Summary
	lastSuccess  prometheus.Gauge
	partitionGen prometheus.Counter
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cycles_total",
		Help:      "Update cycles by result",
	}, []string{"result"})
	m.records = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_total",
		Help:      "Records written by operation (inserted, updated, unchanged)",
	}, []string{"op"})
	m.skippedRows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "skipped_rows_total",
		Help:      "Allow-listed calendar rows skipped because they could not be normalized",
	})
	m.fetchDur = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: namespace,
		Name:      "fetch_duration_seconds",
		Help:      "Time spent fetching and parsing the calendar page",
	})
	m.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last cycle that persisted records",
	})
	m.partitionGen = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "partitions_created_total",
		Help:      "Daily partitions created",
	})

	m.registry.MustRegister(m.cycles, m.records, m.skippedRows, m.fetchDur, m.lastSuccess, m.partitionGen)

	return m
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle counts one cycle with the given result
func (m *Metrics) ObserveCycle(result string) {
	m.cycles.WithLabelValues(result).Inc()
}

// ObserveFetch records how long a fetch took
func (m *Metrics) ObserveFetch(d time.Duration) {
	m.fetchDur.Observe(d.Seconds())
}

// ObserveSkippedRows adds rows that were dropped during extraction
func (m *Metrics) ObserveSkippedRows(n int) {
	m.skippedRows.Add(float64(n))
}

// ObserveUpsert records the outcome of a persisted batch
func (m *Metrics) ObserveUpsert(inserted, updated, unchanged int, partitionCreated bool, at time.Time) {
	m.records.WithLabelValues("inserted").Add(float64(inserted))
	m.records.WithLabelValues("updated").Add(float64(updated))
	m.records.WithLabelValues("unchanged").Add(float64(unchanged))
	if partitionCreated {
		m.partitionGen.Inc()
	}
	m.lastSuccess.Set(float64(at.Unix()))
}

// Handler returns the /metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderDeadline,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
