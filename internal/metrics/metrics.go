// Package metrics exposes Prometheus collectors for the grabber.
package metrics

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cdeFetchRequestsTotal  *prometheus.CounterVec
	cdeFetchFailuresTotal  *prometheus.CounterVec
	rowsLoadedTotal        *prometheus.CounterVec
	grabRunsTotal          *prometheus.CounterVec
	grabRunDurationSeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		cdeFetchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cde_fetch_requests_total",
				Help: "Total CDE API requests, labeled by endpoint and status class.",
			},
			[]string{"endpoint", "status_class"},
		)

		cdeFetchFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cde_fetch_failures_total",
				Help: "Total CDE API requests that did not return 2xx, labeled by endpoint.",
			},
			[]string{"endpoint"},
		)

		rowsLoadedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rows_loaded_total",
				Help: "Total rows bulk-loaded into the store, labeled by table.",
			},
			[]string{"table"},
		)

		grabRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grab_runs_total",
				Help: "Total grab runs, labeled by outcome status.",
			},
			[]string{"status"},
		)

		grabRunDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "grab_run_duration_seconds",
				Help:    "Histogram of end-to-end grab run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)
	})
}

// StatusClass buckets an HTTP status code into "2xx".."5xx".
// Non-positive codes (transport failures) map to "error".
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "error"
	}
	return fmt.Sprintf("%dxx", code/100)
}

// ObserveFetch records one CDE API request. Anything outside 2xx also counts
// toward the failure counter.
func ObserveFetch(endpoint string, statusCode int) {
	Init()
	cdeFetchRequestsTotal.WithLabelValues(endpoint, StatusClass(statusCode)).Inc()
	if statusCode < 200 || statusCode > 299 {
		cdeFetchFailuresTotal.WithLabelValues(endpoint).Inc()
	}
}

// ObserveRowsLoaded adds to the per-table loaded row counter.
func ObserveRowsLoaded(table string, rows int64) {
	Init()
	if rows > 0 {
		rowsLoadedTotal.WithLabelValues(table).Add(float64(rows))
	}
}

// ObserveRun records the outcome and duration of one grab run.
func ObserveRun(status string, duration time.Duration) {
	Init()
	grabRunsTotal.WithLabelValues(status).Inc()
	grabRunDurationSeconds.Observe(duration.Seconds())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
