// Package metrics provides Prometheus metrics for the hub server
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stonehub_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"route", "method", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stonehub_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Upstream metrics
	UpstreamErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stonehub_upstream_errors_total",
			Help: "Total number of failed calls to APS",
		},
		[]string{"operation"},
	)

	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stonehub_token_refreshes_total",
			Help: "Total number of session token refreshes",
		},
		[]string{"status"},
	)

	// Property metrics
	PropertyFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stonehub_property_fetch_duration_seconds",
			Help:    "Duration of bulk property lookups",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"panel"},
	)

	ElementsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stonehub_elements_fetched_total",
			Help: "Total number of elements returned by bulk property lookups",
		},
		[]string{"panel"},
	)

	// Selection metrics
	SelectedModels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stonehub_selected_models",
			Help: "Number of models in the selection",
		},
	)
)

// RecordRequest records one served HTTP request
func RecordRequest(route, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(route, method, status).Inc()
	RequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordPropertyFetch records a bulk property lookup for a panel
func RecordPropertyFetch(panel string, elements int, duration time.Duration) {
	PropertyFetchDuration.WithLabelValues(panel).Observe(duration.Seconds())
	ElementsFetched.WithLabelValues(panel).Add(float64(elements))
}

// RecordUpstreamError records a failed APS call
func RecordUpstreamError(operation string) {
	UpstreamErrorsTotal.WithLabelValues(operation).Inc()
}

// Timer is a helper for measuring duration
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
