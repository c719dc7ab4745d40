package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the analytics service. A nil
// *Metrics is valid; every Record method is a no-op on it, which keeps the
// aggregation layer testable without touching the global registry.
type Metrics struct {
	// Report metrics
	ReportRequests *prometheus.CounterVec
	ReportLatency  *prometheus.HistogramVec

	// Merge metrics
	ChannelFailures *prometheus.CounterVec

	// Scan ingestion metrics
	ScanEvents *prometheus.CounterVec

	// Store metrics
	StoreErrors   *prometheus.CounterVec
	DBConnections *prometheus.GaugeVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ReportRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_requests_total",
				Help:      "Total report requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		ReportLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "report_latency_seconds",
				Help:      "Report generation latency in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"endpoint"},
		),
		ChannelFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "channel_failures_total",
				Help:      "Per-channel soft failures during overview merges",
			},
			[]string{"channel"},
		),
		ScanEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_events_total",
				Help:      "Direct-mail scan events ingested",
			},
			[]string{"country"},
		),
		StoreErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_errors_total",
				Help:      "Storage layer errors by store and operation",
			},
			[]string{"store", "op"},
		),
		DBConnections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections",
				Help:      "Database connection pool stats",
			},
			[]string{"state"}, // idle, in_use, total
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Rate limit rejections",
			},
			[]string{"endpoint"},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordReport records a report request outcome.
func (m *Metrics) RecordReport(endpoint, status string, latency time.Duration) {
	if m == nil {
		return
	}
	m.ReportRequests.WithLabelValues(endpoint, status).Inc()
	m.ReportLatency.WithLabelValues(endpoint).Observe(latency.Seconds())
}

// RecordChannelFailure records a per-channel soft failure.
func (m *Metrics) RecordChannelFailure(channel string) {
	if m == nil {
		return
	}
	m.ChannelFailures.WithLabelValues(channel).Inc()
}

// RecordScan records an ingested scan event.
func (m *Metrics) RecordScan(country string) {
	if m == nil {
		return
	}
	if country == "" {
		country = "unknown"
	}
	m.ScanEvents.WithLabelValues(country).Inc()
}

// RecordStoreError records a storage layer error.
func (m *Metrics) RecordStoreError(store, op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(store, op).Inc()
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(endpoint).Inc()
}

// UpdateDBStats updates database connection metrics.
func (m *Metrics) UpdateDBStats(idle, inUse, total int) {
	if m == nil {
		return
	}
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnections.WithLabelValues("total").Set(float64(total))
}
