package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for fetching and batch processing.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry            *prometheus.Registry
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     prometheus.Histogram
	ErrorsTotal         *prometheus.CounterVec
	ItemsExtractedTotal prometheus.Counter
	StoreFailuresTotal  prometheus.Counter
	ReportsWrittenTotal prometheus.Counter
	BatchesTotal        *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "books_requests_total",
			Help: "Category page requests by phase.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "books_request_duration_seconds",
			Help:    "Latency of category page requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "books_fetch_errors_total",
			Help: "Fetch failures by kind.",
		},
		[]string{"error_type"},
	)
	itemsExtracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "books_items_extracted_total",
			Help: "Items extracted from category pages.",
		},
	)
	storeFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "books_store_failures_total",
			Help: "Items the record store failed to persist.",
		},
	)
	reportsWritten := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "books_reports_written_total",
			Help: "Report documents written.",
		},
	)
	batches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "books_batches_total",
			Help: "Page batches by terminal status.",
		},
		[]string{"status"},
	)

	registry.MustRegister(requests, requestDuration, errorsTotal, itemsExtracted, storeFailures, reportsWritten, batches)

	return &Metrics{
		Registry:            registry,
		RequestsTotal:       requests,
		RequestDuration:     requestDuration,
		ErrorsTotal:         errorsTotal,
		ItemsExtractedTotal: itemsExtracted,
		StoreFailuresTotal:  storeFailures,
		ReportsWrittenTotal: reportsWritten,
		BatchesTotal:        batches,
	}
}

// IncRequest increments the requests counter for a phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records a request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncError increments the errors counter for a kind label.
func (m *Metrics) IncError(kind string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(kind).Inc()
}

// AddItems adds n extracted items.
func (m *Metrics) AddItems(n int) {
	if m == nil {
		return
	}
	m.ItemsExtractedTotal.Add(float64(n))
}

// IncStoreFailure counts one item that could not be stored.
func (m *Metrics) IncStoreFailure() {
	if m == nil {
		return
	}
	m.StoreFailuresTotal.Inc()
}

// IncReport counts one written report.
func (m *Metrics) IncReport() {
	if m == nil {
		return
	}
	m.ReportsWrittenTotal.Inc()
}

// IncBatch counts a finished batch by status.
func (m *Metrics) IncBatch(status string) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(status).Inc()
}
