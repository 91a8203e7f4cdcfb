package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for the price comparison service.
// Metrics are organized by subsystem: searches, pharmacy sources, batches,
// side effects (history and outbox) and HTTP. All collectors are registered
// via promauto with the default Prometheus registry.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// SearchesStarted counts single-medicine searches dispatched to the aggregator.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts searches that reached their terminal result.
	SearchesCompleted prometheus.Counter

	// SearchesAborted counts searches abandoned because the consumer went away.
	SearchesAborted prometheus.Counter

	// SearchesUnavailable counts searches rejected because no pharmacy was configured.
	SearchesUnavailable prometheus.Counter

	// SearchDuration observes the end-to-end duration of a search in seconds.
	SearchDuration prometheus.Histogram

	// OffersPerSearch observes the number of offers in terminal results.
	OffersPerSearch prometheus.Histogram

	// SourceResults counts resolved pharmacy calls, labeled by pharmacy and status.
	SourceResults *prometheus.CounterVec

	// SourceDuration observes pharmacy call duration in seconds, labeled by pharmacy.
	SourceDuration *prometheus.HistogramVec

	// OffersPerSource observes offers returned per successful call, labeled by pharmacy.
	OffersPerSource *prometheus.HistogramVec

	// SourceRateLimited counts rate-limited responses from pharmacy sites.
	SourceRateLimited *prometheus.CounterVec

	// BatchesStarted counts prescription batches received.
	BatchesStarted prometheus.Counter

	// BatchMedicines observes the number of medicines per batch.
	BatchMedicines prometheus.Histogram

	// BatchSavings observes total_savings per batch in rupees.
	BatchSavings prometheus.Histogram

	// HistorySaveFailures counts best-effort history writes that failed.
	HistorySaveFailures prometheus.Counter

	// OutboxPublished counts events handed to the outbox publisher, labeled by event type.
	OutboxPublished *prometheus.CounterVec

	// OutboxFailures counts failed outbox publishes, labeled by event type.
	OutboxFailures *prometheus.CounterVec

	// HTTPRequests counts API requests, labeled by route pattern, method and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration observes API request duration in seconds, labeled by route pattern.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of medicine searches started",
		}),
		SearchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of medicine searches that reached a terminal result",
		}),
		SearchesAborted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_aborted_total",
			Help:      "Total number of medicine searches abandoned by the consumer",
		}),
		SearchesUnavailable: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_unavailable_total",
			Help:      "Total number of searches rejected because no pharmacy was configured",
		}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end duration of medicine searches",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		}),
		OffersPerSearch: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "offers_per_search",
			Help:      "Number of offers in terminal search results",
			Buckets:   []float64{0, 1, 2, 5, 10, 15, 20, 30},
		}),

		// Sources
		SourceResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "results_total",
			Help:      "Total number of resolved pharmacy calls by status",
		}, []string{"pharmacy", "status"}),
		SourceDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "duration_seconds",
			Help:      "Duration of pharmacy calls",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
		}, []string{"pharmacy"}),
		OffersPerSource: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "offers",
			Help:      "Number of offers returned per successful pharmacy call",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 10},
		}, []string{"pharmacy"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "rate_limited_total",
			Help:      "Total number of rate-limited responses from pharmacy sites",
		}, []string{"pharmacy"}),

		// Batches
		BatchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "started_total",
			Help:      "Total number of prescription batches started",
		}),
		BatchMedicines: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "medicines",
			Help:      "Number of medicines per batch",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 20},
		}),
		BatchSavings: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "savings_rupees",
			Help:      "Total savings per batch",
			Buckets:   []float64{0, 10, 25, 50, 100, 250, 500, 1000},
		}),

		// Side effects
		HistorySaveFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "save_failures_total",
			Help:      "Total number of search history writes that failed",
		}),
		OutboxPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Total number of events published",
		}, []string{"event_type"}),
		OutboxFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "failures_total",
			Help:      "Total number of events that failed to publish",
		}, []string{"event_type"}),

		// HTTP
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of API requests",
		}, []string{"route", "method", "code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// RecordSearchStarted records that a search has been dispatched.
func (m *Metrics) RecordSearchStarted() {
	if m == nil {
		return
	}
	m.SearchesStarted.Inc()
}

// RecordSearchCompleted records a search that reached its terminal result.
func (m *Metrics) RecordSearchCompleted(offerCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesCompleted.Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.OffersPerSearch.Observe(float64(offerCount))
}

// RecordSearchAborted records a search abandoned before completion.
func (m *Metrics) RecordSearchAborted() {
	if m == nil {
		return
	}
	m.SearchesAborted.Inc()
}

// RecordSearchUnavailable records a search rejected for lack of sources.
func (m *Metrics) RecordSearchUnavailable() {
	if m == nil {
		return
	}
	m.SearchesUnavailable.Inc()
}

// RecordSourceResult records one resolved pharmacy call.
func (m *Metrics) RecordSourceResult(pharmacy, status string, offerCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SourceResults.WithLabelValues(pharmacy, status).Inc()
	m.SourceDuration.WithLabelValues(pharmacy).Observe(durationSeconds)
	if status == "succeeded" {
		m.OffersPerSource.WithLabelValues(pharmacy).Observe(float64(offerCount))
	}
}

// RecordSourceRateLimited records a rate limit response from a pharmacy site.
func (m *Metrics) RecordSourceRateLimited(pharmacy string) {
	if m == nil {
		return
	}
	m.SourceRateLimited.WithLabelValues(pharmacy).Inc()
}

// RecordBatch records a prescription batch and its total savings.
func (m *Metrics) RecordBatch(medicineCount int, totalSavings float64) {
	if m == nil {
		return
	}
	m.BatchesStarted.Inc()
	m.BatchMedicines.Observe(float64(medicineCount))
	m.BatchSavings.Observe(totalSavings)
}

// RecordHistorySaveFailed records a failed history write.
func (m *Metrics) RecordHistorySaveFailed() {
	if m == nil {
		return
	}
	m.HistorySaveFailures.Inc()
}

// RecordOutboxPublished records a published outbox event.
func (m *Metrics) RecordOutboxPublished(eventType string) {
	if m == nil {
		return
	}
	m.OutboxPublished.WithLabelValues(eventType).Inc()
}

// RecordOutboxFailed records an outbox event that could not be published.
func (m *Metrics) RecordOutboxFailed(eventType string) {
	if m == nil {
		return
	}
	m.OutboxFailures.WithLabelValues(eventType).Inc()
}

// RecordHTTPRequest records a served API request.
func (m *Metrics) RecordHTTPRequest(route, method, code string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(durationSeconds)
}
