package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_price_compare_new")

	assert.NotNil(t, m.SearchesStarted)
	assert.NotNil(t, m.SearchesCompleted)
	assert.NotNil(t, m.SearchesAborted)
	assert.NotNil(t, m.SearchDuration)
	assert.NotNil(t, m.SourceResults)
	assert.NotNil(t, m.SourceDuration)
	assert.NotNil(t, m.OffersPerSource)
	assert.NotNil(t, m.BatchesStarted)
	assert.NotNil(t, m.HistorySaveFailures)
	assert.NotNil(t, m.OutboxPublished)
	assert.NotNil(t, m.HTTPRequests)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordSearchStarted()
		m.RecordSearchCompleted(3, 1.5)
		m.RecordSearchAborted()
		m.RecordSearchUnavailable()
		m.RecordSourceResult("apollo", "failed", 0, 0.2)
		m.RecordSourceRateLimited("apollo")
		m.RecordBatch(2, 10)
		m.RecordHistorySaveFailed()
		m.RecordOutboxPublished("search.completed")
		m.RecordOutboxFailed("search.completed")
		m.RecordHTTPRequest("/healthz", "GET", "200", 0.01)
	})
}

func TestRecordSearchStarted(t *testing.T) {
	m := NewMetrics("test_search_started")

	initial := testutil.ToFloat64(m.SearchesStarted)
	m.RecordSearchStarted()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.SearchesStarted))
}

func TestRecordSearchCompleted(t *testing.T) {
	m := NewMetrics("test_search_completed")

	m.RecordSearchCompleted(7, 4.2)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SearchesCompleted))

	histCount, err := getHistogramSampleCount(m.SearchDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)

	offerCount, err := getHistogramSampleCount(m.OffersPerSearch)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), offerCount)
}

func TestRecordSearchAborted(t *testing.T) {
	m := NewMetrics("test_search_aborted")

	m.RecordSearchAborted()
	m.RecordSearchAborted()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SearchesAborted))
}

func TestRecordSourceResult(t *testing.T) {
	m := NewMetrics("test_source_result")

	m.RecordSourceResult("pharmeasy", "succeeded", 5, 1.2)
	m.RecordSourceResult("pharmeasy", "timed_out", 0, 90)
	m.RecordSourceResult("netmeds", "failed", 0, 0.3)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceResults.WithLabelValues("pharmeasy", "succeeded")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceResults.WithLabelValues("pharmeasy", "timed_out")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceResults.WithLabelValues("netmeds", "failed")))

	// Only successful calls contribute to the offers histogram.
	assert.Equal(t, 1, testutil.CollectAndCount(m.OffersPerSource))
}

func TestRecordSourceRateLimited(t *testing.T) {
	m := NewMetrics("test_source_rate_limited")

	m.RecordSourceRateLimited("1mg")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SourceRateLimited.WithLabelValues("1mg")))
}

func TestRecordBatch(t *testing.T) {
	m := NewMetrics("test_batch")

	m.RecordBatch(3, 42.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BatchesStarted))

	count, err := getHistogramSampleCount(m.BatchSavings)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestRecordSideEffects(t *testing.T) {
	m := NewMetrics("test_side_effects")

	m.RecordHistorySaveFailed()
	m.RecordOutboxPublished("search.completed")
	m.RecordOutboxFailed("batch.completed")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HistorySaveFailures))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxPublished.WithLabelValues("search.completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxFailures.WithLabelValues("batch.completed")))
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewMetrics("test_http_request")

	m.RecordHTTPRequest("/api/v1/search", "POST", "200", 0.8)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/v1/search", "POST", "200")))
}

func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var metric = &dto.Metric{}
	if err := m.Write(metric); err != nil {
		return 0, err
	}

	return metric.Histogram.GetSampleCount(), nil
}
