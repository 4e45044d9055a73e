// Package metrics provides the Prometheus metrics registry for the valuation pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "calcutta"

var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	FeedRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_requests_total",
		Help:      "Total number of odds feed requests by market and outcome",
	}, []string{"market", "outcome"})
	FeedCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_cache_hits_total",
		Help:      "Total number of odds feed responses served from cache",
	})
	MarketsSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "markets_skipped_total",
		Help:      "Total number of markets skipped because the feed carried no odds",
	}, []string{"market"})
	PipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_total",
		Help:      "Total number of pipeline runs by pipeline and result",
	}, []string{"pipeline", "result"})
	BidsReconciledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_reconciled_total",
		Help:      "Total number of bids processed by reconciliation outcome",
	}, []string{"outcome"})
	SheetWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sheet_writes_total",
		Help:      "Total number of workbook sheet replacements",
	}, []string{"sheet"})
)

// Histogram metrics
var (
	PipelineDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of pipeline runs in seconds",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"pipeline"})
	FeedRequestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "feed_request_duration_seconds",
		Help:      "Latency of odds feed requests in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(FeedRequestsTotal)
		registry.MustRegister(FeedCacheHitsTotal)
		registry.MustRegister(MarketsSkippedTotal)
		registry.MustRegister(PipelineRunsTotal)
		registry.MustRegister(BidsReconciledTotal)
		registry.MustRegister(SheetWritesTotal)

		registry.MustRegister(PipelineDuration)
		registry.MustRegister(FeedRequestDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordFeedRequest records one odds feed request.
func RecordFeedRequest(market, outcome string, durationSeconds float64) {
	FeedRequestsTotal.WithLabelValues(market, outcome).Inc()
	FeedRequestDuration.Observe(durationSeconds)
}

// RecordFeedCacheHit records a feed response served from cache.
func RecordFeedCacheHit() {
	FeedCacheHitsTotal.Inc()
}

// RecordMarketSkipped records a market with no odds.
func RecordMarketSkipped(market string) {
	MarketsSkippedTotal.WithLabelValues(market).Inc()
}

// RecordPipelineRun records a finished pipeline run.
func RecordPipelineRun(pipeline string, err error, durationSeconds float64) {
	result := "success"
	if err != nil {
		result = "error"
	}
	PipelineRunsTotal.WithLabelValues(pipeline, result).Inc()
	PipelineDuration.WithLabelValues(pipeline).Observe(durationSeconds)
}

// RecordBids records reconciliation outcomes.
func RecordBids(matched, unmatched, dropped int) {
	BidsReconciledTotal.WithLabelValues("matched").Add(float64(matched))
	BidsReconciledTotal.WithLabelValues("unmatched").Add(float64(unmatched))
	BidsReconciledTotal.WithLabelValues("dropped").Add(float64(dropped))
}

// RecordSheetWrite records a sheet replacement.
func RecordSheetWrite(sheet string) {
	SheetWritesTotal.WithLabelValues(sheet).Inc()
}
