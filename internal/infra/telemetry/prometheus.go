package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"skillcat/internal/domain"
)

type PrometheusMetrics struct {
	recommendDuration *prometheus.HistogramVec
	recommendResults  prometheus.Histogram
	indexBuilds       prometheus.Counter
	indexedRecords    prometheus.Gauge
	skippedRecords    prometheus.Gauge
	indexBuildSeconds prometheus.Histogram
	retentionRuns     *prometheus.CounterVec
	retentionPruned   prometheus.Counter
	rollupRows        *prometheus.CounterVec
	retentionSeconds  prometheus.Histogram
	usageRecorded     *prometheus.CounterVec
	cacheEntries      prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		recommendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "skillcat_recommend_duration_seconds",
				Help:    "Duration of recommendation requests in seconds",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"outcome"},
		),
		recommendResults: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "skillcat_recommend_results",
				Help:    "Number of recommendations returned per request",
				Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
			},
		),
		indexBuilds: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "skillcat_index_builds_total",
				Help: "Total number of catalog index builds",
			},
		),
		indexedRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "skillcat_index_records",
				Help: "Records held by the current catalog index",
			},
		),
		skippedRecords: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "skillcat_index_skipped_records",
				Help: "Records skipped by the last index build for missing id or name",
			},
		),
		indexBuildSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "skillcat_index_build_seconds",
				Help:    "Duration of catalog index builds in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
		),
		retentionRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillcat_retention_runs_total",
				Help: "Total number of retention runs",
			},
			[]string{"status"},
		),
		retentionPruned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "skillcat_retention_pruned_logs_total",
				Help: "Total number of usage logs deleted by retention",
			},
		),
		rollupRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillcat_retention_rollup_rows_total",
				Help: "Total number of aggregate rows written by retention",
			},
			[]string{"granularity"},
		),
		retentionSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "skillcat_retention_duration_seconds",
				Help:    "Duration of retention runs in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30},
			},
		),
		usageRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "skillcat_usage_recorded_total",
				Help: "Total number of usage logs recorded",
			},
			[]string{"kind", "status"},
		),
		cacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "skillcat_recommend_cache_entries",
				Help: "Current number of cached recommendation results",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveRecommend(outcome domain.RecommendOutcome, duration time.Duration, results int) {
	p.recommendDuration.WithLabelValues(string(outcome)).Observe(duration.Seconds())
	p.recommendResults.Observe(float64(results))
}

func (p *PrometheusMetrics) ObserveIndexBuild(indexed int, skipped int, duration time.Duration) {
	p.indexBuilds.Inc()
	p.indexedRecords.Set(float64(indexed))
	p.skippedRecords.Set(float64(skipped))
	p.indexBuildSeconds.Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveRetentionRun(pruned int, dailyRows int, weeklyRows int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.retentionRuns.WithLabelValues(status).Inc()
	p.retentionPruned.Add(float64(pruned))
	p.rollupRows.WithLabelValues("daily").Add(float64(dailyRows))
	p.rollupRows.WithLabelValues("weekly").Add(float64(weeklyRows))
	p.retentionSeconds.Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveUsageRecorded(kind domain.RecordKind, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	label := string(kind)
	if label == "" {
		label = "unknown"
	}
	p.usageRecorded.WithLabelValues(label, status).Inc()
}

func (p *PrometheusMetrics) SetCacheEntries(count int) {
	p.cacheEntries.Set(float64(count))
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
