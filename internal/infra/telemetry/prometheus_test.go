package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillcat/internal/domain"
)

func TestNewPrometheusMetrics_UsesProvidedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewPrometheusMetrics(registry)
	m.ObserveRecommend(domain.RecommendOutcomeComputed, 2*time.Millisecond, 3)
	m.ObserveIndexBuild(10, 2, time.Millisecond)
	m.ObserveRetentionRun(5, 4, 1, 20*time.Millisecond, nil)
	m.ObserveUsageRecorded(domain.RecordKindSkill, true)
	m.SetCacheEntries(7)

	metrics, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(metrics))
	for _, mf := range metrics {
		names = append(names, mf.GetName())
	}

	assert.Contains(t, names, "skillcat_recommend_duration_seconds")
	assert.Contains(t, names, "skillcat_recommend_results")
	assert.Contains(t, names, "skillcat_index_builds_total")
	assert.Contains(t, names, "skillcat_index_records")
	assert.Contains(t, names, "skillcat_index_skipped_records")
	assert.Contains(t, names, "skillcat_index_build_seconds")
	assert.Contains(t, names, "skillcat_retention_runs_total")
	assert.Contains(t, names, "skillcat_retention_pruned_logs_total")
	assert.Contains(t, names, "skillcat_retention_rollup_rows_total")
	assert.Contains(t, names, "skillcat_retention_duration_seconds")
	assert.Contains(t, names, "skillcat_usage_recorded_total")
	assert.Contains(t, names, "skillcat_recommend_cache_entries")
}

func TestPrometheusMetrics_Values(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.ObserveIndexBuild(10, 2, time.Millisecond)
	m.ObserveIndexBuild(12, 0, time.Millisecond)
	assert.Equal(t, 2.0, value(t, m.indexBuilds))
	assert.Equal(t, 12.0, value(t, m.indexedRecords))
	assert.Equal(t, 0.0, value(t, m.skippedRecords))

	m.ObserveRetentionRun(5, 4, 1, time.Millisecond, nil)
	m.ObserveRetentionRun(0, 0, 0, time.Millisecond, errors.New("boom"))
	assert.Equal(t, 1.0, value(t, m.retentionRuns.WithLabelValues("success")))
	assert.Equal(t, 1.0, value(t, m.retentionRuns.WithLabelValues("error")))
	assert.Equal(t, 5.0, value(t, m.retentionPruned))
	assert.Equal(t, 4.0, value(t, m.rollupRows.WithLabelValues("daily")))
	assert.Equal(t, 1.0, value(t, m.rollupRows.WithLabelValues("weekly")))

	m.ObserveUsageRecorded(domain.RecordKindTool, false)
	m.ObserveUsageRecorded("", true)
	assert.Equal(t, 1.0, value(t, m.usageRecorded.WithLabelValues("tool", "failure")))
	assert.Equal(t, 1.0, value(t, m.usageRecorded.WithLabelValues("unknown", "success")))

	m.SetCacheEntries(3)
	assert.Equal(t, 3.0, value(t, m.cacheEntries))
}

func TestNoopMetrics(t *testing.T) {
	var m domain.Metrics = NewNoopMetrics()
	m.ObserveRecommend(domain.RecommendOutcomeFailed, time.Second, 0)
	m.ObserveIndexBuild(1, 1, time.Second)
	m.ObserveRetentionRun(1, 1, 1, time.Second, errors.New("x"))
	m.ObserveUsageRecorded(domain.RecordKindSkill, true)
	m.SetCacheEntries(1)
}

func value(t *testing.T, metric prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, metric.Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}
