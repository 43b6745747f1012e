package telemetry

import (
	"time"

	"skillcat/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveRecommend(_ domain.RecommendOutcome, _ time.Duration, _ int) {}

func (n *NoopMetrics) ObserveIndexBuild(_ int, _ int, _ time.Duration) {}

func (n *NoopMetrics) ObserveRetentionRun(_ int, _ int, _ int, _ time.Duration, _ error) {}

func (n *NoopMetrics) ObserveUsageRecorded(_ domain.RecordKind, _ bool) {}

func (n *NoopMetrics) SetCacheEntries(_ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
