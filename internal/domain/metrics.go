package domain

import "time"

// RecommendOutcome labels how a recommendation request was served.
type RecommendOutcome string

const (
	// RecommendOutcomeCacheHit indicates the result came from the cache.
	RecommendOutcomeCacheHit RecommendOutcome = "cache_hit"
	// RecommendOutcomeComputed indicates the result was scored fresh.
	RecommendOutcomeComputed RecommendOutcome = "computed"
	// RecommendOutcomeFailed indicates scoring failed and an empty list was returned.
	RecommendOutcomeFailed RecommendOutcome = "failed"
)

// Metrics abstracts observability for the catalog core.
type Metrics interface {
	ObserveRecommend(outcome RecommendOutcome, duration time.Duration, results int)
	ObserveIndexBuild(indexed int, skipped int, duration time.Duration)
	ObserveRetentionRun(pruned int, dailyRows int, weeklyRows int, duration time.Duration, err error)
	ObserveUsageRecorded(kind RecordKind, success bool)
	SetCacheEntries(count int)
}
