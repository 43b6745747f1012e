package recommend

import (
	"fmt"
	"strings"

	"skillcat/internal/domain"
)

type recommendOptions struct {
	limit             int
	threshold         float64
	includeUsageStats bool
	enabledOnly       bool
}

func defaultRecommendOptions() recommendOptions {
	return recommendOptions{
		limit:             domain.DefaultRecommendLimit,
		threshold:         domain.DefaultRecommendThreshold,
		includeUsageStats: true,
		enabledOnly:       true,
	}
}

// RecommendOption adjusts a single Recommend call.
type RecommendOption func(*recommendOptions)

// WithLimit caps the number of results. Non-positive values keep the default.
func WithLimit(limit int) RecommendOption {
	return func(o *recommendOptions) {
		if limit > 0 {
			o.limit = limit
		}
	}
}

// WithThreshold sets the minimum score a record needs to qualify.
func WithThreshold(threshold float64) RecommendOption {
	return func(o *recommendOptions) {
		o.threshold = threshold
	}
}

// WithUsageStats toggles the historical usage term.
func WithUsageStats(include bool) RecommendOption {
	return func(o *recommendOptions) {
		o.includeUsageStats = include
	}
}

// WithEnabledOnly toggles exclusion of disabled records.
func WithEnabledOnly(enabledOnly bool) RecommendOption {
	return func(o *recommendOptions) {
		o.enabledOnly = enabledOnly
	}
}

func resolveRecommendOptions(opts []RecommendOption) recommendOptions {
	resolved := defaultRecommendOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&resolved)
		}
	}
	return resolved
}

func (o recommendOptions) cacheKey(text string) string {
	return fmt.Sprintf("%s|%d|%g|%t|%t", normalizeQuery(text), o.limit, o.threshold, o.includeUsageStats, o.enabledOnly)
}

func normalizeQuery(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

type searchOptions struct {
	category    string
	enabledOnly bool
	limit       int
}

// SearchOption adjusts a single SearchSkills call.
type SearchOption func(*searchOptions)

// WithCategory restricts search to one category.
func WithCategory(category string) SearchOption {
	return func(o *searchOptions) {
		o.category = category
	}
}

// WithSearchEnabledOnly toggles exclusion of disabled records.
func WithSearchEnabledOnly(enabledOnly bool) SearchOption {
	return func(o *searchOptions) {
		o.enabledOnly = enabledOnly
	}
}

// WithSearchLimit caps search results. Non-positive values keep the default.
func WithSearchLimit(limit int) SearchOption {
	return func(o *searchOptions) {
		if limit > 0 {
			o.limit = limit
		}
	}
}

func resolveSearchOptions(opts []SearchOption) searchOptions {
	resolved := searchOptions{enabledOnly: true, limit: domain.DefaultSearchLimit}
	for _, opt := range opts {
		if opt != nil {
			opt(&resolved)
		}
	}
	return resolved
}
