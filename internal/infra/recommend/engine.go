// Package recommend ranks catalog records against free-text input with an
// explainable heuristic: intent keyword matching, text similarity and
// historical usage.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"skillcat/internal/domain"
	"skillcat/internal/infra/telemetry"
)

const (
	defaultCacheTTL          = 5 * time.Minute
	defaultLookupConcurrency = 8

	intentWeight = 0.5
	textWeight   = 0.3
	usageWeight  = 0.2

	// Three distinct keyword hits saturate intent confidence.
	intentSaturation = 3
)

// Options configures an Engine.
type Options struct {
	Accessor domain.CatalogAccessor
	// Usage supplies live counters; nil means the records' own counters are used.
	Usage    domain.UsageReader
	Taxonomy *domain.Taxonomy
	// Kind restricts every operation to one record kind; empty means all kinds.
	Kind              domain.RecordKind
	CacheTTL          time.Duration
	LookupConcurrency int
	Logger            *zap.Logger
	Metrics           domain.Metrics
	Now               func() time.Time
}

// Engine scores and ranks catalog records.
type Engine struct {
	accessor          domain.CatalogAccessor
	usage             domain.UsageReader
	taxonomy          domain.Taxonomy
	categoryIntents   map[string]map[string]struct{}
	kind              domain.RecordKind
	lookupConcurrency int
	logger            *zap.Logger
	metrics           domain.Metrics
	now               func() time.Time
	cache             *resultCache
}

// IntentMatch is one detected intent with its confidence in (0,1].
type IntentMatch struct {
	Intent     string   `json:"intent"`
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Keywords   []string `json:"keywords"`
}

// ScoreBreakdown exposes the weighted terms behind a score.
type ScoreBreakdown struct {
	Intent        float64 `json:"intent"`
	Text          float64 `json:"text"`
	Usage         float64 `json:"usage"`
	MatchedIntent string  `json:"matchedIntent,omitempty"`
}

// Recommendation is a ranked, explained result.
type Recommendation struct {
	Record    domain.CatalogRecord `json:"record"`
	Score     float64              `json:"score"`
	Reason    string               `json:"reason"`
	Breakdown ScoreBreakdown       `json:"breakdown"`
}

// NewEngine validates options and builds an engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Accessor == nil {
		return nil, errors.New("catalog accessor is required")
	}
	taxonomy := domain.DefaultTaxonomy()
	if opts.Taxonomy != nil {
		taxonomy = *opts.Taxonomy
	}
	if err := taxonomy.Validate(); err != nil {
		return nil, fmt.Errorf("taxonomy: %w", err)
	}
	taxonomy = taxonomy.Normalized()

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	concurrency := opts.LookupConcurrency
	if concurrency <= 0 {
		concurrency = defaultLookupConcurrency
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	categoryIntents := make(map[string]map[string]struct{}, len(taxonomy.CategoryIntents))
	for category, intents := range taxonomy.CategoryIntents {
		set := make(map[string]struct{}, len(intents))
		for _, intent := range intents {
			set[intent] = struct{}{}
		}
		categoryIntents[category] = set
	}

	return &Engine{
		accessor:          opts.Accessor,
		usage:             opts.Usage,
		taxonomy:          taxonomy,
		categoryIntents:   categoryIntents,
		kind:              opts.Kind,
		lookupConcurrency: concurrency,
		logger:            logger.Named("recommend"),
		metrics:           opts.Metrics,
		now:               now,
		cache:             newResultCache(ttl),
	}, nil
}

// AnalyzeIntent counts keyword hits per intent and returns the intents with
// at least one hit, ordered by descending confidence.
func (e *Engine) AnalyzeIntent(text string) []IntentMatch {
	lowered := strings.ToLower(text)
	matches := make([]IntentMatch, 0)
	for _, rule := range e.taxonomy.Intents {
		var hits []string
		for _, keyword := range rule.Keywords {
			if strings.Contains(lowered, keyword) {
				hits = append(hits, keyword)
			}
		}
		if len(hits) == 0 {
			continue
		}
		matches = append(matches, IntentMatch{
			Intent:     rule.Intent,
			Label:      rule.DisplayLabel(),
			Confidence: min(float64(len(hits))/intentSaturation, 1),
			Keywords:   hits,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

// ScoreRecord computes the weighted score of a record against analyzed intents and text.
func (e *Engine) ScoreRecord(record domain.CatalogRecord, intents []IntentMatch, text string, includeUsage bool) (float64, ScoreBreakdown) {
	var breakdown ScoreBreakdown
	breakdown.Intent, breakdown.MatchedIntent = e.intentRelevance(record, intents)
	breakdown.Text = textSimilarity(record, text)
	if includeUsage {
		breakdown.Usage = usageScore(record.Counters())
	}
	score := breakdown.Intent*intentWeight + breakdown.Text*textWeight + breakdown.Usage*usageWeight
	return min(score, 1), breakdown
}

func (e *Engine) intentRelevance(record domain.CatalogRecord, intents []IntentMatch) (float64, string) {
	if len(intents) == 0 || record.Category == "" {
		return 0, ""
	}
	satisfied, ok := e.categoryIntents[record.Category]
	if !ok {
		return 0, ""
	}
	best, bestIntent := 0.0, ""
	for _, intent := range intents {
		if _, ok := satisfied[intent.Intent]; !ok {
			continue
		}
		if intent.Confidence > best {
			best, bestIntent = intent.Confidence, intent.Intent
		}
	}
	return clamp01(best), bestIntent
}

func textSimilarity(record domain.CatalogRecord, text string) float64 {
	input := strings.ToLower(text)
	name := strings.ToLower(record.Name)
	description := strings.ToLower(record.Description)

	score := 0.0
	if strings.Contains(input, name) || strings.Contains(name, input) {
		score += 0.5
	}

	words := make([]string, 0)
	for _, word := range strings.Fields(input) {
		if len([]rune(word)) > 1 {
			words = append(words, word)
		}
	}
	if len(words) > 0 {
		matched := 0
		for _, word := range words {
			if strings.Contains(name, word) || strings.Contains(description, word) {
				matched++
			}
		}
		score += float64(matched) / float64(len(words)) * 0.5
	}
	return clamp01(score)
}

func usageScore(counters domain.UsageCounters) float64 {
	return clamp01(counters.SuccessRate()*0.7 + counters.UsageVolume()*0.3)
}

func clamp01(v float64) float64 {
	return max(0, min(v, 1))
}

// Recommend ranks records against text. It never fails: any internal error
// is logged and yields an empty list.
func (e *Engine) Recommend(ctx context.Context, text string, opts ...RecommendOption) (results []Recommendation) {
	cfg := resolveRecommendOptions(opts)
	started := e.now()
	if strings.TrimSpace(text) == "" {
		return []Recommendation{}
	}

	key := cfg.cacheKey(text)
	if cached, ok := e.cache.get(key, started); ok {
		e.observe(domain.RecommendOutcomeCacheHit, started, len(cached))
		return cached
	}

	defer func() {
		if r := recover(); r != nil {
			telemetry.LoggerWithRequest(ctx, e.logger).Error("recommendation panicked",
				telemetry.EventField(telemetry.EventRecommendFailed),
				telemetry.QueryField(text),
				zap.Any("panic", r),
			)
			e.observe(domain.RecommendOutcomeFailed, started, 0)
			results = []Recommendation{}
		}
	}()

	ranked, err := e.rank(ctx, text, cfg)
	if err != nil {
		telemetry.LoggerWithRequest(ctx, e.logger).Error("recommendation failed",
			telemetry.EventField(telemetry.EventRecommendFailed),
			telemetry.QueryField(text),
			zap.Error(err),
		)
		e.observe(domain.RecommendOutcomeFailed, started, 0)
		return []Recommendation{}
	}

	entries := e.cache.set(key, ranked, e.now())
	if e.metrics != nil {
		e.metrics.SetCacheEntries(entries)
	}
	e.observe(domain.RecommendOutcomeComputed, started, len(ranked))
	return ranked
}

func (e *Engine) rank(ctx context.Context, text string, cfg recommendOptions) ([]Recommendation, error) {
	intents := e.AnalyzeIntent(text)

	filter := domain.RecordFilter{Kind: e.kind}
	if cfg.enabledOnly {
		filter.Enabled = domain.Bool(true)
	}
	candidates, err := e.accessor.ListRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	if cfg.includeUsageStats {
		e.refreshCounters(ctx, candidates)
	}

	ranked := make([]Recommendation, 0, len(candidates))
	for _, record := range candidates {
		score, breakdown := e.ScoreRecord(record, intents, text, cfg.includeUsageStats)
		if score < cfg.threshold {
			continue
		}
		ranked = append(ranked, Recommendation{Record: record, Score: score, Breakdown: breakdown})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > cfg.limit {
		ranked = ranked[:cfg.limit]
	}
	for i := range ranked {
		ranked[i].Reason = e.reason(ranked[i])
	}
	return ranked, nil
}

// refreshCounters overlays live counters onto candidates. Each lookup writes
// only its own slot, so the result does not depend on completion order.
// Counters are monotonic, so the larger of the two views is the fresher one.
func (e *Engine) refreshCounters(ctx context.Context, candidates []domain.CatalogRecord) {
	if e.usage == nil || len(candidates) == 0 {
		return
	}
	sem := make(chan struct{}, e.lookupConcurrency)
	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					e.logger.Warn("usage lookup panicked; using catalog counters",
						zap.String("id", candidates[i].ID),
						zap.Any("panic", r),
					)
				}
			}()
			counters, err := e.usage.UsageCounters(ctx, candidates[i].ID)
			if err != nil {
				e.logger.Debug("usage lookup failed; using catalog counters",
					zap.String("id", candidates[i].ID),
					zap.Error(err),
				)
				return
			}
			candidates[i].UsageCount = max(candidates[i].UsageCount, counters.UsageCount)
			candidates[i].SuccessCount = max(candidates[i].SuccessCount, counters.SuccessCount)
		}(i)
	}
	wg.Wait()
}

func (e *Engine) reason(rec Recommendation) string {
	var parts []string
	if rec.Breakdown.MatchedIntent != "" {
		label := rec.Breakdown.MatchedIntent
		if rule, ok := e.taxonomy.Rule(label); ok {
			label = rule.DisplayLabel()
		}
		parts = append(parts, fmt.Sprintf("matches your %s needs", label))
	}
	counters := rec.Record.Counters()
	if counters.UsageCount > 10 {
		parts = append(parts, fmt.Sprintf("frequently used (%d times)", counters.UsageCount))
	}
	if rate := counters.SuccessRate(); rate >= 0.8 {
		parts = append(parts, fmt.Sprintf("%.0f%% success rate", rate*100))
	}
	if rec.Score >= 0.8 {
		parts = append(parts, "highly relevant")
	}
	if len(parts) == 0 {
		return "possibly relevant to your request"
	}
	return strings.Join(parts, "; ")
}

func (e *Engine) observe(outcome domain.RecommendOutcome, started time.Time, results int) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveRecommend(outcome, e.now().Sub(started), results)
}

// ClearCache drops every cached result. Callers must invoke it after any
// catalog change; there is no partial invalidation.
func (e *Engine) ClearCache() {
	e.cache.clear()
	if e.metrics != nil {
		e.metrics.SetCacheEntries(0)
	}
}

// Stats describes the engine's cache and taxonomy.
type Stats struct {
	CacheEntries     int           `json:"cacheEntries"`
	CacheHits        uint64        `json:"cacheHits"`
	CacheMisses      uint64        `json:"cacheMisses"`
	CacheTTL         time.Duration `json:"cacheTTL"`
	Intents          int           `json:"intents"`
	CategoryMappings int           `json:"categoryMappings"`
}

// Stats reports cache and taxonomy sizes.
func (e *Engine) Stats() Stats {
	cs := e.cache.stats()
	return Stats{
		CacheEntries:     cs.entries,
		CacheHits:        cs.hits,
		CacheMisses:      cs.misses,
		CacheTTL:         e.cache.ttl,
		Intents:          len(e.taxonomy.Intents),
		CategoryMappings: len(e.taxonomy.CategoryIntents),
	}
}

func cloneRecommendations(in []Recommendation) []Recommendation {
	out := make([]Recommendation, len(in))
	for i, rec := range in {
		rec.Record = domain.CloneCatalogRecord(rec.Record)
		out[i] = rec
	}
	return out
}
