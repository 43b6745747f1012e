package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"skillcat/internal/domain"
)

// PopularSkill is a record ranked by historical success.
type PopularSkill struct {
	Record      domain.CatalogRecord `json:"record"`
	SuccessRate float64              `json:"successRate"`
	// Popularity is a 0-100 blend of success rate and usage volume.
	Popularity float64 `json:"popularity"`
}

// PopularSkills returns enabled, used records ordered by usageCount*successRate.
func (e *Engine) PopularSkills(ctx context.Context, limit int) ([]PopularSkill, error) {
	if limit <= 0 {
		limit = domain.DefaultPopularLimit
	}
	records, err := e.accessor.ListRecords(ctx, domain.RecordFilter{Kind: e.kind, Enabled: domain.Bool(true)})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	e.refreshCounters(ctx, records)

	popular := make([]PopularSkill, 0, len(records))
	for _, record := range records {
		counters := record.Counters()
		if counters.UsageCount <= 0 {
			continue
		}
		rate := counters.SuccessRate()
		volume := min(float64(counters.UsageCount)/100, 1)
		popular = append(popular, PopularSkill{
			Record:      record,
			SuccessRate: rate,
			Popularity:  (rate*0.6 + volume*0.4) * 100,
		})
	}
	sort.SliceStable(popular, func(i, j int) bool {
		return weightedUsage(popular[i]) > weightedUsage(popular[j])
	})
	if len(popular) > limit {
		popular = popular[:limit]
	}
	return popular, nil
}

func weightedUsage(p PopularSkill) float64 {
	return float64(p.Record.UsageCount) * p.SuccessRate
}

// RelatedSkill is a record related to an anchor by category and shared tools.
type RelatedSkill struct {
	Record      domain.CatalogRecord `json:"record"`
	Score       float64              `json:"score"`
	SharedTools int                  `json:"sharedTools"`
}

// RelatedSkills scores every other enabled record against the anchor:
// +0.5 for the same category plus min(shared*0.3, 0.5) for shared tools.
// An unknown anchor yields an empty list.
func (e *Engine) RelatedSkills(ctx context.Context, skillID string, limit int) ([]RelatedSkill, error) {
	if limit <= 0 {
		limit = domain.DefaultRelatedLimit
	}
	records, err := e.accessor.ListRecords(ctx, domain.RecordFilter{Kind: e.kind})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	var anchor *domain.CatalogRecord
	for i := range records {
		if records[i].ID == skillID {
			anchor = &records[i]
			break
		}
	}
	if anchor == nil {
		return []RelatedSkill{}, nil
	}

	anchorTools, err := e.accessor.AssociatedToolIDs(ctx, anchor.ID)
	if err != nil {
		return nil, fmt.Errorf("tools for %s: %w", anchor.ID, err)
	}
	anchorSet := make(map[string]struct{}, len(anchorTools))
	for _, id := range anchorTools {
		anchorSet[id] = struct{}{}
	}

	related := make([]RelatedSkill, 0)
	for _, record := range records {
		if record.ID == anchor.ID || !record.Enabled {
			continue
		}
		score := 0.0
		if anchor.Category != "" && record.Category == anchor.Category {
			score += 0.5
		}
		tools, err := e.accessor.AssociatedToolIDs(ctx, record.ID)
		if err != nil {
			return nil, fmt.Errorf("tools for %s: %w", record.ID, err)
		}
		shared := sharedCount(anchorSet, tools)
		score += min(float64(shared)*0.3, 0.5)
		if score <= 0 {
			continue
		}
		related = append(related, RelatedSkill{Record: record, Score: score, SharedTools: shared})
	}
	sort.SliceStable(related, func(i, j int) bool {
		return related[i].Score > related[j].Score
	})
	if len(related) > limit {
		related = related[:limit]
	}
	return related, nil
}

func sharedCount(anchor map[string]struct{}, tools []string) int {
	seen := make(map[string]struct{}, len(tools))
	count := 0
	for _, id := range tools {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := anchor[id]; ok {
			count++
		}
	}
	return count
}

// SearchResult is a record scored against a search query.
type SearchResult struct {
	Record domain.CatalogRecord `json:"record"`
	Score  float64              `json:"score"`
}

// SearchSkills scores records by name, description and id matches. An empty
// query returns the first records unscored.
func (e *Engine) SearchSkills(ctx context.Context, query string, opts ...SearchOption) ([]SearchResult, error) {
	cfg := resolveSearchOptions(opts)
	filter := domain.RecordFilter{Kind: e.kind, Category: cfg.category}
	if cfg.enabledOnly {
		filter.Enabled = domain.Bool(true)
	}
	records, err := e.accessor.ListRecords(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	needle := normalizeQuery(query)
	if needle == "" {
		if len(records) > cfg.limit {
			records = records[:cfg.limit]
		}
		out := make([]SearchResult, 0, len(records))
		for _, record := range records {
			out = append(out, SearchResult{Record: record})
		}
		return out, nil
	}

	results := make([]SearchResult, 0)
	for _, record := range records {
		if score := searchScore(record, needle); score > 0 {
			results = append(results, SearchResult{Record: record, Score: score})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > cfg.limit {
		results = results[:cfg.limit]
	}
	return results, nil
}

func searchScore(record domain.CatalogRecord, needle string) float64 {
	name := strings.ToLower(record.Name)
	score := 0.0
	switch {
	case name == needle:
		score += 1.0
	case strings.Contains(name, needle):
		score += 0.7
	case strings.Contains(needle, name):
		score += 0.5
	}
	if strings.Contains(strings.ToLower(record.Description), needle) {
		score += 0.3
	}
	if strings.Contains(strings.ToLower(record.ID), needle) {
		score += 0.2
	}
	return score
}
