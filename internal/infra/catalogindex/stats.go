package catalogindex

import (
	"fmt"
	"sort"
)

const topPermissionLimit = 10

// PermissionUsage counts the distinct records requiring a permission.
type PermissionUsage struct {
	Permission string `json:"permission"`
	Count      int    `json:"count"`
}

// Stats summarizes the index contents.
type Stats struct {
	TotalRecords    int               `json:"totalRecords"`
	Skipped         int               `json:"skipped"`
	CategoryCount   int               `json:"categoryCount"`
	PermissionCount int               `json:"permissionCount"`
	RiskLevelCount  int               `json:"riskLevelCount"`
	ByCategory      map[string]int    `json:"byCategory"`
	ByRiskLevel     map[int]int       `json:"byRiskLevel"`
	TopPermissions  []PermissionUsage `json:"topPermissions"`
}

// Stats returns aggregate counts and the ten most-required permissions,
// ordered by count descending with ties kept in first-seen order.
func (idx *CatalogIndex) Stats() Stats {
	stats := Stats{
		TotalRecords:    len(idx.records),
		Skipped:         idx.skipped,
		CategoryCount:   len(idx.byCategory),
		PermissionCount: len(idx.byPermission),
		RiskLevelCount:  len(idx.byRisk),
		ByCategory:      make(map[string]int, len(idx.byCategory)),
		ByRiskLevel:     make(map[int]int, len(idx.byRisk)),
	}
	for category, records := range idx.byCategory {
		stats.ByCategory[category] = len(records)
	}
	for level, records := range idx.byRisk {
		stats.ByRiskLevel[level] = len(records)
	}

	usage := make([]PermissionUsage, 0, len(idx.permissionOrder))
	for _, permission := range idx.permissionOrder {
		usage = append(usage, PermissionUsage{Permission: permission, Count: idx.byPermission[permission].len()})
	}
	sort.SliceStable(usage, func(i, j int) bool {
		return usage[i].Count > usage[j].Count
	})
	if len(usage) > topPermissionLimit {
		usage = usage[:topPermissionLimit]
	}
	stats.TopPermissions = usage
	return stats
}

// HealthReport describes index consistency. Issues make the index unhealthy;
// warnings are informational.
type HealthReport struct {
	Healthy         bool     `json:"healthy"`
	InputRecords    int      `json:"inputRecords"`
	ValidRecords    int      `json:"validRecords"`
	UniqueIDs       int      `json:"uniqueIds"`
	MissingID       []string `json:"missingId,omitempty"`
	MissingName     []string `json:"missingName,omitempty"`
	MissingCategory []string `json:"missingCategory,omitempty"`
	Issues          []string `json:"issues"`
	Warnings        []string `json:"warnings,omitempty"`
}

// HealthCheck inspects the original input and the built maps. It never fails.
func (idx *CatalogIndex) HealthCheck() HealthReport {
	report := HealthReport{
		InputRecords: len(idx.input),
		ValidRecords: len(idx.records),
		UniqueIDs:    len(idx.byID),
		Issues:       []string{},
	}
	for i, record := range idx.input {
		label := recordLabel(i, record.ID, record.Name)
		if record.ID == "" {
			report.MissingID = append(report.MissingID, label)
		}
		if record.Name == "" {
			report.MissingName = append(report.MissingName, label)
		}
		if record.Category == "" {
			report.MissingCategory = append(report.MissingCategory, label)
		}
	}

	if n := len(report.MissingID); n > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d record(s) missing id", n))
	}
	if n := len(report.MissingName); n > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d record(s) missing name", n))
	}
	if report.UniqueIDs != report.ValidRecords {
		report.Issues = append(report.Issues, fmt.Sprintf("id index holds %d entries but %d records were validated (duplicate ids)", report.UniqueIDs, report.ValidRecords))
	}
	if n := len(report.MissingCategory); n > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d record(s) missing category", n))
	}
	report.Healthy = len(report.Issues) == 0
	return report
}

func recordLabel(position int, id, name string) string {
	switch {
	case id != "":
		return id
	case name != "":
		return fmt.Sprintf("records[%d] (%s)", position, name)
	default:
		return fmt.Sprintf("records[%d]", position)
	}
}
