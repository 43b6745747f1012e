package domain

import "slices"

// RecordKind distinguishes tools from skills (tool bundles).
type RecordKind string

const (
	RecordKindTool  RecordKind = "tool"
	RecordKindSkill RecordKind = "skill"
)

// DefaultRiskLevel is applied to records that do not declare a risk level.
const DefaultRiskLevel = 1

// CatalogRecord is the shared shape of a Tool and a Skill.
type CatalogRecord struct {
	ID                  string     `json:"id"`
	Kind                RecordKind `json:"kind,omitempty"`
	Name                string     `json:"name"`
	DisplayName         string     `json:"displayName,omitempty"`
	Description         string     `json:"description,omitempty"`
	Category            string     `json:"category,omitempty"`
	Tags                []string   `json:"tags,omitempty"`
	RequiredPermissions []string   `json:"requiredPermissions,omitempty"`
	RiskLevel           int        `json:"riskLevel"`
	Enabled             bool       `json:"enabled"`
	// Tools lists associated tool ids; only meaningful for skills.
	Tools        []string `json:"tools,omitempty"`
	UsageCount   int64    `json:"usageCount"`
	SuccessCount int64    `json:"successCount"`
}

// Valid reports whether the record carries the identity fields every index needs.
func (r CatalogRecord) Valid() bool {
	return r.ID != "" && r.Name != ""
}

// EffectiveRiskLevel returns the risk level with the default applied.
func (r CatalogRecord) EffectiveRiskLevel() int {
	if r.RiskLevel <= 0 {
		return DefaultRiskLevel
	}
	return r.RiskLevel
}

// HasPermission reports whether the record requires the given permission.
func (r CatalogRecord) HasPermission(permission string) bool {
	return slices.Contains(r.RequiredPermissions, permission)
}

// HasAllPermissions reports whether every listed permission is required by the record.
func (r CatalogRecord) HasAllPermissions(permissions []string) bool {
	for _, permission := range permissions {
		if !r.HasPermission(permission) {
			return false
		}
	}
	return true
}

// Counters returns the usage counters carried on the record.
func (r CatalogRecord) Counters() UsageCounters {
	return UsageCounters{UsageCount: r.UsageCount, SuccessCount: r.SuccessCount}
}

// CloneCatalogRecord deep-copies slice fields so callers cannot mutate shared state.
func CloneCatalogRecord(r CatalogRecord) CatalogRecord {
	r.Tags = slices.Clone(r.Tags)
	r.RequiredPermissions = slices.Clone(r.RequiredPermissions)
	r.Tools = slices.Clone(r.Tools)
	return r
}

// CloneCatalogRecords copies a record slice element by element.
func CloneCatalogRecords(records []CatalogRecord) []CatalogRecord {
	if records == nil {
		return nil
	}
	out := make([]CatalogRecord, len(records))
	for i, record := range records {
		out[i] = CloneCatalogRecord(record)
	}
	return out
}

// NormalizeRecord applies ingestion defaults. It never rejects a record;
// identity validation happens where the record is indexed.
func NormalizeRecord(r CatalogRecord, kind RecordKind) CatalogRecord {
	if r.Kind == "" {
		r.Kind = kind
	}
	r.RiskLevel = r.EffectiveRiskLevel()
	if r.UsageCount < 0 {
		r.UsageCount = 0
	}
	if r.SuccessCount < 0 {
		r.SuccessCount = 0
	}
	r.RequiredPermissions = dedupeStrings(r.RequiredPermissions)
	return r
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
