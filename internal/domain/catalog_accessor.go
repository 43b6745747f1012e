package domain

import "context"

// RecordFilter narrows a record listing. Zero-valued fields are no-ops.
type RecordFilter struct {
	Kind        RecordKind
	Category    string
	RiskLevel   int
	Permissions []string
	Enabled     *bool
}

// Matches reports whether the record satisfies every set filter field.
func (f RecordFilter) Matches(r CatalogRecord) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.RiskLevel != 0 && r.EffectiveRiskLevel() != f.RiskLevel {
		return false
	}
	if len(f.Permissions) > 0 && !r.HasAllPermissions(f.Permissions) {
		return false
	}
	if f.Enabled != nil && r.Enabled != *f.Enabled {
		return false
	}
	return true
}

// IsZero reports whether no filter field is set.
func (f RecordFilter) IsZero() bool {
	return f.Kind == "" && f.Category == "" && f.RiskLevel == 0 && len(f.Permissions) == 0 && f.Enabled == nil
}

// Bool returns a pointer to v, for optional filter fields.
func Bool(v bool) *bool {
	return &v
}

// CatalogAccessor abstracts read access to catalog records.
type CatalogAccessor interface {
	ListRecords(ctx context.Context, filter RecordFilter) ([]CatalogRecord, error)
	AssociatedToolIDs(ctx context.Context, skillID string) ([]string, error)
}
