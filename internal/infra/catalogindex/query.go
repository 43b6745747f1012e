package catalogindex

import (
	"context"
	"strings"

	"skillcat/internal/domain"
)

// SearchField names a text field that Search matches against.
type SearchField string

const (
	FieldID          SearchField = "id"
	FieldName        SearchField = "name"
	FieldDisplayName SearchField = "displayName"
	FieldDescription SearchField = "description"
	FieldCategory    SearchField = "category"
	FieldTags        SearchField = "tags"
)

// DefaultSearchFields are used when Search is called without fields.
var DefaultSearchFields = []SearchField{FieldName, FieldDisplayName, FieldDescription}

// Query returns the records matching every set filter field, narrowing the
// full record list one filter at a time. An empty filter returns everything.
func (idx *CatalogIndex) Query(filter domain.RecordFilter) []domain.CatalogRecord {
	results := idx.records
	if filter.Kind != "" {
		results = narrow(results, func(r domain.CatalogRecord) bool { return r.Kind == filter.Kind })
	}
	if filter.Category != "" {
		results = narrow(results, func(r domain.CatalogRecord) bool { return r.Category == filter.Category })
	}
	if filter.RiskLevel != 0 {
		results = narrow(results, func(r domain.CatalogRecord) bool { return r.EffectiveRiskLevel() == filter.RiskLevel })
	}
	if len(filter.Permissions) > 0 {
		results = narrow(results, func(r domain.CatalogRecord) bool { return r.HasAllPermissions(filter.Permissions) })
	}
	if filter.Enabled != nil {
		enabled := *filter.Enabled
		results = narrow(results, func(r domain.CatalogRecord) bool { return r.Enabled == enabled })
	}
	return cloneOrEmpty(results)
}

func narrow(records []domain.CatalogRecord, keep func(domain.CatalogRecord) bool) []domain.CatalogRecord {
	out := make([]domain.CatalogRecord, 0, len(records))
	for _, record := range records {
		if keep(record) {
			out = append(out, record)
		}
	}
	return out
}

// Search returns records where any of the fields contains keyword,
// case-insensitively. An empty keyword matches nothing.
func (idx *CatalogIndex) Search(keyword string, fields ...SearchField) []domain.CatalogRecord {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return []domain.CatalogRecord{}
	}
	if len(fields) == 0 {
		fields = DefaultSearchFields
	}
	out := make([]domain.CatalogRecord, 0)
	for _, record := range idx.records {
		if matchesAnyField(record, needle, fields) {
			out = append(out, domain.CloneCatalogRecord(record))
		}
	}
	return out
}

func matchesAnyField(record domain.CatalogRecord, needle string, fields []SearchField) bool {
	for _, field := range fields {
		for _, value := range fieldValues(record, field) {
			if strings.Contains(strings.ToLower(value), needle) {
				return true
			}
		}
	}
	return false
}

func fieldValues(record domain.CatalogRecord, field SearchField) []string {
	switch field {
	case FieldID:
		return []string{record.ID}
	case FieldName:
		return []string{record.Name}
	case FieldDisplayName:
		return []string{record.DisplayName}
	case FieldDescription:
		return []string{record.Description}
	case FieldCategory:
		return []string{record.Category}
	case FieldTags:
		return record.Tags
	default:
		return nil
	}
}

// ListRecords implements domain.CatalogAccessor over the index.
func (idx *CatalogIndex) ListRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.CatalogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return idx.Query(filter), nil
}

// AssociatedToolIDs implements domain.CatalogAccessor; unknown skills have no tools.
func (idx *CatalogIndex) AssociatedToolIDs(ctx context.Context, skillID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	record, ok := idx.byID[skillID]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), record.Tools...), nil
}

var _ domain.CatalogAccessor = (*CatalogIndex)(nil)
