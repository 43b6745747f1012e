package domain

import (
	"reflect"
	"sort"
)

// CatalogDiff summarizes changes between catalog states. Record keys are
// "kind/id".
type CatalogDiff struct {
	AddedRecords    []string
	RemovedRecords  []string
	UpdatedRecords  []string
	TaxonomyChanged bool
	Runtime         RuntimeDiff
}

// IsEmpty reports whether the diff contains any changes.
func (d CatalogDiff) IsEmpty() bool {
	return len(d.AddedRecords) == 0 &&
		len(d.RemovedRecords) == 0 &&
		len(d.UpdatedRecords) == 0 &&
		!d.TaxonomyChanged &&
		d.Runtime.IsEmpty()
}

// RecordsChanged reports whether any record was added, removed or updated.
func (d CatalogDiff) RecordsChanged() bool {
	return len(d.AddedRecords) > 0 || len(d.RemovedRecords) > 0 || len(d.UpdatedRecords) > 0
}

// DiffCatalogStates computes a diff between two catalog states. Duplicate
// ids resolve last-wins, matching index construction.
func DiffCatalogStates(prev CatalogState, next CatalogState) CatalogDiff {
	diff := CatalogDiff{
		Runtime:         DiffRuntimeConfig(prev.Catalog.Runtime, next.Catalog.Runtime),
		TaxonomyChanged: !reflect.DeepEqual(prev.Catalog.Taxonomy.Normalized(), next.Catalog.Taxonomy.Normalized()),
	}

	prevRecords := recordsByKey(prev.Catalog)
	nextRecords := recordsByKey(next.Catalog)

	for key, prevRecord := range prevRecords {
		nextRecord, ok := nextRecords[key]
		if !ok {
			diff.RemovedRecords = append(diff.RemovedRecords, key)
			continue
		}
		if !reflect.DeepEqual(prevRecord, nextRecord) {
			diff.UpdatedRecords = append(diff.UpdatedRecords, key)
		}
	}
	for key := range nextRecords {
		if _, ok := prevRecords[key]; !ok {
			diff.AddedRecords = append(diff.AddedRecords, key)
		}
	}

	sort.Strings(diff.AddedRecords)
	sort.Strings(diff.RemovedRecords)
	sort.Strings(diff.UpdatedRecords)

	return diff
}

func recordsByKey(catalog Catalog) map[string]CatalogRecord {
	out := make(map[string]CatalogRecord, len(catalog.Tools)+len(catalog.Skills))
	for _, record := range catalog.Records() {
		if record.ID == "" {
			continue
		}
		out[string(record.Kind)+"/"+record.ID] = record
	}
	return out
}
