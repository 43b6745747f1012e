// Package catalogindex builds immutable lookup structures over catalog records.
//
// An index is built once from a record sequence and never mutated; a catalog
// change is handled by building a new index and swapping it in. All lookups
// return copies, so an index can be shared across goroutines without locks.
package catalogindex

import (
	"time"

	"go.uber.org/zap"

	"skillcat/internal/domain"
)

// Options configures index construction.
type Options struct {
	Logger  *zap.Logger
	Metrics domain.Metrics
}

// CatalogIndex holds the id, name, category, permission and risk-level maps.
type CatalogIndex struct {
	logger *zap.Logger

	input   []domain.CatalogRecord
	records []domain.CatalogRecord

	byID   map[string]domain.CatalogRecord
	byName map[string]domain.CatalogRecord

	byCategory    map[string][]domain.CatalogRecord
	categoryOrder []string

	byPermission    map[string]*idSet
	permissionOrder []string

	byRisk    map[int][]domain.CatalogRecord
	riskOrder []int

	skipped int
}

// New indexes records in sequence order. Records without an id or name are
// skipped with a warning; duplicates on id or name resolve last-writer-wins.
func New(records []domain.CatalogRecord, opts Options) *CatalogIndex {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	started := time.Now()
	idx := &CatalogIndex{
		logger:       logger.Named("catalog_index"),
		input:        domain.CloneCatalogRecords(records),
		records:      make([]domain.CatalogRecord, 0, len(records)),
		byID:         make(map[string]domain.CatalogRecord, len(records)),
		byName:       make(map[string]domain.CatalogRecord, len(records)),
		byCategory:   make(map[string][]domain.CatalogRecord),
		byPermission: make(map[string]*idSet),
		byRisk:       make(map[int][]domain.CatalogRecord),
	}

	for i, record := range idx.input {
		if !record.Valid() {
			idx.skipped++
			idx.logger.Warn("skipping catalog record without id or name",
				zap.Int("index", i),
				zap.String("id", record.ID),
				zap.String("name", record.Name),
			)
			continue
		}
		idx.insert(record)
	}

	if opts.Metrics != nil {
		opts.Metrics.ObserveIndexBuild(len(idx.records), idx.skipped, time.Since(started))
	}
	idx.logger.Debug("catalog index built",
		zap.Int("records", len(idx.records)),
		zap.Int("skipped", idx.skipped),
		zap.Int("categories", len(idx.categoryOrder)),
		zap.Int("permissions", len(idx.permissionOrder)),
	)
	return idx
}

func (idx *CatalogIndex) insert(record domain.CatalogRecord) {
	idx.records = append(idx.records, record)
	idx.byID[record.ID] = record
	idx.byName[record.Name] = record

	if record.Category != "" {
		if _, ok := idx.byCategory[record.Category]; !ok {
			idx.categoryOrder = append(idx.categoryOrder, record.Category)
		}
		idx.byCategory[record.Category] = append(idx.byCategory[record.Category], record)
	}

	for _, permission := range record.RequiredPermissions {
		set, ok := idx.byPermission[permission]
		if !ok {
			set = newIDSet()
			idx.byPermission[permission] = set
			idx.permissionOrder = append(idx.permissionOrder, permission)
		}
		set.add(record.ID)
	}

	level := record.EffectiveRiskLevel()
	if _, ok := idx.byRisk[level]; !ok {
		idx.riskOrder = append(idx.riskOrder, level)
	}
	idx.byRisk[level] = append(idx.byRisk[level], record)
}

// Len returns the number of records that passed validation.
func (idx *CatalogIndex) Len() int {
	return len(idx.records)
}

// Records returns every validated record in insertion order.
func (idx *CatalogIndex) Records() []domain.CatalogRecord {
	return domain.CloneCatalogRecords(idx.records)
}

// GetByID returns the record with the given id.
func (idx *CatalogIndex) GetByID(id string) (domain.CatalogRecord, bool) {
	record, ok := idx.byID[id]
	if !ok {
		return domain.CatalogRecord{}, false
	}
	return domain.CloneCatalogRecord(record), true
}

// GetByName returns the record with the given name.
func (idx *CatalogIndex) GetByName(name string) (domain.CatalogRecord, bool) {
	record, ok := idx.byName[name]
	if !ok {
		return domain.CatalogRecord{}, false
	}
	return domain.CloneCatalogRecord(record), true
}

// GetByCategory returns the category's records in insertion order.
func (idx *CatalogIndex) GetByCategory(category string) []domain.CatalogRecord {
	return cloneOrEmpty(idx.byCategory[category])
}

// GetByPermission returns the records requiring a permission. Ids that no
// longer resolve through the id map are dropped.
func (idx *CatalogIndex) GetByPermission(permission string) []domain.CatalogRecord {
	set, ok := idx.byPermission[permission]
	if !ok {
		return []domain.CatalogRecord{}
	}
	out := make([]domain.CatalogRecord, 0, set.len())
	for _, id := range set.ids() {
		record, ok := idx.byID[id]
		if !ok {
			continue
		}
		out = append(out, domain.CloneCatalogRecord(record))
	}
	return out
}

// GetByRiskLevel returns the records bucketed at the given risk level.
func (idx *CatalogIndex) GetByRiskLevel(level int) []domain.CatalogRecord {
	return cloneOrEmpty(idx.byRisk[level])
}

// Categories returns the distinct categories in first-seen order.
func (idx *CatalogIndex) Categories() []string {
	return append([]string(nil), idx.categoryOrder...)
}

// Permissions returns the distinct permissions in first-seen order.
func (idx *CatalogIndex) Permissions() []string {
	return append([]string(nil), idx.permissionOrder...)
}

// RiskLevels returns the distinct risk levels in first-seen order.
func (idx *CatalogIndex) RiskLevels() []int {
	return append([]int(nil), idx.riskOrder...)
}

func cloneOrEmpty(records []domain.CatalogRecord) []domain.CatalogRecord {
	if len(records) == 0 {
		return []domain.CatalogRecord{}
	}
	return domain.CloneCatalogRecords(records)
}

// idSet is an insertion-ordered set of record ids.
type idSet struct {
	members map[string]struct{}
	order   []string
}

func newIDSet() *idSet {
	return &idSet{members: make(map[string]struct{})}
}

func (s *idSet) add(id string) {
	if _, ok := s.members[id]; ok {
		return
	}
	s.members[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *idSet) len() int {
	return len(s.order)
}

func (s *idSet) ids() []string {
	return s.order
}
