package domain

import (
	"time"
)

// Catalog is the decoded content of a catalog file.
type Catalog struct {
	Tools    []CatalogRecord
	Skills   []CatalogRecord
	Taxonomy Taxonomy
	Runtime  RuntimeConfig
}

// Records returns tools followed by skills, preserving file order.
func (c Catalog) Records() []CatalogRecord {
	out := make([]CatalogRecord, 0, len(c.Tools)+len(c.Skills))
	out = append(out, c.Tools...)
	out = append(out, c.Skills...)
	return out
}

// RuntimeConfig holds the process-level settings carried in the catalog file.
type RuntimeConfig struct {
	Store         StoreConfig
	Retention     RetentionConfig
	Recommend     RecommendConfig
	Observability ObservabilityConfig
	Watch         bool
}

type StoreConfig struct {
	Driver string
	Path   string
}

type RetentionConfig struct {
	Days            int
	IntervalSeconds int
	Weekly          bool
}

// Window returns the retention age threshold.
func (c RetentionConfig) Window() time.Duration {
	return time.Duration(c.Days) * 24 * time.Hour
}

// Interval returns the retention loop period.
func (c RetentionConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

type RecommendConfig struct {
	CacheTTLSeconds int
	Limit           int
	Threshold       float64
	Kind            RecordKind
}

// CacheTTL returns the recommendation cache lifetime.
func (c RecommendConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

type ObservabilityConfig struct {
	ListenAddress string
	Metrics       bool
	Healthz       bool
}

// CatalogState captures the current catalog snapshot and metadata.
type CatalogState struct {
	Catalog  Catalog
	Revision uint64
	LoadedAt time.Time
	// ETag is a content hash of Catalog; empty when unknown.
	ETag     string
}

// NewCatalogState builds a catalog state from a catalog.
func NewCatalogState(catalog Catalog, revision uint64, loadedAt time.Time) CatalogState {
	if loadedAt.IsZero() {
		loadedAt = time.Now()
	}
	return CatalogState{
		Catalog:  catalog,
		Revision: revision,
		LoadedAt: loadedAt,
	}
}
