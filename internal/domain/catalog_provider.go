package domain

import "context"

// CatalogUpdateSource records what triggered a catalog swap.
type CatalogUpdateSource string

const (
	CatalogUpdateSourceWatch  CatalogUpdateSource = "watch"
	CatalogUpdateSourceManual CatalogUpdateSource = "manual"
)

// CatalogUpdate is published to watchers after a successful reload.
type CatalogUpdate struct {
	Snapshot CatalogState
	Diff     CatalogDiff
	Source   CatalogUpdateSource
}

// CatalogProvider serves the current catalog and publishes reloads.
type CatalogProvider interface {
	Snapshot(ctx context.Context) (CatalogState, error)
	Watch(ctx context.Context) (<-chan CatalogUpdate, error)
	Reload(ctx context.Context) error
}
