package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"skillcat/internal/domain"
	infraCatalog "skillcat/internal/infra/catalog"
	"skillcat/internal/infra/catalogindex"
	"skillcat/internal/infra/hashutil"
	"skillcat/internal/infra/telemetry"
)

const (
	defaultReloadDebounce = 200 * time.Millisecond

	// IndexHealthCheck names the health check installed for the live index.
	IndexHealthCheck = "catalog_index"
)

// ErrRestartRequired is returned by a reload that changes startup-bound
// runtime settings or the intent taxonomy.
var ErrRestartRequired = errors.New("restart required to apply")

// CacheInvalidator is notified after every index swap.
type CacheInvalidator interface {
	ClearCache()
}

// Options configures a DynamicCatalogProvider.
type Options struct {
	Logger  *zap.Logger
	Metrics domain.Metrics
	Health  *telemetry.HealthTracker
}

type snapshot struct {
	state domain.CatalogState
	index *catalogindex.CatalogIndex
}

// DynamicCatalogProvider loads the catalog file, indexes it and swaps in a
// fresh index whenever the file changes.
type DynamicCatalogProvider struct {
	logger     *zap.Logger
	loader     *infraCatalog.Loader
	metrics    domain.Metrics
	configPath string

	current  atomic.Pointer[snapshot]
	revision atomic.Uint64

	subsMu sync.Mutex
	subs   map[chan domain.CatalogUpdate]struct{}

	invalidatorsMu sync.Mutex
	invalidators   []CacheInvalidator

	reloadMu  sync.Mutex
	watchOnce sync.Once
	watchCtx  context.Context
}

// NewDynamicCatalogProvider loads and indexes the catalog at configPath.
func NewDynamicCatalogProvider(ctx context.Context, configPath string, opts Options) (*DynamicCatalogProvider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	loader := infraCatalog.NewLoader(logger)
	catalogData, err := loader.Load(ctx, configPath)
	if err != nil {
		return nil, err
	}

	provider := &DynamicCatalogProvider{
		logger:     logger.Named("catalog_provider"),
		loader:     loader,
		metrics:    opts.Metrics,
		configPath: configPath,
		subs:       make(map[chan domain.CatalogUpdate]struct{}),
		watchCtx:   ctx,
	}
	state := domain.NewCatalogState(catalogData, 1, time.Now())
	state.ETag = hashutil.CatalogETag(provider.logger, catalogData)
	provider.current.Store(&snapshot{state: state, index: provider.buildIndex(catalogData)})
	provider.revision.Store(state.Revision)

	if opts.Health != nil {
		opts.Health.SetCheck(IndexHealthCheck, provider.checkIndex)
	}
	return provider, nil
}

func (p *DynamicCatalogProvider) buildIndex(catalogData domain.Catalog) *catalogindex.CatalogIndex {
	return catalogindex.New(catalogData.Records(), catalogindex.Options{
		Logger:  p.logger,
		Metrics: p.metrics,
	})
}

// Snapshot returns the current catalog snapshot.
func (p *DynamicCatalogProvider) Snapshot(ctx context.Context) (domain.CatalogState, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return domain.CatalogState{}, err
		}
	}
	return p.current.Load().state, nil
}

// Index returns the index for the current snapshot.
func (p *DynamicCatalogProvider) Index() *catalogindex.CatalogIndex {
	return p.current.Load().index
}

// ListRecords reads from whichever index is current at call time.
func (p *DynamicCatalogProvider) ListRecords(ctx context.Context, filter domain.RecordFilter) ([]domain.CatalogRecord, error) {
	return p.Index().ListRecords(ctx, filter)
}

// AssociatedToolIDs reads from whichever index is current at call time.
func (p *DynamicCatalogProvider) AssociatedToolIDs(ctx context.Context, skillID string) ([]string, error) {
	return p.Index().AssociatedToolIDs(ctx, skillID)
}

// AddInvalidator registers a cache to clear after each swap.
func (p *DynamicCatalogProvider) AddInvalidator(inv CacheInvalidator) {
	if inv == nil {
		return
	}
	p.invalidatorsMu.Lock()
	p.invalidators = append(p.invalidators, inv)
	p.invalidatorsMu.Unlock()
}

func (p *DynamicCatalogProvider) checkIndex() error {
	report := p.Index().HealthCheck()
	if report.Healthy {
		return nil
	}
	return fmt.Errorf("catalog index unhealthy: %d issue(s)", len(report.Issues))
}

// Watch subscribes to catalog updates. The first call starts the file watcher.
func (p *DynamicCatalogProvider) Watch(ctx context.Context) (<-chan domain.CatalogUpdate, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ch := make(chan domain.CatalogUpdate, 1)
	p.subsMu.Lock()
	p.subs[ch] = struct{}{}
	p.subsMu.Unlock()

	p.watchOnce.Do(func() {
		go p.runWatcher(p.watchCtx)
	})

	go func() {
		<-ctx.Done()
		p.subsMu.Lock()
		delete(p.subs, ch)
		p.subsMu.Unlock()
	}()

	return ch, nil
}

// Reload forces a catalog reload.
func (p *DynamicCatalogProvider) Reload(ctx context.Context) error {
	return p.reload(ctx, domain.CatalogUpdateSourceManual)
}

func (p *DynamicCatalogProvider) reload(ctx context.Context, source domain.CatalogUpdateSource) error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	prev := p.current.Load().state
	catalogData, err := p.loader.Load(ctx, p.configPath)
	if err != nil {
		return err
	}

	nextRevision := p.revision.Load() + 1
	next := domain.NewCatalogState(catalogData, nextRevision, time.Now())
	next.ETag = hashutil.CatalogETag(p.logger, catalogData)

	if prev.ETag != "" && prev.ETag == next.ETag {
		return nil
	}
	diff := domain.DiffCatalogStates(prev, next)
	if diff.IsEmpty() {
		return nil
	}
	if diff.Runtime.RequiresRestart() {
		return fmt.Errorf("runtime config changed (%s): %w", strings.Join(diff.Runtime.RestartRequiredFields, ", "), ErrRestartRequired)
	}
	if diff.TaxonomyChanged {
		return fmt.Errorf("intent taxonomy changed: %w", ErrRestartRequired)
	}

	p.revision.Store(nextRevision)
	p.current.Store(&snapshot{state: next, index: p.buildIndex(catalogData)})
	p.invalidate()

	p.logger.Info("catalog reloaded",
		telemetry.EventField(telemetry.EventCatalogReload),
		telemetry.RevisionField(nextRevision),
		zap.String("etag", next.ETag),
		zap.String("source", string(source)),
		zap.Int("added", len(diff.AddedRecords)),
		zap.Int("removed", len(diff.RemovedRecords)),
		zap.Int("updated", len(diff.UpdatedRecords)),
	)
	p.broadcast(domain.CatalogUpdate{
		Snapshot: next,
		Diff:     diff,
		Source:   source,
	})
	return nil
}

func (p *DynamicCatalogProvider) invalidate() {
	p.invalidatorsMu.Lock()
	invalidators := append([]CacheInvalidator(nil), p.invalidators...)
	p.invalidatorsMu.Unlock()
	for _, inv := range invalidators {
		inv.ClearCache()
	}
}

func (p *DynamicCatalogProvider) broadcast(update domain.CatalogUpdate) {
	subs := p.copySubscribers()
	for _, ch := range subs {
		select {
		case ch <- update:
		default:
		}
	}
}

func (p *DynamicCatalogProvider) copySubscribers() []chan domain.CatalogUpdate {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()

	out := make([]chan domain.CatalogUpdate, 0, len(p.subs))
	for ch := range p.subs {
		out = append(out, ch)
	}
	return out
}

func (p *DynamicCatalogProvider) runWatcher(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Warn("catalog watcher failed", zap.Error(err))
		return
	}
	defer watcher.Close()

	// Editors replace files by rename, so watch the directory.
	dir := filepath.Dir(p.configPath)
	if err := watcher.Add(dir); err != nil {
		p.logger.Warn("catalog watcher add failed", zap.String("path", dir), zap.Error(err))
		return
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-watcher.Errors:
			if err != nil {
				p.logger.Warn("catalog watcher error", zap.Error(err))
			}
		case event := <-watcher.Events:
			if !shouldReloadForPath(event.Name, p.configPath) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(defaultReloadDebounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(defaultReloadDebounce)
		case <-timerChan(timer):
			timer = nil
			if err := p.reload(ctx, domain.CatalogUpdateSourceWatch); err != nil {
				p.logger.Warn("catalog reload failed",
					telemetry.EventField(telemetry.EventReloadFailed),
					zap.Error(err),
				)
			}
		}
	}
}

func shouldReloadForPath(path string, configPath string) bool {
	if path == "" || configPath == "" {
		return false
	}
	return filepath.Clean(path) == filepath.Clean(configPath)
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
