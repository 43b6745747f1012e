package app

import (
	"context"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	appCatalog "skillcat/internal/app/catalog"
	"skillcat/internal/domain"
	"skillcat/internal/infra/recommend"
	"skillcat/internal/infra/retention"
	"skillcat/internal/infra/store"
	"skillcat/internal/infra/telemetry"
)

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewGoCollector())
	return registry
}

func NewMetrics(registry *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(registry)
}

func NewHealthTracker() *telemetry.HealthTracker {
	return telemetry.NewHealthTracker()
}

func NewCatalogProvider(
	ctx context.Context,
	cfg ServeConfig,
	metrics domain.Metrics,
	health *telemetry.HealthTracker,
	logger *zap.Logger,
) (*appCatalog.DynamicCatalogProvider, error) {
	return appCatalog.NewDynamicCatalogProvider(ctx, cfg.ConfigPath, appCatalog.Options{
		Logger:  logger,
		Metrics: metrics,
		Health:  health,
	})
}

// NewUsageStore opens the configured store. A relative store path resolves
// against the catalog file's directory.
func NewUsageStore(
	ctx context.Context,
	cfg ServeConfig,
	state *domain.CatalogState,
	logger *zap.Logger,
) (domain.UsageStore, func(), error) {
	storeCfg := state.Catalog.Runtime.Store
	if storeCfg.Path == "" {
		storeCfg.Path = domain.DefaultStorePath
	}
	if storeCfg.Path != ":memory:" && !filepath.IsAbs(storeCfg.Path) {
		storeCfg.Path = filepath.Join(filepath.Dir(cfg.ConfigPath), storeCfg.Path)
	}
	usageStore, err := store.Open(ctx, storeCfg, logger.Named("store"))
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := usageStore.Close(); err != nil {
			logger.Warn("usage store close failed", zap.Error(err))
		}
	}
	return usageStore, cleanup, nil
}

func NewUsageRecorder(usageStore domain.UsageStore, metrics domain.Metrics, logger *zap.Logger) *store.Recorder {
	return store.NewRecorder(usageStore, metrics, logger)
}

// NewRecommendEngine reads through the provider so every call sees the
// current index, and registers the engine for cache invalidation on swap.
func NewRecommendEngine(
	provider *appCatalog.DynamicCatalogProvider,
	usageStore domain.UsageStore,
	state *domain.CatalogState,
	metrics domain.Metrics,
	logger *zap.Logger,
) (*recommend.Engine, error) {
	runtime := state.Catalog.Runtime.Recommend
	taxonomy := state.Catalog.Taxonomy
	engine, err := recommend.NewEngine(recommend.Options{
		Accessor: provider,
		Usage:    usageStore,
		Taxonomy: &taxonomy,
		Kind:     runtime.Kind,
		CacheTTL: runtime.CacheTTL(),
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return nil, err
	}
	provider.AddInvalidator(engine)
	return engine, nil
}

func NewRetentionService(
	usageStore domain.UsageStore,
	state *domain.CatalogState,
	metrics domain.Metrics,
	health *telemetry.HealthTracker,
	logger *zap.Logger,
) *retention.Service {
	return retention.NewService(usageStore, state.Catalog.Runtime.Retention, metrics, health, logger)
}
