package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	appCatalog "skillcat/internal/app/catalog"
	"skillcat/internal/domain"
	"skillcat/internal/infra/catalogindex"
	"skillcat/internal/infra/recommend"
	"skillcat/internal/infra/retention"
	"skillcat/internal/infra/store"
	"skillcat/internal/infra/telemetry"
)

// Application wires the catalog runtime and its dependencies.
type Application struct {
	ctx        context.Context
	configPath string

	logger    *zap.Logger
	registry  *prometheus.Registry
	metrics   domain.Metrics
	health    *telemetry.HealthTracker
	provider  *appCatalog.DynamicCatalogProvider
	state     *domain.CatalogState
	store     domain.UsageStore
	recorder  *store.Recorder
	engine    *recommend.Engine
	retention *retention.Service
}

// ApplicationOptions captures dependencies and settings for Application.
type ApplicationOptions struct {
	Context      context.Context
	ServeConfig  ServeConfig
	Logger       *zap.Logger
	Registry     *prometheus.Registry
	Metrics      domain.Metrics
	Health       *telemetry.HealthTracker
	Provider     *appCatalog.DynamicCatalogProvider
	CatalogState *domain.CatalogState
	Store        domain.UsageStore
	Recorder     *store.Recorder
	Engine       *recommend.Engine
	Retention    *retention.Service
}

// NewApplication constructs the application runtime.
func NewApplication(opts ApplicationOptions) *Application {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Application{
		ctx:        ctx,
		configPath: opts.ServeConfig.ConfigPath,
		logger:     opts.Logger,
		registry:   opts.Registry,
		metrics:    opts.Metrics,
		health:     opts.Health,
		provider:   opts.Provider,
		state:      opts.CatalogState,
		store:      opts.Store,
		recorder:   opts.Recorder,
		engine:     opts.Engine,
		retention:  opts.Retention,
	}
}

// Run starts the retention loop, the catalog watcher and the observability
// server, then blocks until the context is canceled.
func (a *Application) Run() error {
	runtime := a.state.Catalog.Runtime
	a.logger.Info("configuration loaded",
		zap.String("config", a.configPath),
		zap.Int("tools", len(a.state.Catalog.Tools)),
		zap.Int("skills", len(a.state.Catalog.Skills)),
		zap.String("store", runtime.Store.Driver),
	)

	if runtime.Watch {
		updates, err := a.provider.Watch(a.ctx)
		if err != nil {
			a.logger.Warn("catalog watch failed", zap.Error(err))
		} else {
			go a.logUpdates(updates)
		}
	}

	a.retention.Start(a.ctx)
	defer a.retention.Stop()

	obs := runtime.Observability
	return telemetry.StartHTTPServer(a.ctx, telemetry.HTTPServerOptions{
		Addr:          obs.ListenAddress,
		EnableMetrics: obs.Metrics,
		EnableHealthz: obs.Healthz,
		Health:        a.health,
		Registry:      a.registry,
		Routes:        a.Routes(),
	}, a.logger)
}

func (a *Application) logUpdates(updates <-chan domain.CatalogUpdate) {
	for {
		select {
		case <-a.ctx.Done():
			return
		case update := <-updates:
			a.logger.Debug("catalog update applied",
				telemetry.RevisionField(update.Snapshot.Revision),
				zap.String("source", string(update.Source)),
			)
		}
	}
}

// Catalog returns the current catalog snapshot. Startup-bound settings are
// those of the snapshot the runtime was built from.
func (a *Application) Catalog() domain.CatalogState {
	state, err := a.provider.Snapshot(context.Background())
	if err != nil {
		return *a.state
	}
	return state
}

// Index returns the live catalog index.
func (a *Application) Index() *catalogindex.CatalogIndex {
	return a.provider.Index()
}

func (a *Application) Engine() *recommend.Engine {
	return a.engine
}

func (a *Application) Recorder() *store.Recorder {
	return a.recorder
}

func (a *Application) Store() domain.UsageStore {
	return a.store
}

func (a *Application) Retention() *retention.Service {
	return a.retention
}

func (a *Application) Health() *telemetry.HealthTracker {
	return a.health
}
