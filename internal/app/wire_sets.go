//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	appCatalog "skillcat/internal/app/catalog"
	"skillcat/internal/domain"
)

var CoreInfraSet = wire.NewSet(
	NewLogging,
	NewLogger,
	NewMetricsRegistry,
	NewMetrics,
	NewHealthTracker,
)

var CatalogSet = wire.NewSet(
	NewCatalogProvider,
	appCatalog.NewCatalogState,
	wire.Bind(new(domain.CatalogProvider), new(*appCatalog.DynamicCatalogProvider)),
)

var UsageSet = wire.NewSet(
	NewUsageStore,
	NewUsageRecorder,
	NewRetentionService,
)

var AppSet = wire.NewSet(
	CoreInfraSet,
	CatalogSet,
	UsageSet,
	NewRecommendEngine,
	wire.Struct(new(ApplicationOptions), "*"),
	NewApplication,
)
