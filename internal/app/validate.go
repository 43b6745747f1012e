package app

import (
	"context"

	"go.uber.org/zap"

	"skillcat/internal/infra/catalog"
	"skillcat/internal/infra/catalogindex"
	"skillcat/internal/infra/hashutil"
)

// ValidationResult summarizes a catalog file that loaded successfully.
type ValidationResult struct {
	ConfigPath string                    `json:"config"`
	ETag       string                    `json:"etag"`
	Tools      int                       `json:"tools"`
	Skills     int                       `json:"skills"`
	Intents    int                       `json:"intents"`
	Health     catalogindex.HealthReport `json:"health"`
}

// ValidateConfig loads and indexes the catalog without opening the usage
// store. Load errors abort; data-quality issues land in the health report.
func (a *App) ValidateConfig(ctx context.Context, cfg ValidateConfig) (ValidationResult, error) {
	logger := NewLogging(LoggingConfig{Logger: a.logger}).Logger

	loader := catalog.NewLoader(logger)
	catalogData, err := loader.Load(ctx, cfg.ConfigPath)
	if err != nil {
		return ValidationResult{}, err
	}

	index := catalogindex.New(catalogData.Records(), catalogindex.Options{Logger: logger})
	result := ValidationResult{
		ConfigPath: cfg.ConfigPath,
		ETag:       hashutil.CatalogETag(logger, catalogData),
		Tools:      len(catalogData.Tools),
		Skills:     len(catalogData.Skills),
		Intents:    len(catalogData.Taxonomy.Intents),
		Health:     index.HealthCheck(),
	}

	logger.Info("configuration validated",
		zap.String("config", cfg.ConfigPath),
		zap.Int("tools", result.Tools),
		zap.Int("skills", result.Skills),
		zap.Bool("healthy", result.Health.Healthy),
	)
	return result, nil
}
