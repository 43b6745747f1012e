package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"skillcat/internal/domain"
)

type Loader struct {
	logger *zap.Logger
}

func newCatalogViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setRuntimeDefaults(v)
	return v
}

func setRuntimeDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", domain.DefaultStoreDriver)
	v.SetDefault("store.path", domain.DefaultStorePath)
	v.SetDefault("retention.days", domain.DefaultRetentionDays)
	v.SetDefault("retention.intervalSeconds", domain.DefaultRetentionIntervalSeconds)
	v.SetDefault("retention.weekly", domain.DefaultRetentionWeekly)
	v.SetDefault("recommend.cacheTTLSeconds", domain.DefaultRecommendCacheTTLSeconds)
	v.SetDefault("recommend.limit", domain.DefaultRecommendLimit)
	v.SetDefault("recommend.threshold", domain.DefaultRecommendThreshold)
	v.SetDefault("recommend.kind", domain.DefaultRecommendKind)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("observability.metrics", domain.DefaultObservabilityMetrics)
	v.SetDefault("observability.healthz", domain.DefaultObservabilityHealthz)
	v.SetDefault("watch", domain.DefaultWatchCatalog)
}

type rawCatalog struct {
	Tools            []rawRecord     `mapstructure:"tools"`
	Skills           []rawRecord     `mapstructure:"skills"`
	Intents          []rawIntentRule `mapstructure:"intents"`
	rawRuntimeConfig `mapstructure:",squash"`
}

// rawCategoryIntents is decoded with yaml directly because viper folds map
// keys to lower case and categories are case-sensitive.
type rawCategoryIntents struct {
	CategoryIntents map[string][]string `yaml:"categoryIntents"`
}

type rawRecord struct {
	ID                  string   `mapstructure:"id"`
	Name                string   `mapstructure:"name"`
	DisplayName         string   `mapstructure:"displayName"`
	Description         string   `mapstructure:"description"`
	Category            string   `mapstructure:"category"`
	Tags                []string `mapstructure:"tags"`
	RequiredPermissions []string `mapstructure:"requiredPermissions"`
	RiskLevel           int      `mapstructure:"riskLevel"`
	Enabled             *bool    `mapstructure:"enabled"`
	Tools               []string `mapstructure:"tools"`
	UsageCount          int64    `mapstructure:"usageCount"`
	SuccessCount        int64    `mapstructure:"successCount"`
}

type rawIntentRule struct {
	Intent   string   `mapstructure:"intent"`
	Label    string   `mapstructure:"label"`
	Keywords []string `mapstructure:"keywords"`
}

type rawRuntimeConfig struct {
	Store         rawStoreConfig         `mapstructure:"store"`
	Retention     rawRetentionConfig     `mapstructure:"retention"`
	Recommend     rawRecommendConfig     `mapstructure:"recommend"`
	Observability rawObservabilityConfig `mapstructure:"observability"`
	Watch         bool                   `mapstructure:"watch"`
}

type rawStoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type rawRetentionConfig struct {
	Days            int  `mapstructure:"days"`
	IntervalSeconds int  `mapstructure:"intervalSeconds"`
	Weekly          bool `mapstructure:"weekly"`
}

type rawRecommendConfig struct {
	CacheTTLSeconds int     `mapstructure:"cacheTTLSeconds"`
	Limit           int     `mapstructure:"limit"`
	Threshold       float64 `mapstructure:"threshold"`
	Kind            string  `mapstructure:"kind"`
}

type rawObservabilityConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
	Metrics       bool   `mapstructure:"metrics"`
	Healthz       bool   `mapstructure:"healthz"`
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("catalog")}
}

// Load reads, expands, validates and decodes a catalog file.
func (l *Loader) Load(ctx context.Context, path string) (domain.Catalog, error) {
	if path == "" {
		return domain.Catalog{}, domain.E(domain.CodeInvalidArgument, "load catalog", "config path is required", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read config: %w", err)
	}
	return l.Decode(ctx, data, path)
}

// Decode turns raw catalog YAML into a Catalog. source only labels log lines.
func (l *Loader) Decode(ctx context.Context, data []byte, source string) (domain.Catalog, error) {
	expanded, missing, err := expandConfigEnv(data)
	if err != nil {
		return domain.Catalog{}, invalidCatalog(err)
	}
	if len(missing) > 0 {
		l.logger.Warn("missing environment variables in config", zap.String("path", source), zap.Strings("missing", missing))
	}

	if err := validateCatalogSchema(expanded); err != nil {
		return domain.Catalog{}, invalidCatalog(err)
	}

	v := newCatalogViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return domain.Catalog{}, invalidCatalog(fmt.Errorf("parse config: %w", err))
	}

	var cfg rawCatalog
	if err := v.Unmarshal(&cfg); err != nil {
		return domain.Catalog{}, invalidCatalog(fmt.Errorf("decode config: %w", err))
	}

	var categories rawCategoryIntents
	if err := yaml.Unmarshal([]byte(expanded), &categories); err != nil {
		return domain.Catalog{}, invalidCatalog(fmt.Errorf("decode categoryIntents: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return domain.Catalog{}, err
	}

	var validationErrors []string
	runtime, runtimeErrs := normalizeRuntimeConfig(cfg.rawRuntimeConfig)
	validationErrors = append(validationErrors, runtimeErrs...)

	taxonomy := domain.DefaultTaxonomy()
	if len(cfg.Intents) > 0 || len(categories.CategoryIntents) > 0 {
		taxonomy = normalizeTaxonomy(cfg.Intents, categories.CategoryIntents)
		if err := taxonomy.Validate(); err != nil {
			validationErrors = append(validationErrors, err.Error())
		}
	}

	if len(validationErrors) > 0 {
		return domain.Catalog{}, invalidCatalog(errors.New(strings.Join(validationErrors, "; ")))
	}

	tools := normalizeRecords(cfg.Tools, domain.RecordKindTool)
	skills := normalizeRecords(cfg.Skills, domain.RecordKindSkill)
	l.logger.Debug("catalog decoded",
		zap.String("path", source),
		zap.Int("tools", len(tools)),
		zap.Int("skills", len(skills)),
		zap.Int("intents", len(taxonomy.Intents)),
	)

	return domain.Catalog{
		Tools:    tools,
		Skills:   skills,
		Taxonomy: taxonomy,
		Runtime:  runtime,
	}, nil
}

func invalidCatalog(err error) error {
	return domain.E(domain.CodeInvalidArgument, "load catalog", "", errors.Join(domain.ErrInvalidCatalog, err))
}

func normalizeRecords(raw []rawRecord, kind domain.RecordKind) []domain.CatalogRecord {
	out := make([]domain.CatalogRecord, 0, len(raw))
	for _, r := range raw {
		enabled := true
		if r.Enabled != nil {
			enabled = *r.Enabled
		}
		out = append(out, domain.NormalizeRecord(domain.CatalogRecord{
			ID:                  strings.TrimSpace(r.ID),
			Name:                strings.TrimSpace(r.Name),
			DisplayName:         r.DisplayName,
			Description:         r.Description,
			Category:            strings.TrimSpace(r.Category),
			Tags:                r.Tags,
			RequiredPermissions: r.RequiredPermissions,
			RiskLevel:           r.RiskLevel,
			Enabled:             enabled,
			Tools:               r.Tools,
			UsageCount:          r.UsageCount,
			SuccessCount:        r.SuccessCount,
		}, kind))
	}
	return out
}

func normalizeTaxonomy(intents []rawIntentRule, categories map[string][]string) domain.Taxonomy {
	rules := make([]domain.IntentRule, 0, len(intents))
	for _, rule := range intents {
		rules = append(rules, domain.IntentRule{
			Intent:   strings.TrimSpace(rule.Intent),
			Label:    rule.Label,
			Keywords: rule.Keywords,
		})
	}
	return domain.Taxonomy{Intents: rules, CategoryIntents: categories}
}

func normalizeRuntimeConfig(cfg rawRuntimeConfig) (domain.RuntimeConfig, []string) {
	var errs []string

	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	if driver == "" {
		driver = domain.DefaultStoreDriver
	}
	if driver != domain.StoreDriverSQLite && driver != domain.StoreDriverBolt {
		errs = append(errs, "store.driver must be sqlite or bolt")
	}
	path := strings.TrimSpace(cfg.Store.Path)
	if path == "" {
		path = domain.DefaultStorePath
	}

	if cfg.Retention.Days <= 0 {
		errs = append(errs, "retention.days must be > 0")
	}
	if cfg.Retention.IntervalSeconds <= 0 {
		errs = append(errs, "retention.intervalSeconds must be > 0")
	}

	if cfg.Recommend.CacheTTLSeconds <= 0 {
		errs = append(errs, "recommend.cacheTTLSeconds must be > 0")
	}
	if cfg.Recommend.Limit <= 0 {
		errs = append(errs, "recommend.limit must be > 0")
	}
	if cfg.Recommend.Threshold < 0 || cfg.Recommend.Threshold > 1 {
		errs = append(errs, "recommend.threshold must be between 0 and 1")
	}
	kind := domain.RecordKind(strings.ToLower(strings.TrimSpace(cfg.Recommend.Kind)))
	switch kind {
	case domain.RecordKindSkill, domain.RecordKindTool:
	case "all":
		kind = ""
	default:
		errs = append(errs, "recommend.kind must be skill, tool or all")
	}

	addr := strings.TrimSpace(cfg.Observability.ListenAddress)
	if addr == "" {
		addr = domain.DefaultObservabilityListenAddress
	}

	return domain.RuntimeConfig{
		Store: domain.StoreConfig{
			Driver: driver,
			Path:   path,
		},
		Retention: domain.RetentionConfig{
			Days:            cfg.Retention.Days,
			IntervalSeconds: cfg.Retention.IntervalSeconds,
			Weekly:          cfg.Retention.Weekly,
		},
		Recommend: domain.RecommendConfig{
			CacheTTLSeconds: cfg.Recommend.CacheTTLSeconds,
			Limit:           cfg.Recommend.Limit,
			Threshold:       cfg.Recommend.Threshold,
			Kind:            kind,
		},
		Observability: domain.ObservabilityConfig{
			ListenAddress: addr,
			Metrics:       cfg.Observability.Metrics,
			Healthz:       cfg.Observability.Healthz,
		},
		Watch: cfg.Watch,
	}, errs
}
