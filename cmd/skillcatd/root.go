package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"skillcat/internal/app"
	"skillcat/internal/infra/telemetry"
)

type cliOptions struct {
	configPath string
	logLevel   string
	jsonOutput bool
	logger     *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		configPath: "catalog.yaml",
		logLevel:   "info",
		logger:     zap.NewNop(),
	}

	root := &cobra.Command{
		Use:           "skillcatd",
		Short:         "Skill and tool catalog with explainable recommendations",
		Version:       fmt.Sprintf("%s (%s)", app.Version, app.Build),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			logger, err := newLogger(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to catalog config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")

	root.AddCommand(
		newServeCmd(&opts),
		newValidateCmd(&opts),
		newRecommendCmd(&opts),
		newSearchCmd(&opts),
		newPopularCmd(&opts),
		newRelatedCmd(&opts),
		newStatsCmd(&opts),
		newHealthCmd(&opts),
		newRecordCmd(&opts),
		newRetentionCmd(&opts),
		newCatalogCmd(&opts),
	)

	return root
}

func newLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	return cfg.Build()
}

// withApplication builds the runtime for a one-shot command and tags the
// context with a request id for log correlation.
func withApplication(cmd *cobra.Command, opts *cliOptions, fn func(ctx context.Context, application *app.Application) error) error {
	ctx, _ := telemetry.EnsureRequestID(cmd.Context())
	application, cleanup, err := app.New(opts.logger).Open(ctx, app.ServeConfig{ConfigPath: opts.configPath})
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, application)
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
