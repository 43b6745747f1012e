package app

import (
	"context"

	"go.uber.org/zap"
)

// App is the entry point used by the CLI.
type App struct {
	logger *zap.Logger
}

// ServeConfig selects the catalog file a runtime is built from.
type ServeConfig struct {
	ConfigPath string
}

// ValidateConfig selects the catalog file to validate.
type ValidateConfig struct {
	ConfigPath string
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger}
}

// Serve builds the runtime and blocks until ctx is canceled.
func (a *App) Serve(ctx context.Context, cfg ServeConfig) error {
	application, cleanup, err := InitializeApplication(ctx, cfg, LoggingConfig{Logger: a.logger})
	if err != nil {
		return err
	}
	defer cleanup()
	return application.Run()
}

// Open builds the runtime without starting background loops, for one-shot
// commands. The caller must invoke the returned cleanup.
func (a *App) Open(ctx context.Context, cfg ServeConfig) (*Application, func(), error) {
	return InitializeApplication(ctx, cfg, LoggingConfig{Logger: a.logger})
}
