package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"skillcat/internal/app"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog daemon (reload watcher, retention loop, /metrics and /healthz)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			return app.New(opts.logger).Serve(ctx, app.ServeConfig{ConfigPath: opts.configPath})
		},
	}
}

func newValidateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog file and report data-quality issues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := app.New(opts.logger).ValidateConfig(cmd.Context(), app.ValidateConfig{ConfigPath: opts.configPath})
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				if err := writeJSON(result); err != nil {
					return err
				}
			} else {
				fmt.Printf("config=%s etag=%.12s tools=%d skills=%d intents=%d healthy=%t\n",
					result.ConfigPath, result.ETag, result.Tools, result.Skills, result.Intents, result.Health.Healthy)
				printLines("issue", result.Health.Issues)
				printLines("warning", result.Health.Warnings)
			}
			if !result.Health.Healthy {
				return exitSilent(2)
			}
			return nil
		},
	}
}
