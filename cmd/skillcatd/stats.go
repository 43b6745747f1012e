package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"skillcat/internal/app"
)

func newStatsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index and recommendation engine statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd, opts, func(_ context.Context, application *app.Application) error {
				index := application.Index().Stats()
				engine := application.Engine().Stats()
				if opts.jsonOutput {
					return writeJSON(map[string]any{"index": index, "engine": engine})
				}
				fmt.Printf("records=%d skipped=%d categories=%d permissions=%d riskLevels=%d\n",
					index.TotalRecords, index.Skipped, index.CategoryCount, index.PermissionCount, index.RiskLevelCount)
				categories := make([]string, 0, len(index.ByCategory))
				for category := range index.ByCategory {
					categories = append(categories, category)
				}
				sort.Strings(categories)
				for _, category := range categories {
					fmt.Printf("  category %-20s %d\n", category, index.ByCategory[category])
				}
				for _, perm := range index.TopPermissions {
					fmt.Printf("  permission %-18s %d\n", perm.Permission, perm.Count)
				}
				fmt.Printf("intents=%d categoryMappings=%d cacheTTL=%s\n", engine.Intents, engine.CategoryMappings, engine.CacheTTL)
				return nil
			})
		},
	}
}

func newHealthCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check catalog index consistency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd, opts, func(_ context.Context, application *app.Application) error {
				index := application.Index().HealthCheck()
				report := application.Health().Report()
				if opts.jsonOutput {
					if err := writeJSON(map[string]any{"status": report.Status, "index": index}); err != nil {
						return err
					}
				} else {
					fmt.Printf("status=%s records=%d valid=%d uniqueIds=%d\n",
						report.Status, index.InputRecords, index.ValidRecords, index.UniqueIDs)
					printLines("issue", index.Issues)
					printLines("warning", index.Warnings)
				}
				if !index.Healthy {
					return exitSilent(2)
				}
				return nil
			})
		},
	}
}
