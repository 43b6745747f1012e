package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"skillcat/internal/app"
	"skillcat/internal/domain"
	"skillcat/internal/infra/recommend"
)

type queryFlags struct {
	limit           int
	threshold       float64
	category        string
	includeDisabled bool
	noUsage         bool
}

func newRecommendCmd(opts *cliOptions) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "recommend <text...>",
		Short: "Rank skills against free text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return withApplication(cmd, opts, func(ctx context.Context, application *app.Application) error {
				defaults := application.Catalog().Catalog.Runtime.Recommend
				limit := defaults.Limit
				if cmd.Flags().Changed("limit") {
					limit = flags.limit
				}
				threshold := defaults.Threshold
				if cmd.Flags().Changed("threshold") {
					threshold = flags.threshold
				}

				results := application.Engine().Recommend(ctx, text,
					recommend.WithLimit(limit),
					recommend.WithThreshold(threshold),
					recommend.WithUsageStats(!flags.noUsage),
					recommend.WithEnabledOnly(!flags.includeDisabled),
				)
				if opts.jsonOutput {
					return writeJSON(map[string]any{
						"query":   text,
						"intents": application.Engine().AnalyzeIntent(text),
						"results": results,
					})
				}
				if len(results) == 0 {
					fmt.Println("no recommendations")
					return nil
				}
				for i, rec := range results {
					fmt.Printf("%d. %s (%s) score=%.3f\n   %s\n", i+1, rec.Record.ID, recordLabel(rec.Record), rec.Score, rec.Reason)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&flags.limit, "limit", domain.DefaultRecommendLimit, "maximum results (defaults to recommend.limit)")
	cmd.Flags().Float64Var(&flags.threshold, "threshold", domain.DefaultRecommendThreshold, "minimum score (defaults to recommend.threshold)")
	cmd.Flags().BoolVar(&flags.includeDisabled, "include-disabled", false, "score disabled records too")
	cmd.Flags().BoolVar(&flags.noUsage, "no-usage", false, "ignore historical usage in scoring")
	return cmd
}

func newSearchCmd(opts *cliOptions) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search skills by name, description and id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			return withApplication(cmd, opts, func(ctx context.Context, application *app.Application) error {
				results, err := application.Engine().SearchSkills(ctx, query,
					recommend.WithSearchLimit(flags.limit),
					recommend.WithCategory(flags.category),
					recommend.WithSearchEnabledOnly(!flags.includeDisabled),
				)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(map[string]any{"query": query, "results": results})
				}
				for _, res := range results {
					fmt.Printf("%-30s %-24s score=%.2f\n", res.Record.ID, res.Record.Category, res.Score)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&flags.limit, "limit", domain.DefaultSearchLimit, "maximum results")
	cmd.Flags().StringVar(&flags.category, "category", "", "only records in this category")
	cmd.Flags().BoolVar(&flags.includeDisabled, "include-disabled", false, "include disabled records")
	return cmd
}

func newPopularCmd(opts *cliOptions) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "popular",
		Short: "List the most successful skills by usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd, opts, func(ctx context.Context, application *app.Application) error {
				results, err := application.Engine().PopularSkills(ctx, flags.limit)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(map[string]any{"results": results})
				}
				for _, res := range results {
					fmt.Printf("%-30s uses=%-6d success=%.0f%% popularity=%.0f\n",
						res.Record.ID, res.Record.UsageCount, res.SuccessRate*100, res.Popularity)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&flags.limit, "limit", domain.DefaultPopularLimit, "maximum results")
	return cmd
}

func newRelatedCmd(opts *cliOptions) *cobra.Command {
	var flags queryFlags
	cmd := &cobra.Command{
		Use:   "related <skill-id>",
		Short: "List skills related to a skill by category and shared tools",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, opts, func(ctx context.Context, application *app.Application) error {
				results, err := application.Engine().RelatedSkills(ctx, args[0], flags.limit)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(map[string]any{"skill": args[0], "results": results})
				}
				for _, res := range results {
					fmt.Printf("%-30s score=%.2f sharedTools=%d\n", res.Record.ID, res.Score, res.SharedTools)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&flags.limit, "limit", domain.DefaultRelatedLimit, "maximum results")
	return cmd
}

func recordLabel(record domain.CatalogRecord) string {
	if record.DisplayName != "" {
		return record.DisplayName
	}
	return record.Name
}
