package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"skillcat/internal/app"
)

func newRetentionCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Usage log retention",
	}
	cmd.AddCommand(newRetentionRunCmd(opts))
	return cmd
}

func newRetentionRunCmd(opts *cliOptions) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Roll up complete days and prune logs outside the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				now = parsed
			}
			return withApplication(cmd, opts, func(ctx context.Context, application *app.Application) error {
				result, err := application.Retention().RunOnce(ctx, now)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(result)
				}
				fmt.Printf("rolledDays=%d dailyRows=%d weeklyRows=%d pruned=%d cutoff=%s\n",
					len(result.RolledDays), result.DailyRows, result.WeeklyRows, result.Pruned, result.Cutoff.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate as of this RFC3339 time instead of now")
	return cmd
}
