package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"skillcat/internal/app"
	"skillcat/internal/domain"
)

func newRecordCmd(opts *cliOptions) *cobra.Command {
	var (
		success  bool
		duration time.Duration
		query    string
	)
	cmd := &cobra.Command{
		Use:   "record <record-id>",
		Short: "Record one invocation of a skill or tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd, opts, func(ctx context.Context, application *app.Application) error {
				record, ok := application.Index().GetByID(args[0])
				if !ok {
					return domain.E(domain.CodeNotFound, "record usage", args[0], domain.ErrRecordNotFound)
				}
				logged, err := application.Recorder().Record(ctx, domain.UsageLog{
					RecordID: record.ID,
					Kind:     record.Kind,
					Success:  success,
					Duration: duration,
					Query:    query,
				})
				if err != nil {
					return err
				}
				counters, err := application.Store().UsageCounters(ctx, record.ID)
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(map[string]any{"log": logged, "counters": counters})
				}
				fmt.Printf("recorded %s for %s (uses=%d successes=%d)\n", logged.ID, record.ID, counters.UsageCount, counters.SuccessCount)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&success, "success", true, "whether the invocation succeeded")
	cmd.Flags().DurationVar(&duration, "duration", 0, "invocation duration")
	cmd.Flags().StringVar(&query, "query", "", "text that led to the invocation")
	return cmd
}
