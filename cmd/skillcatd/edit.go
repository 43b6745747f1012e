package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"skillcat/internal/domain"
	"skillcat/internal/infra/catalog"
)

func newCatalogCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Edit the catalog file",
	}
	cmd.AddCommand(
		newCatalogInfoCmd(opts),
		newCatalogToggleCmd(opts, "enable", true),
		newCatalogToggleCmd(opts, "disable", false),
		newCatalogRecommendCmd(opts),
	)
	return cmd
}

func newCatalogInfoCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the catalog file path and whether it is writable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := catalog.NewEditor(opts.configPath, opts.logger).Inspect(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(map[string]any{"path": info.Path, "writable": info.IsWritable})
			}
			fmt.Printf("%s (writable=%t)\n", info.Path, info.IsWritable)
			return nil
		},
	}
}

func newCatalogToggleCmd(opts *cliOptions, verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <tool|skill> <record-id>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a tool or skill",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := domain.RecordKind(strings.ToLower(args[0]))
			editor := catalog.NewEditor(opts.configPath, opts.logger)
			if err := editor.SetRecordEnabled(cmd.Context(), kind, args[1], enabled); err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(map[string]any{"kind": kind, "id": args[1], "enabled": enabled})
			}
			fmt.Printf("%s/%s enabled=%t\n", kind, args[1], enabled)
			return nil
		},
	}
}

func newCatalogRecommendCmd(opts *cliOptions) *cobra.Command {
	var (
		limit     int
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "set-recommend",
		Short: "Update recommend defaults a running daemon reloads without restart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			update := catalog.RecommendUpdate{
				Limit:     changedValue(cmd.Flags(), "limit", limit),
				Threshold: changedValue(cmd.Flags(), "threshold", threshold),
			}
			editor := catalog.NewEditor(opts.configPath, opts.logger)
			if err := editor.SetRecommendDefaults(cmd.Context(), update); err != nil {
				return err
			}
			fmt.Println("recommend defaults updated")
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "default recommendation limit")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "default minimum confidence (0..1)")
	return cmd
}

// changedValue returns &value only when the flag was set on the command line.
func changedValue[T any](flags *pflag.FlagSet, name string, value T) *T {
	if !flags.Changed(name) {
		return nil
	}
	return &value
}
