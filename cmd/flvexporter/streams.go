package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/hamed0406/flvexporter/internal/config"
	"github.com/hamed0406/flvexporter/internal/domain"
)

var streamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "List the configured streams with their derived names",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read(configPath)
		if err != nil {
			return err
		}
		targets := cfg.Targets()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tPROJECT\tURL")
		for _, t := range targets {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, t.Project, t.URL)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		return multierr.Combine(domain.CheckUnique(targets)...)
	},
}
