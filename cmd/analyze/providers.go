package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-tender/internal/application"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the providers that would be routed, in priority order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		analyzer, err := application.NewAnalyzer(cfg, application.AnalyzerOptions{Logger: logger})
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "PROVIDER\tMODEL\tCIRCUIT")
		for _, s := range analyzer.Router().Snapshot() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Model, s.State)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if len(analyzer.Router().Providers()) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "no provider has an API key; analyses will run in fallback mode")
		}
		return nil
	},
}
