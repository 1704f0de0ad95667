// Command analyze scores a tender proposal against its requirements
// document and prints the analysis.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Tender proposal analysis with AI providers and extraction fallback",
	Long: `analyze compares a vendor proposal with the tender requirements.

Providers are tried in the configured order; a provider whose API key is not
set is skipped. When no provider produces a usable reply the result is built
from the figures extracted from the documents and is marked fallback_mode.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format override (json, console)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(providersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
