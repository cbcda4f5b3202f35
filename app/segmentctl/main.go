// Package main implements segmentctl, the operator CLI for discovery runs
// and on-demand scoring.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	tenantID   string
	jsonOutput bool
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "segmentctl",
	Short: "Operate behavioral customer segmentation",
	Long: `segmentctl runs segment discovery and customer scoring against the
configured database, outside the HTTP server.

Configuration is read from the environment (and .env) exactly like the server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print machine readable JSON")
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(segmentsCmd)
	rootCmd.AddCommand(tokenCmd)
}
