package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "floodgate",
	Short: "Floodgate - request admission control service",
	Long: `Floodgate is a request-admission service. Per API endpoint and per
caller identity it decides whether an inbound request may proceed,
based on a configurable quota over a trailing time window.

It can run standalone as an admission sidecar exposing a check API, or
its middleware can be embedded directly in another Go service.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
