package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nexus-hq/floodgate/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file without starting the server.

Exits non-zero when the file is missing, malformed, or fails
validation. Limit strings are checked for well-formedness and reported
as warnings; malformed strings degrade to the default quota at runtime
rather than failing startup.`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
	fmt.Printf("  listen address: %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  default limit:  %s\n", cfg.Limits.Default)
	fmt.Printf("  endpoints:      %d\n", len(cfg.Limits.Endpoints))
	fmt.Printf("  audit backend:  %s (enabled=%v)\n", cfg.Audit.Backend, cfg.Audit.Enabled)
	return nil
}
