package config

import (
	"fmt"
	"strings"
)

// Validate checks a Config for invalid or inconsistent settings.
// Limit strings are deliberately not validated here: a malformed limit
// degrades to the default quota at registration time rather than
// failing startup.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address cannot be empty")
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout cannot be negative")
	}
	if cfg.Server.MaxHeaderBytes < 0 {
		return fmt.Errorf("server.max_header_bytes cannot be negative")
	}

	if cfg.Limits.SweepInterval < 0 {
		return fmt.Errorf("limits.sweep_interval cannot be negative")
	}

	switch cfg.Audit.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("audit.backend must be %q or %q, got %q", "memory", "sqlite", cfg.Audit.Backend)
	}
	if cfg.Audit.Backend == "sqlite" && cfg.Audit.SQLite.Path == "" {
		return fmt.Errorf("audit.sqlite.path cannot be empty when the sqlite backend is selected")
	}
	if cfg.Audit.Retention.MaxAge < 0 {
		return fmt.Errorf("audit.retention.max_age cannot be negative")
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be one of debug, info, warn, error; got %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be %q or %q, got %q", "json", "text", cfg.Telemetry.Logging.Format)
	}

	if cfg.Telemetry.Metrics.Enabled && !strings.HasPrefix(cfg.Telemetry.Metrics.Path, "/") {
		return fmt.Errorf("telemetry.metrics.path must start with %q, got %q", "/", cfg.Telemetry.Metrics.Path)
	}

	return nil
}
