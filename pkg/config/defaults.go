package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Limits defaults
	DefaultLimit         = "10 per minute"
	DefaultSweepInterval = time.Minute

	// Audit defaults
	DefaultAuditEnabled      = true
	DefaultAuditBackend      = "memory"
	DefaultAuditBuffer       = 1000
	DefaultAuditWriteTimeout = 5 * time.Second
	DefaultAuditMaxEntries   = 10000
	DefaultAuditSQLitePath   = "data/audit.db"
	DefaultRetentionMaxAge   = 30 * 24 * time.Hour
	DefaultRetentionSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
)

// DefaultConfig returns a Config populated with every default value.
// LoadConfig unmarshals the YAML file on top of this, so absent fields
// keep their defaults while explicitly-set fields (including false
// booleans) win.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress:   DefaultListenAddress,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			MaxHeaderBytes:  DefaultMaxHeaderBytes,
		},
		Limits: LimitsConfig{
			Default:       DefaultLimit,
			SweepInterval: DefaultSweepInterval,
		},
		Audit: AuditConfig{
			Enabled:      DefaultAuditEnabled,
			Backend:      DefaultAuditBackend,
			Buffer:       DefaultAuditBuffer,
			WriteTimeout: DefaultAuditWriteTimeout,
			Memory: MemoryAuditConfig{
				MaxEntries: DefaultAuditMaxEntries,
			},
			SQLite: SQLiteAuditConfig{
				Path: DefaultAuditSQLitePath,
			},
			Retention: RetentionConfig{
				MaxAge:   DefaultRetentionMaxAge,
				Schedule: DefaultRetentionSchedule,
			},
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:  DefaultLoggingLevel,
				Format: DefaultLoggingFormat,
			},
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
				Path:    DefaultMetricsPath,
			},
		},
	}
}
