package config

import "time"

// Config is the root configuration structure for Floodgate. It covers
// the HTTP admission server, the limits themselves, the audit trail,
// and telemetry.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Limits contains the default limit, per-endpoint overrides, and
	// window-eviction settings.
	Limits LimitsConfig `yaml:"limits"`

	// Audit contains configuration for the decision audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP admission server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port". Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire
	// request. Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes. Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout. Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size. Default: 1MB
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// LimitsConfig contains the admission quotas.
type LimitsConfig struct {
	// Default is the limit string applied to endpoints without an
	// override (e.g. "10 per minute"). Malformed values degrade to
	// 10 per minute with a warning rather than failing startup.
	Default string `yaml:"default"`

	// Endpoints maps endpoint names to limit strings, overriding the
	// default for those endpoints.
	Endpoints map[string]string `yaml:"endpoints"`

	// SweepInterval is how often idle windows are evicted.
	// Default: 1m. Zero disables the background sweep.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// Watch reloads the limits section when the config file changes.
	// Default: false
	Watch bool `yaml:"watch"`
}

// AuditConfig contains configuration for the decision audit trail.
type AuditConfig struct {
	// Enabled turns audit recording on. Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the audit store: "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Buffer is the async recorder channel size. Default: 1000
	Buffer int `yaml:"buffer"`

	// WriteTimeout bounds each audit storage write. Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Memory configures the in-memory backend.
	Memory MemoryAuditConfig `yaml:"memory"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteAuditConfig `yaml:"sqlite"`

	// Retention configures scheduled pruning of old events.
	Retention RetentionConfig `yaml:"retention"`
}

// MemoryAuditConfig configures the in-memory audit store.
type MemoryAuditConfig struct {
	// MaxEntries caps stored events; oldest are discarded beyond it.
	// Default: 10000
	MaxEntries int `yaml:"max_entries"`
}

// SQLiteAuditConfig configures the SQLite audit store.
type SQLiteAuditConfig struct {
	// Path is the database file path. Default: "data/audit.db"
	Path string `yaml:"path"`
}

// RetentionConfig configures audit event retention.
type RetentionConfig struct {
	// MaxAge is how long events are kept. Default: 720h (30 days)
	MaxAge time.Duration `yaml:"max_age"`

	// Schedule is a cron expression for when pruning runs.
	// Default: "0 3 * * *" (daily at 3 AM)
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text". Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records. Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint. Default: true
	Enabled bool `yaml:"enabled"`

	// Path is where metrics are served. Default: "/metrics"
	Path string `yaml:"path"`
}
