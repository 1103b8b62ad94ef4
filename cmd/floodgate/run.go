package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nexus-hq/floodgate/pkg/config"
	"nexus-hq/floodgate/pkg/limiter"
	"nexus-hq/floodgate/pkg/limiter/audit"
	"nexus-hq/floodgate/pkg/server"
	"nexus-hq/floodgate/pkg/telemetry/logging"
	"nexus-hq/floodgate/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Floodgate admission server",
	Long: `Start the Floodgate admission server with the specified configuration.

The server listens on the configured address and answers admission
checks against the configured per-endpoint quotas.

Examples:
  # Start with default config
  floodgate run

  # Start with custom config
  floodgate run --config /etc/floodgate/config.yaml

  # Override listen address
  floodgate run --listen 0.0.0.0:8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Writer:    os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	logger.Info("starting floodgate",
		"version", Version,
		"config", cfgFile,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics registry shared by the limiter and the /metrics endpoint.
	collector := metrics.NewCollector()

	lim := limiter.New(limiter.Config{
		DefaultLimit:  cfg.Limits.Default,
		SweepInterval: cfg.Limits.SweepInterval,
		Logger:        logger,
		Metrics:       limiter.NewMetrics(collector.Registry()),
	})
	defer lim.Close()

	applyLimits(lim, cfg)

	// Audit trail (optional).
	var recorder *audit.Recorder
	if cfg.Audit.Enabled {
		store, err := newAuditStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to create audit store: %w", err)
		}
		defer store.Close()

		recorder = audit.NewRecorder(store, audit.RecorderConfig{
			Buffer:       cfg.Audit.Buffer,
			WriteTimeout: cfg.Audit.WriteTimeout,
		})
		defer recorder.Close()

		scheduler := audit.NewScheduler(store, audit.RetentionConfig{
			MaxAge:   cfg.Audit.Retention.MaxAge,
			Schedule: cfg.Audit.Retention.Schedule,
		})
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("failed to start audit retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}

		logger.Info("audit trail enabled", "backend", cfg.Audit.Backend)
	}

	// Hot reload of limit strings (optional).
	if cfg.Limits.Watch {
		watcher, err := config.NewWatcher(cfgFile, logger)
		if err != nil {
			return fmt.Errorf("failed to create config watcher: %w", err)
		}
		go func() {
			if err := watcher.Watch(ctx, func(next *config.Config) {
				applyLimits(lim, next)
				logger.Info("limits reloaded", "endpoints", len(next.Limits.Endpoints))
			}); err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
		defer func() { _ = watcher.Stop() }()
	}

	opts := server.Options{Logger: logger}
	if recorder != nil {
		opts.Audit = recorder
	}
	if cfg.Telemetry.Metrics.Enabled {
		opts.MetricsHandler = collector.Handler()
	}

	srv := server.NewServer(cfg, lim, opts)
	return srv.Start(ctx)
}

// applyLimits registers the configured per-endpoint limit strings.
func applyLimits(lim *limiter.Limiter, cfg *config.Config) {
	for endpoint, limit := range cfg.Limits.Endpoints {
		lim.SetLimit(endpoint, limit)
	}
}

// newAuditStore builds the configured audit backend.
func newAuditStore(cfg *config.Config) (audit.Store, error) {
	switch cfg.Audit.Backend {
	case "sqlite":
		return audit.NewSQLiteStore(cfg.Audit.SQLite.Path)
	case "memory":
		return audit.NewMemoryStore(cfg.Audit.Memory.MaxEntries), nil
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
	}
}
