package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig configures scheduled pruning of the audit trail.
type RetentionConfig struct {
	// MaxAge is how long events are kept. Zero disables pruning.
	MaxAge time.Duration

	// Schedule is a standard cron expression for when pruning runs
	// (e.g. "0 3 * * *" for daily at 3 AM). Empty disables the
	// scheduler.
	Schedule string
}

// Scheduler prunes old audit events on a cron schedule.
type Scheduler struct {
	store   Store
	config  RetentionConfig
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
	logger  *slog.Logger
}

// NewScheduler creates a retention scheduler for the given store.
func NewScheduler(store Store, cfg RetentionConfig) *Scheduler {
	return &Scheduler{
		store:  store,
		config: cfg,
		cron:   cron.New(),
		logger: slog.Default().With("component", "audit.scheduler"),
	}
}

// Start begins scheduled pruning. It does nothing when no schedule or
// no retention age is configured. The scheduler stops when ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Schedule == "" || s.config.MaxAge <= 0 {
		s.logger.Info("audit retention not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.Schedule, err)
	}

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runPrune(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("audit retention scheduler started",
		"schedule", s.config.Schedule,
		"max_age", s.config.MaxAge.String(),
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runPrune executes one pruning cycle.
func (s *Scheduler) runPrune(ctx context.Context) {
	cutoff := time.Now().Add(-s.config.MaxAge)

	deleted, err := s.store.Prune(ctx, cutoff)
	if err != nil {
		s.logger.Error("scheduled audit pruning failed", "error", err)
		return
	}

	if deleted > 0 {
		s.logger.Info("audit events pruned", "deleted_count", deleted)
	} else {
		s.logger.Debug("audit pruning completed, nothing to delete")
	}
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("audit retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
