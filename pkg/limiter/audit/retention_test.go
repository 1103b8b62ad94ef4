package audit

import (
	"context"
	"testing"
	"time"
)

func TestScheduler_UnconfiguredIsNoop(t *testing.T) {
	s := NewScheduler(NewMemoryStore(10), RetentionConfig{})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler should not run without schedule and max age")
	}
}

func TestScheduler_InvalidCronRejected(t *testing.T) {
	s := NewScheduler(NewMemoryStore(10), RetentionConfig{
		MaxAge:   time.Hour,
		Schedule: "not a cron expression",
	})

	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestScheduler_StartAndStop(t *testing.T) {
	s := NewScheduler(NewMemoryStore(10), RetentionConfig{
		MaxAge:   time.Hour,
		Schedule: "0 3 * * *",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("scheduler should be running")
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("scheduler should be stopped")
	}
}
