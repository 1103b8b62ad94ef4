package audit

import (
	"context"
	"time"
)

// Event is one recorded admission decision.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`

	// Time is when the decision was made.
	Time time.Time `json:"time"`

	// Endpoint is the endpoint name the decision applied to.
	Endpoint string `json:"endpoint"`

	// CallerKey is the opaque caller identifier.
	CallerKey string `json:"caller_key"`

	// Allowed is the decision outcome.
	Allowed bool `json:"allowed"`

	// Remaining is the quota remaining after the decision.
	Remaining int `json:"remaining"`

	// Limit is the effective quota count at decision time.
	Limit int `json:"limit"`
}

// Store persists admission events.
type Store interface {
	// Save persists one event.
	Save(ctx context.Context, event *Event) error

	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]*Event, error)

	// Prune deletes events older than the cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}
