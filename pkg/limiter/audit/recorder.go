package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RecorderConfig configures the async recorder.
type RecorderConfig struct {
	// Buffer is the size of the async write channel.
	// Default: 1000
	Buffer int

	// WriteTimeout bounds each storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Buffer:       1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes admission events to a Store asynchronously.
type Recorder struct {
	store   Store
	config  RecorderConfig
	events  chan *Event
	dropped atomic.Int64
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	logger  *slog.Logger
}

// NewRecorder creates a recorder backed by the given store and starts
// its write worker.
func NewRecorder(store Store, cfg RecorderConfig) *Recorder {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultRecorderConfig().Buffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultRecorderConfig().WriteTimeout
	}

	r := &Recorder{
		store:  store,
		config: cfg,
		events: make(chan *Event, cfg.Buffer),
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Record enqueues one admission decision. It never blocks: when the
// buffer is full the event is dropped and counted.
func (r *Recorder) Record(endpoint, callerKey string, allowed bool, remaining, limit int, at time.Time) {
	event := &Event{
		ID:        uuid.NewString(),
		Time:      at,
		Endpoint:  endpoint,
		CallerKey: callerKey,
		Allowed:   allowed,
		Remaining: remaining,
		Limit:     limit,
	}

	select {
	case r.events <- event:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns the number of events discarded because the buffer
// was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops the worker after draining buffered events. The store is
// not closed; the caller owns it.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

// worker drains the event channel into the store.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.events:
			r.write(event)
		case <-r.done:
			// Drain what is already buffered, then stop.
			for {
				select {
				case event := <-r.events:
					r.write(event)
				default:
					return
				}
			}
		}
	}
}

// write persists one event with the configured timeout.
func (r *Recorder) write(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.store.Save(ctx, event); err != nil {
		r.logger.Error("failed to save audit event",
			"error", err,
			"event_id", event.ID,
			"endpoint", event.Endpoint,
		)
	}
}
