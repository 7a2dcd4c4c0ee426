// Package scheduler runs the periodic lifecycle job that closes
// events whose end time has passed.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventworks/registration-engine/internal/model"
	"github.com/eventworks/registration-engine/internal/repository"
)

// LifecycleScheduler transitions expired active events to closed.
// Only one instance should run per deployment; the status write is
// idempotent, so a duplicate run is harmless noise.
type LifecycleScheduler struct {
	events repository.EventStore
	clock  model.Clock
	log    *slog.Logger
}

// New constructs a LifecycleScheduler.
func New(events repository.EventStore, clock model.Clock, log *slog.Logger) *LifecycleScheduler {
	return &LifecycleScheduler{events: events, clock: clock, log: log}
}

// RunOnce performs a single scheduler pass: select active events whose
// end time is before now and close each one. A failure on one event is
// logged and does not abort the rest of the batch; the next pass will
// re-select anything still expired and active, so the job is
// self-healing without in-run retries. An empty selection is a normal
// no-op.
func (s *LifecycleScheduler) RunOnce(ctx context.Context) error {
	now := s.clock.Now()

	expired, err := s.events.ListExpiredActive(ctx, now)
	if err != nil {
		return fmt.Errorf("select expired events: %w", err)
	}
	if len(expired) == 0 {
		s.log.Debug("no expired events to close")
		return nil
	}

	for _, event := range expired {
		s.log.Info("closing expired event",
			"event_id", event.ID, "status", event.Status, "end_time", event.EndTime)

		if err := s.events.Close(ctx, event.ID); err != nil {
			s.log.Error("failed to close event", "event_id", event.ID, "error", err)
			continue
		}

		s.log.Info("event closed",
			"event_id", event.ID, "status", model.StatusClosed)
	}

	return nil
}

// Run executes RunOnce on every tick until the context is cancelled.
func (s *LifecycleScheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("lifecycle scheduler stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("scheduler run failed", "error", err)
			}
		}
	}
}
