// Package service implements the registration engine: admission
// control, the atomic register operation and participant listing,
// orchestrated over the storage contracts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eventworks/registration-engine/internal/cache"
	"github.com/eventworks/registration-engine/internal/model"
	"github.com/eventworks/registration-engine/internal/repository"
)

// RegistrationTag returns the cache tag invalidated when an event's
// registrations change.
func RegistrationTag(eventID string) string {
	return "event_registration:" + eventID
}

// RegistrationService is the admission-control core. All dependencies
// are constructor-injected.
type RegistrationService struct {
	events        repository.EventStore
	registrations repository.RegistrationStore
	invalidator   cache.Invalidator
	clock         model.Clock
	log           *slog.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(
	events repository.EventStore,
	registrations repository.RegistrationStore,
	invalidator cache.Invalidator,
	clock model.Clock,
	log *slog.Logger,
) *RegistrationService {
	return &RegistrationService{
		events:        events,
		registrations: registrations,
		invalidator:   invalidator,
		clock:         clock,
		log:           log,
	}
}

// EvaluateEligibility reports whether the user may currently register
// for the event. Pure read, no side effects. Checks run cheapest
// first: lifecycle status, then the user's own registration, then the
// aggregate capacity count. Ineligibility is a normal outcome, never
// an error; a failed storage read is reported as a denial with the
// REGISTRATION_FAILED reason.
func (s *RegistrationService) EvaluateEligibility(ctx context.Context, event *model.Event, userID string) model.Outcome {
	if event.Status != model.StatusActive {
		return model.Deny(model.ReasonEventInactive)
	}

	registered, err := s.registrations.IsRegistered(ctx, event.ID, userID)
	if err != nil {
		s.log.Error("eligibility read failed", "event_id", event.ID, "error", err)
		return model.Deny(model.ReasonRegistrationFailed)
	}
	if registered {
		return model.Deny(model.ReasonAlreadyRegistered)
	}

	if event.Bounded() {
		count, err := s.registrations.Count(ctx, event.ID)
		if err != nil {
			s.log.Error("eligibility count failed", "event_id", event.ID, "error", err)
			return model.Deny(model.ReasonRegistrationFailed)
		}
		if count >= event.MaxParticipants {
			return model.Deny(model.ReasonEventFull)
		}
	}

	return model.Allow()
}

// Register attempts to register the user for the event. Eligibility is
// re-evaluated inside the store's transaction regardless of any prior
// EvaluateEligibility call, so a stale read can never admit an
// ineligible user. The registration timestamp is likewise assigned by
// the store inside the atomic unit, keeping created_at monotone in
// commit order per event. On a durable commit the event's registration
// cache tag is invalidated; an invalidation failure is logged but does
// not undo the registration.
func (s *RegistrationService) Register(ctx context.Context, event *model.Event, userID string) model.Outcome {
	reg, err := s.registrations.Register(ctx, event.ID, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEventInactive):
			return model.Deny(model.ReasonEventInactive)
		case errors.Is(err, repository.ErrAlreadyRegistered):
			return model.Deny(model.ReasonAlreadyRegistered)
		case errors.Is(err, repository.ErrEventFull):
			return model.Deny(model.ReasonEventFull)
		default:
			s.log.Error("registration failed", "event_id", event.ID, "user_id", userID, "error", err)
			return model.Deny(model.ReasonRegistrationFailed)
		}
	}

	if err := s.invalidator.Invalidate(ctx, RegistrationTag(event.ID)); err != nil {
		s.log.Warn("cache invalidation failed", "event_id", event.ID, "error", err)
	}

	s.log.Info("user registered",
		"event_id", event.ID, "user_id", userID, "registered_at", reg.CreatedAt)

	return model.Allow()
}

// ListParticipants returns the event's registered users, most recent
// registration first.
func (s *RegistrationService) ListParticipants(ctx context.Context, event *model.Event) ([]model.Participant, error) {
	return s.registrations.ListParticipants(ctx, event.ID)
}

// CreateEvent validates the request and delegates to the event store.
func (s *RegistrationService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("event title is required")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("end_time must be after start_time")
	}
	if req.MaxParticipants < 0 {
		return nil, fmt.Errorf("max_participants cannot be negative")
	}
	if !req.Unlimited && req.MaxParticipants > 100_000 {
		return nil, fmt.Errorf("max_participants cannot exceed 100,000")
	}
	return s.events.Create(ctx, req, s.clock.Now())
}

// ListEvents returns all events.
func (s *RegistrationService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetEvent returns a single event by ID.
func (s *RegistrationService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, repository.ErrNotFound
	}
	return s.events.GetByID(ctx, id)
}
