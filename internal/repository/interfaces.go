// Package repository implements all database access for the event
// registration engine. It uses pgx directly (no ORM) for transparency
// and performance.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/eventworks/registration-engine/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventInactive is returned when registering for an event that is
// not in active status.
var ErrEventInactive = errors.New("event is not active")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is fully booked")

// ErrAlreadyRegistered is returned when the same user registers twice
// for one event.
var ErrAlreadyRegistered = errors.New("user already registered for this event")

// EventStore defines persistence for events.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest, now time.Time) (*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	// ListExpiredActive returns events still active whose end time is
	// before now. Consumed by the lifecycle scheduler.
	ListExpiredActive(ctx context.Context, now time.Time) ([]model.Event, error)
	// Close transitions an active event to closed. Closing an already
	// closed event is a no-op.
	Close(ctx context.Context, id string) error
}

// RegistrationStore defines persistence for registrations.
type RegistrationStore interface {
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
	Count(ctx context.Context, eventID string) (int, error)
	// Register performs the admission check and insert as one atomic
	// unit, assigning created_at inside that unit so timestamps are
	// monotone in commit order per event. It returns ErrNotFound,
	// ErrEventInactive, ErrAlreadyRegistered or ErrEventFull when the
	// user may not register; any other error means the attempt was
	// rolled back.
	Register(ctx context.Context, eventID, userID string) (*model.Registration, error)
	ListParticipants(ctx context.Context, eventID string) ([]model.Participant, error)
}
