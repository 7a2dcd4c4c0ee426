// Package model defines the core domain types for the event registration engine.
package model

import "time"

// EventStatus is the lifecycle status of an event.
type EventStatus string

const (
	// StatusActive marks an event that is open for registration.
	StatusActive EventStatus = "active"
	// StatusClosed marks an event whose registration window has ended.
	// The transition is one-directional: closed events never reopen.
	StatusClosed EventStatus = "closed"
)

// Event represents a capacity-limited, time-bounded event.
// Events are created and edited by an administrator; the lifecycle
// scheduler is the only component that mutates Status.
type Event struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Status          EventStatus `json:"status"`
	StartTime       time.Time   `json:"start_time"`
	EndTime         time.Time   `json:"end_time"`
	MaxParticipants int         `json:"max_participants"`
	Unlimited       bool        `json:"unlimited"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Bounded reports whether the event enforces a participant limit.
func (e *Event) Bounded() bool {
	return !e.Unlimited
}

// Expired reports whether the event's end time has passed.
func (e *Event) Expired(now time.Time) bool {
	return e.EndTime.Before(now)
}

// Registration is one (event, user) registration fact. The pair is
// unique; registrations are append-only and never updated.
type Registration struct {
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Participant is a registered user as returned by the participants
// listing, joined with the user record.
type Participant struct {
	UserID       string    `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Reason classifies the result of an eligibility check or a
// registration attempt.
type Reason string

const (
	ReasonOK                 Reason = "OK"
	ReasonEventInactive      Reason = "EVENT_INACTIVE"
	ReasonAlreadyRegistered  Reason = "ALREADY_REGISTERED"
	ReasonEventFull          Reason = "EVENT_FULL"
	ReasonRegistrationFailed Reason = "REGISTRATION_FAILED"
)

// defaultMessages maps each reason to a default human-readable message.
// Presentation-layer callers may substitute their own wording.
var defaultMessages = map[Reason]string{
	ReasonOK:                 "You've successfully registered for this event!",
	ReasonEventInactive:      "This event is no longer active.",
	ReasonAlreadyRegistered:  "You're already registered for this event.",
	ReasonEventFull:          "Registration for this event is full.",
	ReasonRegistrationFailed: "An error occurred during registration.",
}

// Message returns the default user-facing message for the reason.
func (r Reason) Message() string {
	return defaultMessages[r]
}

// Outcome is the value object returned by eligibility checks and by
// registration attempts. It is never persisted.
type Outcome struct {
	Allowed bool   `json:"status"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// Allow builds a positive outcome.
func Allow() Outcome {
	return Outcome{Allowed: true, Reason: ReasonOK, Message: ReasonOK.Message()}
}

// Deny builds a negative outcome with the reason's default message.
func Deny(reason Reason) Outcome {
	return Outcome{Allowed: false, Reason: reason, Message: reason.Message()}
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title           string    `json:"title"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	MaxParticipants int       `json:"max_participants"`
	Unlimited       bool      `json:"unlimited"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	UserID string `json:"user_id"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
