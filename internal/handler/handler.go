// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the registration engine.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventworks/registration-engine/internal/model"
	"github.com/eventworks/registration-engine/internal/repository"
	"github.com/eventworks/registration-engine/internal/service"
)

// EventHandler holds all HTTP handlers for the registration API.
type EventHandler struct {
	svc *service.RegistrationService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.RegistrationService) *EventHandler {
	return &EventHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// outcomeStatus maps an admission outcome to an HTTP status code.
func outcomeStatus(outcome model.Outcome, successCode int) int {
	switch {
	case outcome.Allowed:
		return successCode
	case outcome.Reason == model.ReasonRegistrationFailed:
		return http.StatusInternalServerError
	default:
		// Expected ineligibility: active conflict with current state.
		return http.StatusConflict
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateEvent handles POST /events
// Creates a new event with the given title, time window, and capacity.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Returns a JSON array of all events.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
// Returns a single event by its UUID.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, ok := h.resolveEvent(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// RegistrationStatus handles GET /events/{id}/status?user_id=U
// Reports whether the user may currently register, without side effects.
func (h *EventHandler) RegistrationStatus(w http.ResponseWriter, r *http.Request) {
	event, ok := h.resolveEvent(w, r)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	// A status check is a query, not an attempted action; the outcome
	// itself carries the answer.
	outcome := h.svc.EvaluateEligibility(r.Context(), event, userID)
	writeJSON(w, http.StatusOK, outcome)
}

// Register handles POST /events/{id}/register
// Performs a concurrency-safe registration for the specified event.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	event, ok := h.resolveEvent(w, r)
	if !ok {
		return
	}

	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	outcome := h.svc.Register(r.Context(), event, req.UserID)
	writeJSON(w, outcomeStatus(outcome, http.StatusCreated), outcome)
}

// ListParticipants handles GET /events/{id}/participants
// Returns registered users for the event, most recent first.
func (h *EventHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	event, ok := h.resolveEvent(w, r)
	if !ok {
		return
	}

	participants, err := h.svc.ListParticipants(r.Context(), event)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list participants")
		return
	}

	if participants == nil {
		participants = []model.Participant{}
	}

	writeJSON(w, http.StatusOK, participants)
}

// resolveEvent loads the event from the {id} URL parameter, writing
// the error response itself when the event cannot be served.
func (h *EventHandler) resolveEvent(w http.ResponseWriter, r *http.Request) (*model.Event, bool) {
	id := chi.URLParam(r, "id")

	event, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "failed to get event")
		return nil, false
	}
	return event, true
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
