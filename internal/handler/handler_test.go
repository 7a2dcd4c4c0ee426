package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventworks/registration-engine/internal/cache"
	"github.com/eventworks/registration-engine/internal/model"
	"github.com/eventworks/registration-engine/internal/repository"
	"github.com/eventworks/registration-engine/internal/service"
)

// fakeStore backs the handlers with an in-memory EventStore and
// RegistrationStore honoring the atomic admission contract.
type fakeStore struct {
	mu     sync.Mutex
	events map[string]*model.Event
	regs   map[string][]model.Registration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events: make(map[string]*model.Event),
		regs:   make(map[string][]model.Registration),
	}
}

func (f *fakeStore) Create(_ context.Context, req model.CreateEventRequest, now time.Time) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &model.Event{
		ID:              fmt.Sprintf("event-%d", len(f.events)+1),
		Title:           req.Title,
		Status:          model.StatusActive,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		Unlimited:       req.Unlimited,
		CreatedAt:       now,
	}
	f.events[e.ID] = e
	return e, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (f *fakeStore) List(context.Context) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Event
	for _, e := range f.events {
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeStore) ListExpiredActive(_ context.Context, now time.Time) ([]model.Event, error) {
	return nil, nil
}

func (f *fakeStore) Close(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.events[id]; ok && e.Status == model.StatusActive {
		e.Status = model.StatusClosed
	}
	return nil
}

func (f *fakeStore) IsRegistered(_ context.Context, eventID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reg := range f.regs[eventID] {
		if reg.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Count(_ context.Context, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.regs[eventID]), nil
}

func (f *fakeStore) Register(_ context.Context, eventID, userID string) (*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[eventID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if event.Status != model.StatusActive {
		return nil, repository.ErrEventInactive
	}
	for _, reg := range f.regs[eventID] {
		if reg.UserID == userID {
			return nil, repository.ErrAlreadyRegistered
		}
	}
	if event.Bounded() && len(f.regs[eventID]) >= event.MaxParticipants {
		return nil, repository.ErrEventFull
	}
	// Timestamp assigned inside the critical section, as the real
	// store does.
	reg := model.Registration{EventID: eventID, UserID: userID, CreatedAt: time.Now().UTC()}
	f.regs[eventID] = append(f.regs[eventID], reg)
	return &reg, nil
}

func (f *fakeStore) ListParticipants(_ context.Context, eventID string) ([]model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	regs := f.regs[eventID]
	participants := make([]model.Participant, 0, len(regs))
	for i := len(regs) - 1; i >= 0; i-- {
		participants = append(participants, model.Participant{
			UserID:       regs[i].UserID,
			DisplayName:  "User " + regs[i].UserID,
			Email:        regs[i].UserID + "@example.com",
			RegisteredAt: regs[i].CreatedAt,
		})
	}
	return participants, nil
}

func newTestRouter(store *fakeStore) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewRegistrationService(store, store, cache.Noop{}, model.SystemClock(), log)
	h := NewEventHandler(svc)

	r := chi.NewRouter()
	r.Get("/health", HealthCheck)
	r.Route("/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Get("/{id}/status", h.RegistrationStatus)
		r.Post("/{id}/register", h.Register)
		r.Get("/{id}/participants", h.ListParticipants)
	})
	return r
}

func seedEvent(t *testing.T, store *fakeStore, capacity int) *model.Event {
	t.Helper()
	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	event, err := store.Create(context.Background(), model.CreateEventRequest{
		Title:           "Go Conference",
		StartTime:       start,
		EndTime:         start.Add(8 * time.Hour),
		MaxParticipants: capacity,
	}, time.Now())
	require.NoError(t, err)
	return event
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type outcomeBody struct {
	Status  bool   `json:"status"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func decodeOutcome(t *testing.T, rec *httptest.ResponseRecorder) outcomeBody {
	t.Helper()
	var body outcomeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegisterEndpoint(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(store)
	event := seedEvent(t, store, 1)
	path := "/events/" + event.ID + "/register"

	rec := doJSON(t, router, http.MethodPost, path, model.RegisterRequest{UserID: "alice"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decodeOutcome(t, rec)
	assert.True(t, body.Status)
	assert.NotEmpty(t, body.Message)

	// Duplicate registration conflicts.
	rec = doJSON(t, router, http.MethodPost, path, model.RegisterRequest{UserID: "alice"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(model.ReasonAlreadyRegistered), decodeOutcome(t, rec).Reason)

	// Capacity exhausted.
	rec = doJSON(t, router, http.MethodPost, path, model.RegisterRequest{UserID: "bob"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(model.ReasonEventFull), decodeOutcome(t, rec).Reason)
}

func TestRegisterEndpointValidation(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(store)
	event := seedEvent(t, store, 5)

	rec := doJSON(t, router, http.MethodPost, "/events/"+event.ID+"/register", model.RegisterRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/events/nope/register", model.RegisterRequest{UserID: "alice"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegistrationStatusEndpoint(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(store)
	event := seedEvent(t, store, 5)

	rec := doJSON(t, router, http.MethodGet, "/events/"+event.ID+"/status?user_id=alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeOutcome(t, rec).Status)

	// Status check has no side effects: still eligible, still empty.
	rec = doJSON(t, router, http.MethodGet, "/events/"+event.ID+"/participants", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = doJSON(t, router, http.MethodGet, "/events/"+event.ID+"/status", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistrationStatusClosedEvent(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(store)
	event := seedEvent(t, store, 5)
	require.NoError(t, store.Close(context.Background(), event.ID))

	rec := doJSON(t, router, http.MethodGet, "/events/"+event.ID+"/status?user_id=alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeOutcome(t, rec)
	assert.False(t, body.Status)
	assert.Equal(t, string(model.ReasonEventInactive), body.Reason)
}

func TestParticipantsEndpoint(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(store)
	event := seedEvent(t, store, 5)

	for _, user := range []string{"alice", "bob"} {
		rec := doJSON(t, router, http.MethodPost, "/events/"+event.ID+"/register", model.RegisterRequest{UserID: user})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/events/"+event.ID+"/participants", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var participants []model.Participant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &participants))
	require.Len(t, participants, 2)
	assert.Equal(t, "bob", participants[0].UserID)
	assert.Equal(t, "alice", participants[1].UserID)
}

func TestCreateEventEndpoint(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(store)

	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	rec := doJSON(t, router, http.MethodPost, "/events", model.CreateEventRequest{
		Title:           "Go Conference",
		StartTime:       start,
		EndTime:         start.Add(8 * time.Hour),
		MaxParticipants: 100,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var event model.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	assert.Equal(t, model.StatusActive, event.Status)

	rec = doJSON(t, router, http.MethodPost, "/events", model.CreateEventRequest{Title: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	rec := doJSON(t, newTestRouter(newFakeStore()), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
