package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventworks/registration-engine/internal/model"
)

// EventRepository handles persistence for events on PostgreSQL.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, status, start_time, end_time, max_participants, unlimited, created_at`

// Create inserts a new event and returns it with a generated UUID.
// New events always start out active.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest, now time.Time) (*model.Event, error) {
	event := &model.Event{
		ID:              uuid.New().String(),
		Title:           req.Title,
		Status:          model.StatusActive,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		Unlimited:       req.Unlimited,
		CreatedAt:       now.UTC(),
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.Title, event.Status, event.StartTime, event.EndTime,
		event.MaxParticipants, event.Unlimited, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.Title, &e.Status, &e.StartTime, &e.EndTime,
		&e.MaxParticipants, &e.Unlimited, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// List returns all events ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListExpiredActive returns active events whose end time has passed.
func (r *EventRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE status = $1 AND end_time < $2
		 ORDER BY end_time ASC`,
		model.StatusActive, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list expired events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Close transitions an active event to closed. The status predicate
// makes the write idempotent: a concurrent or repeated close simply
// matches zero rows.
func (r *EventRepository) Close(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE events SET status = $1 WHERE id = $2 AND status = $3`,
		model.StatusClosed, id, model.StatusActive,
	)
	if err != nil {
		return fmt.Errorf("close event: %w", err)
	}
	return nil
}

func scanEvents(rows pgx.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Status, &e.StartTime, &e.EndTime,
			&e.MaxParticipants, &e.Unlimited, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
