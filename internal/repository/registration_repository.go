package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventworks/registration-engine/internal/model"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint
// violation, raised when a racing transaction won the (event, user)
// insert first.
const uniqueViolation = "23505"

// RegistrationRepository handles persistence for registrations on PostgreSQL.
type RegistrationRepository struct {
	db    *pgxpool.Pool
	clock model.Clock
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool, clock model.Clock) *RegistrationRepository {
	return &RegistrationRepository{db: db, clock: clock}
}

// IsRegistered reports whether the user holds a registration for the event.
func (r *RegistrationRepository) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	var registered bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&registered)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return registered, nil
}

// Count returns the number of committed registrations for the event.
func (r *RegistrationRepository) Count(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`,
		eventID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

// Register performs a concurrency-safe registration inside a single
// transaction.
//
// A naive read-then-write (check the count, then insert) is a race: two
// transactions can both observe free capacity before either has written
// back, overbooking the event. Instead we take a row-level lock on the
// event with SELECT ... FOR UPDATE. Any concurrent Register for the
// same event blocks on that lock until this transaction commits or
// rolls back, so the status, duplicate and capacity checks below are
// serialised with the insert they guard. The (event_id, user_id)
// primary key is the atomic backstop for duplicates: if a racing
// writer that bypassed the lock path got there first, the insert fails
// with a unique violation and the whole transaction rolls back.
//
// The registration timestamp is read from the clock only after the
// row lock is held, so created_at within one event is monotone in
// commit order and ListParticipants reflects commit order.
func (r *RegistrationRepository) Register(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the event row and re-read its admission fields. Never trust
	// checks done outside the transaction.
	var (
		status          model.EventStatus
		maxParticipants int
		unlimited       bool
	)
	err = tx.QueryRow(ctx,
		`SELECT status, max_participants, unlimited
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&status, &maxParticipants, &unlimited)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	if status != model.StatusActive {
		err = ErrEventInactive
		return nil, err
	}

	var registered bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&registered)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if registered {
		err = ErrAlreadyRegistered
		return nil, err
	}

	if !unlimited {
		var count int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM registrations WHERE event_id = $1`,
			eventID,
		).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
		if count >= maxParticipants {
			err = ErrEventFull
			return nil, err
		}
	}

	reg := &model.Registration{
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: r.clock.Now().UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (event_id, user_id, created_at)
		 VALUES ($1, $2, $3)`,
		reg.EventID, reg.UserID, reg.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = ErrAlreadyRegistered
			return nil, err
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return reg, nil
}

// ListParticipants returns the registered users for an event joined
// with their user records, most recent registration first. The user id
// tiebreaker keeps the order stable when timestamps collide.
func (r *RegistrationRepository) ListParticipants(ctx context.Context, eventID string) ([]model.Participant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT u.id, u.display_name, u.email, reg.created_at
		 FROM registrations reg
		 JOIN users u ON u.id = reg.user_id
		 WHERE reg.event_id = $1
		 ORDER BY reg.created_at DESC, u.id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.Email, &p.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
