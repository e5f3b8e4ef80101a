package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides journey event persistence.
type Store struct {
	db DB
}

// NewStore creates a new journey event store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Record inserts a journey event.
func (s *Store) Record(ctx context.Context, e *JourneyEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO journey_events (id, journey_id, booking_id, kind, mode, outcome, prisoner_number, prison_code, agency_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.JourneyID, e.BookingID, e.Kind, e.Mode, string(e.Outcome),
		e.PrisonerNumber, e.PrisonCode, e.AgencyCode, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("events: record journey event: %w", err)
	}
	return nil
}

// ListRecent returns the newest events, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]JourneyEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, journey_id, booking_id, kind, mode, outcome, prisoner_number, prison_code, agency_code, created_at
		FROM journey_events
		ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("events: list recent: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListByPrisoner returns a prisoner's events, most recent first.
func (s *Store) ListByPrisoner(ctx context.Context, prisonerNumber string, limit int) ([]JourneyEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, journey_id, booking_id, kind, mode, outcome, prisoner_number, prison_code, agency_code, created_at
		FROM journey_events
		WHERE prisoner_number = $1
		ORDER BY created_at DESC LIMIT $2`, prisonerNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("events: list by prisoner: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]JourneyEvent, error) {
	var result []JourneyEvent
	for rows.Next() {
		var e JourneyEvent
		var outcome string
		err := rows.Scan(
			&e.ID, &e.JourneyID, &e.BookingID, &e.Kind, &e.Mode, &outcome,
			&e.PrisonerNumber, &e.PrisonCode, &e.AgencyCode, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("events: scan journey event: %w", err)
		}
		e.Outcome = Outcome(outcome)
		result = append(result, e)
	}
	return result, rows.Err()
}
