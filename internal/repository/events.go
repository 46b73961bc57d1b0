package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"planet/internal/database"
	apperrors "planet/internal/errors"
	"planet/internal/models"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code for a unique-constraint breach.
const uniqueViolation = "23505"

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create persists a new event. A collision on the (name, date, organizer)
// uniqueness key surfaces as a DuplicateError naming the field.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, name, description, event_date, event_time, location,
		                    organizer, price, img_url, status, max_attendees, spots_left, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Name,
		event.Description,
		event.Date,
		event.Time,
		event.Location,
		event.Organizer,
		event.Price,
		event.ImgURL,
		event.Status,
		event.MaxAttendees,
		event.SpotsLeft,
		event.CreatedAt,
	)
	if err != nil {
		if field, ok := duplicateField(err); ok {
			return &apperrors.DuplicateError{Field: field}
		}
		return apperrors.Storage("insert event", err)
	}

	return nil
}

// GetByID returns an event or a NotFoundError; never nil-and-nil.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, name, description, event_date, event_time, location, organizer,
		       price, img_url, status, max_attendees, spots_left, created_at, updated_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.Description,
		&event.Date,
		&event.Time,
		&event.Location,
		&event.Organizer,
		&event.Price,
		&event.ImgURL,
		&event.Status,
		&event.MaxAttendees,
		&event.SpotsLeft,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperrors.NotFoundError{Resource: "event", ID: id}
	}
	if err != nil {
		return nil, apperrors.Storage("get event", err)
	}

	event.Date = event.Date.UTC()
	return event, nil
}

// List returns all events ordered by date. Narrowing is the query engine's
// job; reads take no locks and may observe spotsLeft that is already stale.
func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	query := `
		SELECT id, name, description, event_date, event_time, location, organizer,
		       price, img_url, status, max_attendees, spots_left, created_at, updated_at
		FROM events
		ORDER BY event_date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Storage("list events", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.Name,
			&event.Description,
			&event.Date,
			&event.Time,
			&event.Location,
			&event.Organizer,
			&event.Price,
			&event.ImgURL,
			&event.Status,
			&event.MaxAttendees,
			&event.SpotsLeft,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Storage("scan event", err)
		}
		event.Date = event.Date.UTC()
		events = append(events, event)
	}

	return events, apperrors.Storage("list events", rows.Err())
}

// UpdateFields writes the non-capacity attributes of an event. Capacity
// changes go through the ledger's Resize so spots_left stays consistent.
func (r *EventRepository) UpdateFields(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET name = $1, description = $2, event_date = $3, event_time = $4,
		    location = $5, price = $6, img_url = $7, updated_at = $8
		WHERE id = $9`

	event.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, query,
		event.Name,
		event.Description,
		event.Date,
		event.Time,
		event.Location,
		event.Price,
		event.ImgURL,
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		if field, ok := duplicateField(err); ok {
			return &apperrors.DuplicateError{Field: field}
		}
		return apperrors.Storage("update event", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage("update event", err)
	}
	if affected == 0 {
		return &apperrors.NotFoundError{Resource: "event", ID: event.ID}
	}

	return nil
}

// Delete removes an event unless reservations still reference it. The guard
// and the delete are one statement so no reservation can slip in between.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM events
		WHERE id = $1
		  AND NOT EXISTS (SELECT 1 FROM reservations r WHERE r.event_id = $1)`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Storage("delete event", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage("delete event", err)
	}
	if affected > 0 {
		return nil
	}

	var count int
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE event_id = $1`, id).Scan(&count)
	if err != nil {
		return apperrors.Storage("delete event", err)
	}
	if count > 0 {
		return &apperrors.HasActiveReservationsError{EventID: id, Count: count}
	}

	return &apperrors.NotFoundError{Resource: "event", ID: id}
}

// duplicateField extracts the colliding field name from a Postgres
// unique-violation error.
func duplicateField(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return "", false
	}

	switch pqErr.Constraint {
	case "events_name_date_organizer_key":
		return "eventName", true
	case "reservations_event_holder_key":
		return "reservation", true
	default:
		return pqErr.Constraint, true
	}
}
