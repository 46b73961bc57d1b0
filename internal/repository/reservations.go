package repository

import (
	"context"
	"time"

	"planet/internal/database"
	apperrors "planet/internal/errors"
	"planet/internal/models"

	"github.com/google/uuid"
)

type ReservationRepository struct {
	db *database.DB
}

func NewReservationRepository(db *database.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Upsert records a holder's claim. Re-adding the same event increments the
// existing quantity (the documented duplicate-add policy).
func (r *ReservationRepository) Upsert(ctx context.Context, res *models.Reservation) (*models.Reservation, error) {
	query := `
		INSERT INTO reservations (id, event_id, holder_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, holder_id)
		DO UPDATE SET quantity = reservations.quantity + EXCLUDED.quantity
		RETURNING id, quantity, created_at`

	stored := &models.Reservation{
		EventID:  res.EventID,
		HolderID: res.HolderID,
	}
	err := r.db.QueryRowContext(ctx, query,
		uuid.New().String(),
		res.EventID,
		res.HolderID,
		res.Quantity,
		time.Now().UTC(),
	).Scan(&stored.ID, &stored.Quantity, &stored.CreatedAt)
	if err != nil {
		return nil, apperrors.Storage("upsert reservation", err)
	}

	return stored, nil
}

// ListByHolder returns all reservations held by one attendee.
func (r *ReservationRepository) ListByHolder(ctx context.Context, holderID string) ([]models.Reservation, error) {
	query := `
		SELECT id, event_id, holder_id, quantity, created_at
		FROM reservations
		WHERE holder_id = $1
		ORDER BY created_at ASC`

	return r.list(ctx, query, holderID)
}

// ListByEvent returns all reservations against one event, oldest first.
func (r *ReservationRepository) ListByEvent(ctx context.Context, eventID string) ([]models.Reservation, error) {
	query := `
		SELECT id, event_id, holder_id, quantity, created_at
		FROM reservations
		WHERE event_id = $1
		ORDER BY created_at ASC`

	return r.list(ctx, query, eventID)
}

func (r *ReservationRepository) list(ctx context.Context, query string, arg string) ([]models.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, apperrors.Storage("list reservations", err)
	}
	defer rows.Close()

	var reservations []models.Reservation
	for rows.Next() {
		var res models.Reservation
		if err := rows.Scan(&res.ID, &res.EventID, &res.HolderID, &res.Quantity, &res.CreatedAt); err != nil {
			return nil, apperrors.Storage("scan reservation", err)
		}
		reservations = append(reservations, res)
	}

	return reservations, apperrors.Storage("list reservations", rows.Err())
}

// CapacityMismatch describes an event whose reservation sum disagrees with
// the ledger. Used by the audit job; a non-empty result is a bug.
type CapacityMismatch struct {
	EventID      string
	MaxAttendees int
	SpotsLeft    int
	ReservedSum  int
}

// AuditCapacity cross-checks sum(reservation quantities) against
// max_attendees - spots_left for every event.
func (r *ReservationRepository) AuditCapacity(ctx context.Context) ([]CapacityMismatch, error) {
	query := `
		SELECT e.id, e.max_attendees, e.spots_left, COALESCE(SUM(r.quantity), 0) AS reserved
		FROM events e
		LEFT JOIN reservations r ON r.event_id = e.id
		GROUP BY e.id, e.max_attendees, e.spots_left
		HAVING COALESCE(SUM(r.quantity), 0) <> e.max_attendees - e.spots_left`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Storage("audit capacity", err)
	}
	defer rows.Close()

	var mismatches []CapacityMismatch
	for rows.Next() {
		var m CapacityMismatch
		if err := rows.Scan(&m.EventID, &m.MaxAttendees, &m.SpotsLeft, &m.ReservedSum); err != nil {
			return nil, apperrors.Storage("audit capacity", err)
		}
		mismatches = append(mismatches, m)
	}

	return mismatches, apperrors.Storage("audit capacity", rows.Err())
}
