package repository

import (
	"context"
	"database/sql"
	"errors"

	"planet/internal/database"
	apperrors "planet/internal/errors"
	"planet/internal/models"
)

// LedgerRepository is the single writer of spots_left. Debits and credits are
// single conditional statements, so concurrent callers can never jointly
// overdraw an event.
type LedgerRepository struct {
	db *database.DB
}

func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Debit atomically checks status and capacity and decrements spots_left.
// The WHERE clause is the whole concurrency story: two racing debits both
// reach the row, but only updates that still see enough capacity commit.
func (r *LedgerRepository) Debit(ctx context.Context, eventID string, quantity int) (int, error) {
	query := `
		UPDATE events
		SET spots_left = spots_left - $2, updated_at = NOW()
		WHERE id = $1 AND status = $3 AND spots_left >= $2
		RETURNING spots_left`

	var spotsLeft int
	err := r.db.QueryRowContext(ctx, query, eventID, quantity, models.EventStatusConfirmed).Scan(&spotsLeft)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, r.classifyDebitFailure(ctx, eventID)
	}
	if err != nil {
		return 0, apperrors.Storage("debit capacity", err)
	}

	return spotsLeft, nil
}

// classifyDebitFailure turns a zero-row debit into the precise rejection.
// The follow-up read runs outside any lock; the debit itself already failed,
// so the classification only has to be best-effort accurate.
func (r *LedgerRepository) classifyDebitFailure(ctx context.Context, eventID string) error {
	var status string
	var spotsLeft int
	err := r.db.QueryRowContext(ctx,
		`SELECT status, spots_left FROM events WHERE id = $1`, eventID).Scan(&status, &spotsLeft)
	if errors.Is(err, sql.ErrNoRows) {
		return &apperrors.NotFoundError{Resource: "event", ID: eventID}
	}
	if err != nil {
		return apperrors.Storage("classify debit", err)
	}

	if status == models.EventStatusCancelled {
		return apperrors.ErrEventCancelled
	}
	return apperrors.ErrInsufficientCapacity
}

// Credit returns capacity to an event, clamped at max_attendees to guard
// against double-release.
func (r *LedgerRepository) Credit(ctx context.Context, eventID string, quantity int) (int, error) {
	query := `
		UPDATE events
		SET spots_left = LEAST(spots_left + $2, max_attendees), updated_at = NOW()
		WHERE id = $1
		RETURNING spots_left`

	var spotsLeft int
	err := r.db.QueryRowContext(ctx, query, eventID, quantity).Scan(&spotsLeft)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &apperrors.NotFoundError{Resource: "event", ID: eventID}
	}
	if err != nil {
		return 0, apperrors.Storage("credit capacity", err)
	}

	return spotsLeft, nil
}

// Release deletes a holder's reservation and credits its quantity back in
// one transaction, so a failure between the two cannot strand capacity. The
// DELETE claims the row: of two racing releases exactly one gets it, the
// other sees NotFound.
func (r *LedgerRepository) Release(ctx context.Context, eventID, holderID string) (int, int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, apperrors.Storage("release reservation", err)
	}
	defer tx.Rollback()

	var quantity int
	err = tx.QueryRowContext(ctx,
		`DELETE FROM reservations WHERE event_id = $1 AND holder_id = $2 RETURNING quantity`,
		eventID, holderID).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, &apperrors.NotFoundError{Resource: "reservation", ID: eventID}
	}
	if err != nil {
		return 0, 0, apperrors.Storage("release reservation", err)
	}

	var spotsLeft int
	err = tx.QueryRowContext(ctx, `
		UPDATE events
		SET spots_left = LEAST(spots_left + $2, max_attendees), updated_at = NOW()
		WHERE id = $1
		RETURNING spots_left`,
		eventID, quantity).Scan(&spotsLeft)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, &apperrors.NotFoundError{Resource: "event", ID: eventID}
	}
	if err != nil {
		return 0, 0, apperrors.Storage("release reservation", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, apperrors.Storage("release reservation", err)
	}

	return quantity, spotsLeft, nil
}

// Cancel freezes an event. spots_left is left untouched; every later debit
// fails with ErrEventCancelled.
func (r *LedgerRepository) Cancel(ctx context.Context, eventID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET status = $2, updated_at = NOW() WHERE id = $1`,
		eventID, models.EventStatusCancelled)
	if err != nil {
		return apperrors.Storage("cancel event", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage("cancel event", err)
	}
	if affected == 0 {
		return &apperrors.NotFoundError{Resource: "event", ID: eventID}
	}

	return nil
}

// Resize changes max_attendees and re-derives spots_left under a row lock.
// Shrinking below the committed reservations is rejected instead of letting
// spots_left go negative.
func (r *LedgerRepository) Resize(ctx context.Context, eventID string, maxAttendees int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Storage("resize capacity", err)
	}
	defer tx.Rollback()

	var currentMax, currentSpots int
	err = tx.QueryRowContext(ctx,
		`SELECT max_attendees, spots_left FROM events WHERE id = $1 FOR UPDATE`,
		eventID).Scan(&currentMax, &currentSpots)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &apperrors.NotFoundError{Resource: "event", ID: eventID}
	}
	if err != nil {
		return 0, apperrors.Storage("resize capacity", err)
	}

	reserved := currentMax - currentSpots
	if maxAttendees < reserved {
		return 0, &apperrors.CapacityConflictError{MaxAttendees: maxAttendees, Reserved: reserved}
	}
	if maxAttendees < 1 {
		return 0, apperrors.NewValidation("maxAttendees", "must be at least 1")
	}

	spotsLeft := maxAttendees - reserved
	_, err = tx.ExecContext(ctx,
		`UPDATE events SET max_attendees = $2, spots_left = $3, updated_at = NOW() WHERE id = $1`,
		eventID, maxAttendees, spotsLeft)
	if err != nil {
		return 0, apperrors.Storage("resize capacity", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Storage("resize capacity", err)
	}

	return spotsLeft, nil
}
