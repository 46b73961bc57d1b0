// Package errors defines the error taxonomy of the reservation core. Every
// operation fails with exactly one of these kinds; nothing is signalled by
// nil-value returns.
package errors

import (
	"errors"
	"fmt"
)

// ErrInsufficientCapacity is returned by a debit when spotsLeft is smaller
// than the requested quantity. Retrying without new capacity cannot succeed.
var ErrInsufficientCapacity = errors.New("not enough spots left")

// ErrEventCancelled is returned by a debit against a cancelled event,
// regardless of remaining capacity.
var ErrEventCancelled = errors.New("event is cancelled")

// ValidationError reports malformed or missing input, naming the field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DuplicateError reports a uniqueness violation, naming the colliding field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// CapacityConflictError reports an admin edit that would push spotsLeft
// below zero.
type CapacityConflictError struct {
	MaxAttendees int
	Reserved     int
}

func (e *CapacityConflictError) Error() string {
	return fmt.Sprintf("maxAttendees %d is below the %d spots already reserved", e.MaxAttendees, e.Reserved)
}

// HasActiveReservationsError reports a delete blocked by outstanding
// reservations.
type HasActiveReservationsError struct {
	EventID string
	Count   int
}

func (e *HasActiveReservationsError) Error() string {
	return fmt.Sprintf("event %s has %d active reservations", e.EventID, e.Count)
}

// StorageError wraps a failure of the persistence dependency so callers can
// distinguish it from domain rejections.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Storage wraps err as a StorageError; nil stays nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is a ValidationError or DuplicateError,
// both locally correctable by the caller.
func IsValidation(err error) bool {
	var ve *ValidationError
	var de *DuplicateError
	return errors.As(err, &ve) || errors.As(err, &de)
}

// IsConflict reports whether err is one of the 409-equivalent rejections.
func IsConflict(err error) bool {
	var cc *CapacityConflictError
	var ar *HasActiveReservationsError
	return errors.Is(err, ErrInsufficientCapacity) ||
		errors.Is(err, ErrEventCancelled) ||
		errors.As(err, &cc) ||
		errors.As(err, &ar)
}
