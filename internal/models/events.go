package models

import "time"

// NATS subjects for domain events.
const (
	SubjectEventCreated        = "event.created"
	SubjectEventUpdated        = "event.updated"
	SubjectEventCancelled      = "event.cancelled"
	SubjectEventDeleted        = "event.deleted"
	SubjectReservationCreated  = "reservation.created"
	SubjectReservationReleased = "reservation.released"
)

// EventChangedMessage is published on event.created, event.updated and
// event.cancelled so consumers can refresh the search index.
type EventChangedMessage struct {
	EventID   string    `json:"event_id"`
	Name      string    `json:"event_name"`
	Organizer string    `json:"organizer"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// EventDeletedMessage is published when an event record is removed.
type EventDeletedMessage struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationMessage is published on reservation.created and
// reservation.released.
type ReservationMessage struct {
	EventID   string    `json:"event_id"`
	HolderID  string    `json:"holder_id"`
	Quantity  int       `json:"quantity"`
	SpotsLeft int       `json:"spots_left"`
	Timestamp time.Time `json:"timestamp"`
}
