package models

import (
	"time"
)

// Event lifecycle statuses.
const (
	EventStatusConfirmed = "confirmed"
	EventStatusCancelled = "cancelled"
)

// Event represents a capacity-limited offering created by an organizer.
// Date is always midnight UTC; Time is the local display string the
// organizer entered.
type Event struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"eventName" db:"name"`
	Description  string    `json:"eventDescription" db:"description"`
	Date         time.Time `json:"eventDate" db:"event_date"`
	Time         string    `json:"eventTime" db:"event_time"`
	Location     string    `json:"eventLocation" db:"location"`
	Organizer    string    `json:"eventOrg" db:"organizer"`
	Price        float64   `json:"eventPrice" db:"price"`
	ImgURL       string    `json:"eventImgUrl" db:"img_url"`
	Status       string    `json:"eventStatus" db:"status"`
	MaxAttendees int       `json:"maxAttendees" db:"max_attendees"`
	SpotsLeft    int       `json:"spotsLeft" db:"spots_left"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// IsCancelled reports whether the event is frozen for reservations.
func (e *Event) IsCancelled() bool {
	return e.Status == EventStatusCancelled
}

// Reserved returns the number of spots committed to reservations.
func (e *Event) Reserved() int {
	return e.MaxAttendees - e.SpotsLeft
}

// Reservation is a holder's claim on event capacity. Identity is the
// (event_id, holder_id) pair; ID is a stable surrogate for responses.
type Reservation struct {
	ID        string    `json:"id" db:"id"`
	EventID   string    `json:"eventId" db:"event_id"`
	HolderID  string    `json:"holderId" db:"holder_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
