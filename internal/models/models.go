package models

import (
	"fmt"
	"strings"
	"time"
)

// EventDate is a calendar date that unmarshals from either "2006-01-02" or a
// full RFC 3339 timestamp and is always normalized to midnight UTC.
type EventDate time.Time

// UnmarshalJSON accepts plain dates and timestamps from form clients.
func (d *EventDate) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	if str == "" || str == "null" {
		*d = EventDate(time.Time{})
		return nil
	}

	var parsed time.Time
	var err error
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		parsed, err = time.Parse(layout, str)
		if err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("invalid date value: %s", str)
	}

	*d = EventDate(NormalizeDate(parsed))
	return nil
}

// MarshalJSON renders the date as RFC 3339 at midnight UTC.
func (d EventDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(d).UTC().Format(time.RFC3339) + `"`), nil
}

// Time returns the underlying time.Time.
func (d EventDate) Time() time.Time {
	return time.Time(d)
}

// NormalizeDate truncates a timestamp to midnight UTC of its calendar day.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CreateEventRequest carries the fields of POST /events. Required-field and
// range checks happen in the service so errors can name the offending field.
type CreateEventRequest struct {
	Name         string    `json:"eventName"`
	Description  string    `json:"eventDescription"`
	Date         EventDate `json:"eventDate"`
	Time         string    `json:"eventTime"`
	Location     string    `json:"eventLocation"`
	Price        *float64  `json:"eventPrice"`
	ImgURL       string    `json:"eventImgUrl"`
	Status       string    `json:"eventStatus"`
	MaxAttendees *int      `json:"maxAttendees"`
}

// UpdateEventRequest carries the partial fields of PATCH /events/:id.
// Nil means "leave unchanged".
type UpdateEventRequest struct {
	Name         *string    `json:"eventName"`
	Description  *string    `json:"eventDescription"`
	Date         *EventDate `json:"eventDate"`
	Time         *string    `json:"eventTime"`
	Location     *string    `json:"eventLocation"`
	Price        *float64   `json:"eventPrice"`
	ImgURL       *string    `json:"eventImgUrl"`
	MaxAttendees *int       `json:"maxAttendees"`
}

// EventSummary is the mutation response envelope.
type EventSummary struct {
	Name      string     `json:"eventName"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	SpotsLeft *int       `json:"spotsLeft,omitempty"`
}

// AddToCartRequest is the body of POST /events/:id/cart. A nil Quantity
// means the field was omitted and defaults to 1; an explicit value is taken
// as-is, including zero.
type AddToCartRequest struct {
	Quantity *int `json:"quantity"`
}

// ErrorResponse is the JSON error envelope of the HTTP boundary.
type ErrorResponse struct {
	Message string `json:"message"`
}
