// Package query implements the in-process filters behind the admin listing.
// Filters are pure and order-independent; callers chain them over a slice of
// events.
package query

import (
	"strings"
	"time"

	"planet/internal/models"
)

// ByOrganizer keeps only events created by the given organizer.
func ByOrganizer(events []models.Event, organizer string) []models.Event {
	if organizer == "" {
		return events
	}

	filtered := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.Organizer == organizer {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// ByDateRange keeps events whose date falls inside [start, end], bounds
// included. A zero start or end leaves that side open.
func ByDateRange(events []models.Event, start, end time.Time) []models.Event {
	if start.IsZero() && end.IsZero() {
		return events
	}

	filtered := make([]models.Event, 0, len(events))
	for _, e := range events {
		if !start.IsZero() && e.Date.Before(start) {
			continue
		}
		if !end.IsZero() && e.Date.After(end) {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// ByNameSubstring keeps events whose name contains term, case-insensitively.
// An empty term returns the input unchanged.
func ByNameSubstring(events []models.Event, term string) []models.Event {
	if term == "" {
		return events
	}

	term = strings.ToLower(term)
	filtered := make([]models.Event, 0, len(events))
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Name), term) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
