package service

import (
	"context"
	"log/slog"
	"time"

	apperrors "planet/internal/errors"
	"planet/internal/models"
	"planet/internal/query"

	"github.com/google/uuid"
)

// EventService handles event lifecycle: create, read, update, cancel, delete.
type EventService struct {
	events    EventStore
	ledger    CapacityLedger
	publisher Publisher
}

func NewEventService(events EventStore, ledger CapacityLedger, publisher Publisher) *EventService {
	return &EventService{
		events:    events,
		ledger:    ledger,
		publisher: publisher,
	}
}

// ListFilter narrows the admin event listing. Zero values mean "no filter";
// a zero From/To leaves that bound open.
type ListFilter struct {
	Organizer string
	From      time.Time
	To        time.Time
	Term      string
}

// Create validates the request and persists a new event owned by organizer.
// spotsLeft is seeded to maxAttendees.
func (s *EventService) Create(ctx context.Context, organizer string, req *models.CreateEventRequest) (*models.Event, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.EventStatusConfirmed
	}

	now := time.Now().UTC()
	event := &models.Event{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Description:  req.Description,
		Date:         req.Date.Time(),
		Time:         req.Time,
		Location:     req.Location,
		Organizer:    organizer,
		Price:        *req.Price,
		ImgURL:       req.ImgURL,
		Status:       status,
		MaxAttendees: *req.MaxAttendees,
		SpotsLeft:    *req.MaxAttendees,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.publishChange(models.SubjectEventCreated, event)
	return event, nil
}

// Get returns the event or a NotFoundError.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	return s.events.GetByID(ctx, id)
}

// List returns events narrowed by the filter, ordered by date.
func (s *EventService) List(ctx context.Context, filter ListFilter) ([]models.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, err
	}

	if filter.Organizer != "" {
		events = query.ByOrganizer(events, filter.Organizer)
	}
	if !filter.From.IsZero() || !filter.To.IsZero() {
		events = query.ByDateRange(events, filter.From, filter.To)
	}
	if filter.Term != "" {
		events = query.ByNameSubstring(events, filter.Term)
	}
	return events, nil
}

// Update merges the non-nil fields into the event. A maxAttendees change goes
// through the ledger so spots_left is re-derived under the row lock; it fails
// with CapacityConflictError when the new maximum is below what is reserved.
func (s *EventService) Update(ctx context.Context, id string, req *models.UpdateEventRequest) (*models.Event, error) {
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	original := *event

	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Date != nil {
		event.Date = req.Date.Time()
	}
	if req.Time != nil {
		event.Time = *req.Time
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.Price != nil {
		event.Price = *req.Price
	}
	if req.ImgURL != nil {
		event.ImgURL = *req.ImgURL
	}

	// Attributes commit first: a duplicate rename or vanished row aborts
	// before capacity is touched. A rejected resize then restores them so a
	// failed update leaves nothing behind.
	if err := s.events.UpdateFields(ctx, event); err != nil {
		return nil, err
	}

	if req.MaxAttendees != nil && *req.MaxAttendees != event.MaxAttendees {
		spotsLeft, err := s.ledger.Resize(ctx, id, *req.MaxAttendees)
		if err != nil {
			if revertErr := s.events.UpdateFields(ctx, &original); revertErr != nil {
				slog.Error("Failed to restore attributes after rejected capacity change",
					"event_id", id,
					"error", revertErr)
			}
			return nil, err
		}
		event.MaxAttendees = *req.MaxAttendees
		event.SpotsLeft = spotsLeft
	}

	s.publishChange(models.SubjectEventUpdated, event)
	return event, nil
}

// Cancel marks the event cancelled. Existing reservations stay; new debits
// fail from this point on.
func (s *EventService) Cancel(ctx context.Context, id string) (*models.Event, error) {
	if err := s.ledger.Cancel(ctx, id); err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publishChange(models.SubjectEventCancelled, event)
	return event, nil
}

// Delete removes the event. Any active reservation blocks it with
// HasActiveReservationsError.
func (s *EventService) Delete(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.events.Delete(ctx, id); err != nil {
		return nil, err
	}

	s.publish(models.SubjectEventDeleted, models.EventDeletedMessage{
		EventID:   id,
		Timestamp: time.Now().UTC(),
	})
	return event, nil
}

func (s *EventService) publishChange(subject string, event *models.Event) {
	s.publish(subject, models.EventChangedMessage{
		EventID:   event.ID,
		Name:      event.Name,
		Organizer: event.Organizer,
		Status:    event.Status,
		Timestamp: time.Now().UTC(),
	})
}

func (s *EventService) publish(subject string, msg interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(subject, msg); err != nil {
		slog.Error("Failed to publish message", "subject", subject, "error", err)
	}
}

func validateCreate(req *models.CreateEventRequest) error {
	if req.Name == "" {
		return apperrors.NewValidation("eventName", "is required")
	}
	if req.Date.Time().IsZero() {
		return apperrors.NewValidation("eventDate", "is required")
	}
	if req.Location == "" {
		return apperrors.NewValidation("eventLocation", "is required")
	}
	if req.Price == nil {
		return apperrors.NewValidation("eventPrice", "is required")
	}
	if *req.Price < 0 {
		return apperrors.NewValidation("eventPrice", "must not be negative")
	}
	if req.MaxAttendees == nil {
		return apperrors.NewValidation("maxAttendees", "is required")
	}
	if *req.MaxAttendees < 1 {
		return apperrors.NewValidation("maxAttendees", "must be at least 1")
	}
	if req.Status != "" && req.Status != models.EventStatusConfirmed && req.Status != models.EventStatusCancelled {
		return apperrors.NewValidation("eventStatus", "must be confirmed or cancelled")
	}
	return nil
}

func validateUpdate(req *models.UpdateEventRequest) error {
	if req.Name != nil && *req.Name == "" {
		return apperrors.NewValidation("eventName", "must not be empty")
	}
	if req.Location != nil && *req.Location == "" {
		return apperrors.NewValidation("eventLocation", "must not be empty")
	}
	if req.Price != nil && *req.Price < 0 {
		return apperrors.NewValidation("eventPrice", "must not be negative")
	}
	return nil
}
