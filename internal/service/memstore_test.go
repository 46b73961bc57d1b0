package service

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "planet/internal/errors"
	"planet/internal/models"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the Postgres repositories. Every
// mutation holds the store lock, so debits are as atomic as the real
// conditional UPDATE. The interface-shaped views are memEvents, memLedger
// and memReservations.
type memStore struct {
	mu           sync.Mutex
	events       map[string]*models.Event
	reservations map[string]map[string]*models.Reservation // eventID -> holderID
}

func newMemStore() *memStore {
	return &memStore{
		events:       make(map[string]*models.Event),
		reservations: make(map[string]map[string]*models.Reservation),
	}
}

// reservedSum is the test-side view of the reservation-sum invariant.
func (m *memStore) reservedSum(eventID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := 0
	for _, res := range m.reservations[eventID] {
		sum += res.Quantity
	}
	return sum
}

type memEvents struct{ s *memStore }

func (m memEvents) Create(_ context.Context, event *models.Event) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, existing := range m.s.events {
		if existing.Name == event.Name && existing.Date.Equal(event.Date) && existing.Organizer == event.Organizer {
			return &apperrors.DuplicateError{Field: "eventName"}
		}
	}

	copied := *event
	m.s.events[event.ID] = &copied
	return nil
}

func (m memEvents) GetByID(_ context.Context, id string) (*models.Event, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	event, ok := m.s.events[id]
	if !ok {
		return nil, &apperrors.NotFoundError{Resource: "event", ID: id}
	}
	copied := *event
	return &copied, nil
}

func (m memEvents) List(_ context.Context) ([]models.Event, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	events := make([]models.Event, 0, len(m.s.events))
	for _, event := range m.s.events {
		events = append(events, *event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Date.Before(events[j].Date) })
	return events, nil
}

func (m memEvents) UpdateFields(_ context.Context, event *models.Event) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	stored, ok := m.s.events[event.ID]
	if !ok {
		return &apperrors.NotFoundError{Resource: "event", ID: event.ID}
	}
	for id, existing := range m.s.events {
		if id != event.ID && existing.Name == event.Name && existing.Date.Equal(event.Date) && existing.Organizer == event.Organizer {
			return &apperrors.DuplicateError{Field: "eventName"}
		}
	}
	stored.Name = event.Name
	stored.Description = event.Description
	stored.Date = event.Date
	stored.Time = event.Time
	stored.Location = event.Location
	stored.Price = event.Price
	stored.ImgURL = event.ImgURL
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (m memEvents) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.events[id]; !ok {
		return &apperrors.NotFoundError{Resource: "event", ID: id}
	}
	if held := m.s.reservations[id]; len(held) > 0 {
		return &apperrors.HasActiveReservationsError{EventID: id, Count: len(held)}
	}
	delete(m.s.events, id)
	return nil
}

type memLedger struct{ s *memStore }

func (m memLedger) Debit(_ context.Context, eventID string, quantity int) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	event, ok := m.s.events[eventID]
	if !ok {
		return 0, &apperrors.NotFoundError{Resource: "event", ID: eventID}
	}
	if event.Status == models.EventStatusCancelled {
		return 0, apperrors.ErrEventCancelled
	}
	if event.SpotsLeft < quantity {
		return 0, apperrors.ErrInsufficientCapacity
	}
	event.SpotsLeft -= quantity
	return event.SpotsLeft, nil
}

func (m memLedger) Credit(_ context.Context, eventID string, quantity int) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	event, ok := m.s.events[eventID]
	if !ok {
		return 0, &apperrors.NotFoundError{Resource: "event", ID: eventID}
	}
	event.SpotsLeft += quantity
	if event.SpotsLeft > event.MaxAttendees {
		event.SpotsLeft = event.MaxAttendees
	}
	return event.SpotsLeft, nil
}

func (m memLedger) Release(_ context.Context, eventID, holderID string) (int, int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	res, ok := m.s.reservations[eventID][holderID]
	if !ok {
		return 0, 0, &apperrors.NotFoundError{Resource: "reservation", ID: eventID}
	}
	event, ok := m.s.events[eventID]
	if !ok {
		return 0, 0, &apperrors.NotFoundError{Resource: "event", ID: eventID}
	}
	delete(m.s.reservations[eventID], holderID)
	event.SpotsLeft += res.Quantity
	if event.SpotsLeft > event.MaxAttendees {
		event.SpotsLeft = event.MaxAttendees
	}
	return res.Quantity, event.SpotsLeft, nil
}

func (m memLedger) Cancel(_ context.Context, eventID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	event, ok := m.s.events[eventID]
	if !ok {
		return &apperrors.NotFoundError{Resource: "event", ID: eventID}
	}
	event.Status = models.EventStatusCancelled
	return nil
}

func (m memLedger) Resize(_ context.Context, eventID string, maxAttendees int) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	event, ok := m.s.events[eventID]
	if !ok {
		return 0, &apperrors.NotFoundError{Resource: "event", ID: eventID}
	}
	reserved := event.MaxAttendees - event.SpotsLeft
	if maxAttendees < reserved {
		return 0, &apperrors.CapacityConflictError{MaxAttendees: maxAttendees, Reserved: reserved}
	}
	if maxAttendees < 1 {
		return 0, apperrors.NewValidation("maxAttendees", "must be at least 1")
	}
	event.MaxAttendees = maxAttendees
	event.SpotsLeft = maxAttendees - reserved
	return event.SpotsLeft, nil
}

type memReservations struct{ s *memStore }

func (m memReservations) Upsert(_ context.Context, res *models.Reservation) (*models.Reservation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	held := m.s.reservations[res.EventID]
	if held == nil {
		held = make(map[string]*models.Reservation)
		m.s.reservations[res.EventID] = held
	}

	if existing, ok := held[res.HolderID]; ok {
		existing.Quantity += res.Quantity
		copied := *existing
		return &copied, nil
	}

	stored := &models.Reservation{
		ID:        uuid.NewString(),
		EventID:   res.EventID,
		HolderID:  res.HolderID,
		Quantity:  res.Quantity,
		CreatedAt: time.Now().UTC(),
	}
	held[res.HolderID] = stored
	copied := *stored
	return &copied, nil
}

func (m memReservations) ListByHolder(_ context.Context, holderID string) ([]models.Reservation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []models.Reservation
	for _, held := range m.s.reservations {
		if res, ok := held[holderID]; ok {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m memReservations) ListByEvent(_ context.Context, eventID string) ([]models.Reservation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var out []models.Reservation
	for _, res := range m.s.reservations[eventID] {
		out = append(out, *res)
	}
	return out, nil
}

// fakePublisher records published subjects.
type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *fakePublisher) Publish(subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *fakePublisher) published(subject string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.subjects {
		if s == subject {
			return true
		}
	}
	return false
}

// newTestServices builds the service pair over a fresh in-memory store.
func newTestServices() (*Services, *memStore, *fakePublisher) {
	store := newMemStore()
	pub := &fakePublisher{}
	events := memEvents{s: store}
	ledger := memLedger{s: store}
	reservations := memReservations{s: store}

	return &Services{
		Events: NewEventService(events, ledger, pub),
		Cart:   NewCartService(reservations, ledger, events, pub),
	}, store, pub
}
