// Package service implements the business rules over the storage layer:
// event lifecycle, capacity-safe reservations and the admin listing filters.
package service

import (
	"context"

	"planet/internal/models"
	"planet/internal/repository"
)

// EventStore is the persistence surface for event records.
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
	UpdateFields(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
}

// CapacityLedger owns spots_left. Nothing else writes it; Release also
// deletes the backing reservation so the credit and the delete commit
// together.
type CapacityLedger interface {
	Debit(ctx context.Context, eventID string, quantity int) (int, error)
	Credit(ctx context.Context, eventID string, quantity int) (int, error)
	Release(ctx context.Context, eventID, holderID string) (int, int, error)
	Cancel(ctx context.Context, eventID string) error
	Resize(ctx context.Context, eventID string, maxAttendees int) (int, error)
}

// ReservationStore is the persistence surface for cart reservations.
type ReservationStore interface {
	Upsert(ctx context.Context, res *models.Reservation) (*models.Reservation, error)
	ListByHolder(ctx context.Context, holderID string) ([]models.Reservation, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.Reservation, error)
}

// Publisher emits domain events. Publish failures are logged, never fatal.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// Services aggregates the business services for dependency injection.
type Services struct {
	Events *EventService
	Cart   *CartService
}

// NewServices wires the services over the repository aggregate.
func NewServices(repos *repository.Repositories, publisher Publisher) *Services {
	return &Services{
		Events: NewEventService(repos.Events, repos.Ledger, publisher),
		Cart:   NewCartService(repos.Reservations, repos.Ledger, repos.Events, publisher),
	}
}
