package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "planet/internal/errors"
	"planet/internal/metrics"
	"planet/internal/models"
)

// CartService manages holder reservations against event capacity. The ledger
// debit happens first, so a reservation row can only exist for capacity that
// was actually taken.
type CartService struct {
	reservations ReservationStore
	ledger       CapacityLedger
	events       EventStore
	publisher    Publisher
}

func NewCartService(reservations ReservationStore, ledger CapacityLedger, events EventStore, publisher Publisher) *CartService {
	return &CartService{
		reservations: reservations,
		ledger:       ledger,
		events:       events,
		publisher:    publisher,
	}
}

// AddToCart reserves quantity spots of the event for the holder. Re-adding
// the same event increments the existing reservation. On a storage failure
// after the debit, the spots are credited back so no capacity leaks.
func (s *CartService) AddToCart(ctx context.Context, holderID, eventID string, quantity int) (*models.Reservation, error) {
	if quantity < 1 {
		return nil, apperrors.NewValidation("quantity", "must be at least 1")
	}

	spotsLeft, err := s.ledger.Debit(ctx, eventID, quantity)
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	reservation, err := s.reservations.Upsert(ctx, &models.Reservation{
		EventID:  eventID,
		HolderID: holderID,
		Quantity: quantity,
	})
	if err != nil {
		// Give the spots back; the reservation never existed.
		if _, creditErr := s.ledger.Credit(ctx, eventID, quantity); creditErr != nil {
			slog.Error("Failed to credit spots after reservation failure",
				"event_id", eventID, "holder_id", holderID, "quantity", quantity, "error", creditErr)
		}
		return nil, err
	}

	metrics.ReservationsTotal.Inc()
	s.publish(models.SubjectReservationCreated, models.ReservationMessage{
		EventID:   eventID,
		HolderID:  holderID,
		Quantity:  quantity,
		SpotsLeft: spotsLeft,
		Timestamp: time.Now().UTC(),
	})

	return reservation, nil
}

// RemoveFromCart releases the holder's reservation and returns the event's
// spots_left after the credit. The ledger deletes the row and credits the
// quantity in one transaction, so a concurrent or repeated removal gets
// NotFoundError and credits nothing.
func (s *CartService) RemoveFromCart(ctx context.Context, holderID, eventID string) (int, error) {
	quantity, spotsLeft, err := s.ledger.Release(ctx, eventID, holderID)
	if err != nil {
		return 0, err
	}

	metrics.ReleasesTotal.Inc()
	s.publish(models.SubjectReservationReleased, models.ReservationMessage{
		EventID:   eventID,
		HolderID:  holderID,
		Quantity:  quantity,
		SpotsLeft: spotsLeft,
		Timestamp: time.Now().UTC(),
	})

	return spotsLeft, nil
}

// ListCart returns the holder's reservations.
func (s *CartService) ListCart(ctx context.Context, holderID string) ([]models.Reservation, error) {
	return s.reservations.ListByHolder(ctx, holderID)
}

// ListAttendees returns all reservations of an event for the admin view.
func (s *CartService) ListAttendees(ctx context.Context, eventID string) ([]models.Reservation, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	return s.reservations.ListByEvent(ctx, eventID)
}

func (s *CartService) countRejection(err error) {
	switch {
	case errors.Is(err, apperrors.ErrInsufficientCapacity):
		metrics.ReservationRejectionsTotal.WithLabelValues(metrics.ReasonSoldOut).Inc()
	case errors.Is(err, apperrors.ErrEventCancelled):
		metrics.ReservationRejectionsTotal.WithLabelValues(metrics.ReasonCancelled).Inc()
	case apperrors.IsNotFound(err):
		metrics.ReservationRejectionsTotal.WithLabelValues(metrics.ReasonNotFound).Inc()
	}
}

func (s *CartService) publish(subject string, msg interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(subject, msg); err != nil {
		slog.Error("Failed to publish message", "subject", subject, "error", err)
	}
}
