package repository

import (
	"planet/internal/database"
)

type Repositories struct {
	Events       *EventRepository
	Ledger       *LedgerRepository
	Reservations *ReservationRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events:       NewEventRepository(db),
		Ledger:       NewLedgerRepository(db),
		Reservations: NewReservationRepository(db),
	}
}
