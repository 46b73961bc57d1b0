package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createEventsTable,
		createReservationsTable,
		createEventsDateIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id UUID PRIMARY KEY,
    name VARCHAR(500) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    event_date TIMESTAMP NOT NULL,
    event_time VARCHAR(20) NOT NULL DEFAULT '',
    location VARCHAR(500) NOT NULL DEFAULT '',
    organizer VARCHAR(255) NOT NULL,
    price DECIMAL(10,2) NOT NULL DEFAULT 0,
    img_url VARCHAR(1000) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL DEFAULT 'confirmed',
    max_attendees INTEGER NOT NULL,
    spots_left INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CONSTRAINT events_name_date_organizer_key UNIQUE (name, event_date, organizer),
    CHECK (status IN ('confirmed', 'cancelled')),
    CHECK (max_attendees >= 1),
    CHECK (spots_left >= 0 AND spots_left <= max_attendees)
);`

const createReservationsTable = `
CREATE TABLE IF NOT EXISTS reservations (
    id UUID PRIMARY KEY,
    event_id UUID NOT NULL REFERENCES events(id),
    holder_id VARCHAR(255) NOT NULL,
    quantity INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CONSTRAINT reservations_event_holder_key UNIQUE (event_id, holder_id),
    CHECK (quantity >= 1)
);`

const createEventsDateIndex = `
CREATE INDEX IF NOT EXISTS events_event_date_idx ON events (event_date);
CREATE INDEX IF NOT EXISTS events_organizer_idx ON events (organizer);
CREATE INDEX IF NOT EXISTS reservations_holder_idx ON reservations (holder_id);`
