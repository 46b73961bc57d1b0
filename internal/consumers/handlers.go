package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	apperrors "planet/internal/errors"
	"planet/internal/models"
	"planet/internal/repository"
	"planet/internal/search"

	"github.com/nats-io/stan.go"
)

// Handlers react to domain events and keep the Elasticsearch index in step
// with the database. The database is authoritative; a failed sync is logged
// and the message is not acked, so it redelivers.
type Handlers struct {
	repos  *repository.Repositories
	search *search.ElasticsearchClient
}

func NewHandlers(repos *repository.Repositories, es *search.ElasticsearchClient) *Handlers {
	return &Handlers{
		repos:  repos,
		search: es,
	}
}

// HandleEventChanged reindexes the event on created, updated and cancelled.
func (h *Handlers) HandleEventChanged(m *stan.Msg) {
	var msg models.EventChangedMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		slog.Error("Failed to unmarshal event change", "error", err)
		m.Ack()
		return
	}

	if h.reindex(msg.EventID) {
		m.Ack()
	}
}

// HandleEventDeleted removes the event document.
func (h *Handlers) HandleEventDeleted(m *stan.Msg) {
	var msg models.EventDeletedMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		slog.Error("Failed to unmarshal event deletion", "error", err)
		m.Ack()
		return
	}

	if h.search != nil {
		if err := h.search.DeleteEvent(context.Background(), msg.EventID); err != nil {
			slog.Error("Failed to delete event from index", "event_id", msg.EventID, "error", err)
			return
		}
	}

	slog.Info("Event removed from index", "event_id", msg.EventID)
	m.Ack()
}

// HandleReservationChanged refreshes the indexed availability after a
// reservation is created or released.
func (h *Handlers) HandleReservationChanged(m *stan.Msg) {
	var msg models.ReservationMessage
	if err := json.Unmarshal(m.Data, &msg); err != nil {
		slog.Error("Failed to unmarshal reservation change", "error", err)
		m.Ack()
		return
	}

	if h.reindex(msg.EventID) {
		m.Ack()
	}
}

// reindex fetches the current event row and rewrites its document. A row
// that disappeared between publish and consume is treated as handled; the
// deletion subject covers the index cleanup.
func (h *Handlers) reindex(eventID string) bool {
	if h.search == nil {
		return true
	}

	ctx := context.Background()
	event, err := h.repos.Events.GetByID(ctx, eventID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return true
		}
		slog.Error("Failed to load event for indexing", "event_id", eventID, "error", err)
		return false
	}

	if err := h.search.IndexEvent(ctx, event); err != nil {
		slog.Error("Failed to index event", "event_id", eventID, "error", err)
		return false
	}

	slog.Info("Event indexed", "event_id", eventID, "spots_left", event.SpotsLeft)
	return true
}
