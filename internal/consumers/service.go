package consumers

import (
	"context"
	"log/slog"

	"planet/internal/config"
	"planet/internal/database"
	"planet/internal/messaging"
	"planet/internal/models"
	"planet/internal/repository"
	"planet/internal/search"
)

const queueGroup = "consumers"

// ConsumerService runs the NATS subscriptions that keep the search index in
// sync with the database.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)

	var es *search.ElasticsearchClient
	if cfg.Elasticsearch.Enabled {
		es, err = search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			return nil, err
		}
	} else {
		slog.Warn("Elasticsearch disabled, consumers will only log events")
	}

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: NewHandlers(repos, es),
	}, nil
}

// Repositories exposes the repository aggregate for the background jobs.
func (cs *ConsumerService) Repositories() *repository.Repositories {
	return cs.repos
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	changed := []string{
		models.SubjectEventCreated,
		models.SubjectEventUpdated,
		models.SubjectEventCancelled,
	}
	for _, subject := range changed {
		if _, err := cs.nats.SubscribeQueue(subject, queueGroup, cs.handlers.HandleEventChanged); err != nil {
			return err
		}
	}

	if _, err := cs.nats.SubscribeQueue(models.SubjectEventDeleted, queueGroup, cs.handlers.HandleEventDeleted); err != nil {
		return err
	}

	for _, subject := range []string{models.SubjectReservationCreated, models.SubjectReservationReleased} {
		if _, err := cs.nats.SubscribeQueue(subject, queueGroup, cs.handlers.HandleReservationChanged); err != nil {
			return err
		}
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
