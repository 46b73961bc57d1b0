// Package api assembles the HTTP server: connections, migrations, routes.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"planet/internal/cache"
	"planet/internal/config"
	"planet/internal/database"
	"planet/internal/handlers"
	"planet/internal/logger"
	"planet/internal/messaging"
	"planet/internal/middleware"
	"planet/internal/repository"
	"planet/internal/search"
	"planet/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP API process: router, storage and the optional
// messaging/cache connections.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	search   *search.ElasticsearchClient
	services *service.Services
	repos    *repository.Repositories
}

// NewServer connects the dependencies and builds the router. The database is
// mandatory; NATS and Valkey degrade to disabled when unreachable.
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		slog.Warn("NATS unavailable, domain events disabled", "error", err)
		natsClient = nil
	}

	var valkey *cache.ValkeyClient
	if cfg.Valkey.Enabled {
		valkey, err = cache.NewValkeyClient(cfg.Valkey)
		if err != nil {
			slog.Warn("Valkey unavailable, events cache disabled", "error", err)
			valkey = nil
		}
	}

	var es *search.ElasticsearchClient
	if cfg.Elasticsearch.Enabled {
		es, err = search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			slog.Warn("Elasticsearch unavailable, text search falls back to database", "error", err)
			es = nil
		}
	}

	repos := repository.NewRepositories(db)

	var publisher service.Publisher
	if natsClient != nil {
		publisher = natsClient
	}
	services := service.NewServices(repos, publisher)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkey,
		search:   es,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.valkey, s.search)

	events := s.router.Group("/events")
	{
		events.GET("", h.ListEvents)
		events.GET("/:id", h.GetEvent)
		events.GET("/:id/attendees", h.ListAttendees)

		identified := events.Group("", middleware.HolderIdentity())
		{
			identified.POST("", h.CreateEvent)
			identified.PATCH("/:id", h.UpdateEvent)
			identified.DELETE("/:id", h.DeleteEvent)
			identified.POST("/:id/cancel", h.CancelEvent)
			identified.POST("/:id/cart", h.AddToCart)
			identified.DELETE("/:id/cart", h.RemoveFromCart)
		}
	}

	s.router.GET("/cart", middleware.HolderIdentity(), h.ListCart)

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbHealth.Status,
		"service":  "planet-api",
		"database": dbHealth,
	})
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	slog.Info("Starting HTTP server", "addr", addr)
	return s.router.Run(addr)
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes the connections.
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			slog.Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
