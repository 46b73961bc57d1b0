// Package handlers maps the HTTP contract onto the services: JSON in,
// JSON out, error kinds to status codes. No business logic lives here.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"planet/internal/cache"
	apperrors "planet/internal/errors"
	"planet/internal/models"
	"planet/internal/search"
	"planet/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services *service.Services
	cache    *cache.ValkeyClient
	search   *search.ElasticsearchClient
}

// NewHandlers builds the handler set. cache and es may be nil when the
// Valkey or Elasticsearch layers are disabled.
func NewHandlers(services *service.Services, valkey *cache.ValkeyClient, es *search.ElasticsearchClient) *Handlers {
	return &Handlers{
		services: services,
		cache:    valkey,
		search:   es,
	}
}

// CreateEvent handles POST /events. The organizer is the authenticated
// holder; the response carries only the summary the form needs.
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
		return
	}

	event, err := h.services.Events.Create(c.Request.Context(), c.GetString("holder_id"), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.invalidateCache(c)
	createdAt := event.CreatedAt
	c.JSON(http.StatusCreated, models.EventSummary{Name: event.Name, CreatedAt: &createdAt})
}

// ListEvents handles GET /events with the optional organizer, from, to and q
// query parameters. The unfiltered listing is served from the Valkey cache
// when it is warm.
func (h *Handlers) ListEvents(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	unfiltered := filter == (service.ListFilter{})
	if unfiltered && h.cache != nil {
		if raw, err := h.cache.GetEventsListRaw(c.Request.Context()); err == nil && raw != nil {
			c.Data(http.StatusOK, "application/json", raw)
			return
		}
	}

	// Text queries go to the search index when it is wired; the database
	// filters cover the rest and any index outage.
	if filter.Term != "" && h.search != nil {
		events, err := h.search.Search(c.Request.Context(), filter.Term, filter.Organizer, filter.From, filter.To)
		if err == nil {
			c.JSON(http.StatusOK, events)
			return
		}
		slog.Warn("Search index query failed, falling back to database", "error", err)
	}

	events, err := h.services.Events.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if unfiltered && h.cache != nil {
		if err := h.cache.SetEventsList(c.Request.Context(), events); err != nil {
			slog.Warn("Failed to cache events list", "error", err)
		}
	}

	c.JSON(http.StatusOK, events)
}

// GetEvent handles GET /events/:id.
func (h *Handlers) GetEvent(c *gin.Context) {
	event, err := h.services.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// UpdateEvent handles PATCH /events/:id.
func (h *Handlers) UpdateEvent(c *gin.Context) {
	var req models.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
		return
	}

	event, err := h.services.Events.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.invalidateCache(c)
	spotsLeft := event.SpotsLeft
	c.JSON(http.StatusOK, models.EventSummary{Name: event.Name, SpotsLeft: &spotsLeft})
}

// DeleteEvent handles DELETE /events/:id.
func (h *Handlers) DeleteEvent(c *gin.Context) {
	event, err := h.services.Events.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.invalidateCache(c)
	c.JSON(http.StatusOK, models.EventSummary{Name: event.Name})
}

// CancelEvent handles POST /events/:id/cancel.
func (h *Handlers) CancelEvent(c *gin.Context) {
	event, err := h.services.Events.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.invalidateCache(c)
	spotsLeft := event.SpotsLeft
	c.JSON(http.StatusOK, models.EventSummary{Name: event.Name, SpotsLeft: &spotsLeft})
}

// AddToCart handles POST /events/:id/cart. Quantity defaults to 1 when the
// body omits it or is empty.
func (h *Handlers) AddToCart(c *gin.Context) {
	quantity := 1
	if c.Request.ContentLength > 0 {
		var req models.AddToCartRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
			return
		}
		// Only an absent field defaults; an explicit zero is rejected
		// downstream like any other bad quantity.
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
	}

	reservation, err := h.services.Cart.AddToCart(c.Request.Context(), c.GetString("holder_id"), c.Param("id"), quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.invalidateCache(c)
	c.JSON(http.StatusCreated, reservation)
}

// RemoveFromCart handles DELETE /events/:id/cart.
func (h *Handlers) RemoveFromCart(c *gin.Context) {
	spotsLeft, err := h.services.Cart.RemoveFromCart(c.Request.Context(), c.GetString("holder_id"), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.invalidateCache(c)
	c.JSON(http.StatusOK, gin.H{"spotsLeft": spotsLeft})
}

// ListCart handles GET /cart.
func (h *Handlers) ListCart(c *gin.Context) {
	reservations, err := h.services.Cart.ListCart(c.Request.Context(), c.GetString("holder_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if reservations == nil {
		reservations = []models.Reservation{}
	}
	c.JSON(http.StatusOK, reservations)
}

// ListAttendees handles GET /events/:id/attendees.
func (h *Handlers) ListAttendees(c *gin.Context) {
	reservations, err := h.services.Cart.ListAttendees(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if reservations == nil {
		reservations = []models.Reservation{}
	}
	c.JSON(http.StatusOK, reservations)
}

func parseListFilter(c *gin.Context) (service.ListFilter, error) {
	filter := service.ListFilter{
		Organizer: c.Query("organizer"),
		Term:      c.Query("q"),
	}

	if from := c.Query("from"); from != "" {
		t, err := parseDateParam(from)
		if err != nil {
			return filter, apperrors.NewValidation("from", "must be a date")
		}
		filter.From = t
	}
	if to := c.Query("to"); to != "" {
		t, err := parseDateParam(to)
		if err != nil {
			return filter, apperrors.NewValidation("to", "must be a date")
		}
		filter.To = t
	}
	return filter, nil
}

func parseDateParam(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		t, err := time.Parse(layout, value)
		if err == nil {
			return models.NormalizeDate(t), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// writeError maps the error taxonomy onto status codes: validation and
// duplicates 400, unknown ids 404, capacity rejections 409, everything
// else 500.
func (h *Handlers) writeError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: err.Error()})
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Message: err.Error()})
	case apperrors.IsConflict(err):
		c.JSON(http.StatusConflict, models.ErrorResponse{Message: err.Error()})
	default:
		var se *apperrors.StorageError
		if errors.As(err, &se) {
			slog.Error("Storage failure", "op", se.Op, "error", se.Err)
		} else {
			slog.Error("Unhandled error", "error", err)
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "internal server error"})
	}
}

func (h *Handlers) invalidateCache(c *gin.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateEvents(c.Request.Context()); err != nil {
		slog.Warn("Failed to invalidate events cache", "error", err)
	}
}
