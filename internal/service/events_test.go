package service

import (
	"context"
	"testing"
	"time"

	apperrors "planet/internal/errors"
	"planet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
func strPtr(s string) *string     { return &s }

func createRequest(name string, maxAttendees int) *models.CreateEventRequest {
	return &models.CreateEventRequest{
		Name:         name,
		Description:  "a gathering",
		Date:         models.EventDate(time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC)),
		Time:         "14:00",
		Location:     "Central Park",
		Price:        floatPtr(10),
		MaxAttendees: intPtr(maxAttendees),
	}
}

func TestCreateEventSeedsCapacity(t *testing.T) {
	svc, _, pub := newTestServices()

	event, err := svc.Events.Create(context.Background(), "org-1", createRequest("Picnic", 25))
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "Picnic", event.Name)
	assert.Equal(t, "org-1", event.Organizer)
	assert.Equal(t, models.EventStatusConfirmed, event.Status)
	assert.Equal(t, 25, event.MaxAttendees)
	assert.Equal(t, 25, event.SpotsLeft)
	assert.False(t, event.CreatedAt.IsZero())
	assert.True(t, pub.published(models.SubjectEventCreated))
}

func TestCreateEventValidation(t *testing.T) {
	svc, _, _ := newTestServices()

	tests := []struct {
		name   string
		mutate func(*models.CreateEventRequest)
		field  string
	}{
		{"missing name", func(r *models.CreateEventRequest) { r.Name = "" }, "eventName"},
		{"missing date", func(r *models.CreateEventRequest) { r.Date = models.EventDate(time.Time{}) }, "eventDate"},
		{"missing location", func(r *models.CreateEventRequest) { r.Location = "" }, "eventLocation"},
		{"missing price", func(r *models.CreateEventRequest) { r.Price = nil }, "eventPrice"},
		{"negative price", func(r *models.CreateEventRequest) { r.Price = floatPtr(-1) }, "eventPrice"},
		{"missing maxAttendees", func(r *models.CreateEventRequest) { r.MaxAttendees = nil }, "maxAttendees"},
		{"zero maxAttendees", func(r *models.CreateEventRequest) { r.MaxAttendees = intPtr(0) }, "maxAttendees"},
		{"bogus status", func(r *models.CreateEventRequest) { r.Status = "draft" }, "eventStatus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := createRequest("Picnic", 10)
			tt.mutate(req)

			_, err := svc.Events.Create(context.Background(), "org-1", req)
			require.Error(t, err)

			var ve *apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestCreateEventDuplicateNamesField(t *testing.T) {
	svc, _, _ := newTestServices()
	ctx := context.Background()

	_, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 10))
	require.NoError(t, err)

	_, err = svc.Events.Create(ctx, "org-1", createRequest("Picnic", 10))
	require.Error(t, err)

	var de *apperrors.DuplicateError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "eventName", de.Field)
	assert.True(t, apperrors.IsValidation(err))

	// Same name but another organizer is a different event.
	_, err = svc.Events.Create(ctx, "org-2", createRequest("Picnic", 10))
	assert.NoError(t, err)
}

func TestGetEventNotFound(t *testing.T) {
	svc, _, _ := newTestServices()

	_, err := svc.Events.Get(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListEventsFiltered(t *testing.T) {
	svc, _, _ := newTestServices()
	ctx := context.Background()

	mk := func(name, org string, day int) {
		req := createRequest(name, 10)
		req.Date = models.EventDate(time.Date(2026, 10, day, 0, 0, 0, 0, time.UTC))
		_, err := svc.Events.Create(ctx, org, req)
		require.NoError(t, err)
	}
	mk("Picnic", "org-1", 3)
	mk("Marathon", "org-1", 10)
	mk("Gala Dinner", "org-2", 20)

	all, err := svc.Events.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byOrg, err := svc.Events.List(ctx, ListFilter{Organizer: "org-1"})
	require.NoError(t, err)
	assert.Len(t, byOrg, 2)

	inRange, err := svc.Events.List(ctx, ListFilter{
		From: time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	byTerm, err := svc.Events.List(ctx, ListFilter{Term: "gala"})
	require.NoError(t, err)
	require.Len(t, byTerm, 1)
	assert.Equal(t, "Gala Dinner", byTerm[0].Name)
}

func TestUpdateEventMergesFields(t *testing.T) {
	svc, _, pub := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 10))
	require.NoError(t, err)

	updated, err := svc.Events.Update(ctx, event.ID, &models.UpdateEventRequest{
		Location: strPtr("Riverside"),
		Price:    floatPtr(12.5),
	})
	require.NoError(t, err)
	assert.Equal(t, "Riverside", updated.Location)
	assert.Equal(t, 12.5, updated.Price)
	assert.Equal(t, "Picnic", updated.Name)
	assert.Equal(t, 10, updated.MaxAttendees)
	assert.True(t, pub.published(models.SubjectEventUpdated))
}

func TestUpdateEventResize(t *testing.T) {
	svc, store, _ := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 10))
	require.NoError(t, err)

	_, err = svc.Cart.AddToCart(ctx, "holder-a", event.ID, 4)
	require.NoError(t, err)

	// Shrinking below the 4 reserved spots is refused and changes nothing.
	_, err = svc.Events.Update(ctx, event.ID, &models.UpdateEventRequest{MaxAttendees: intPtr(3)})
	var cc *apperrors.CapacityConflictError
	require.ErrorAs(t, err, &cc)
	assert.Equal(t, 4, cc.Reserved)

	unchanged, err := svc.Events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, unchanged.MaxAttendees)
	assert.Equal(t, 6, unchanged.SpotsLeft)

	// Shrinking to exactly the reserved count leaves zero spots.
	resized, err := svc.Events.Update(ctx, event.ID, &models.UpdateEventRequest{MaxAttendees: intPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, resized.MaxAttendees)
	assert.Equal(t, 0, resized.SpotsLeft)

	// Growing restores headroom.
	grown, err := svc.Events.Update(ctx, event.ID, &models.UpdateEventRequest{MaxAttendees: intPtr(12)})
	require.NoError(t, err)
	assert.Equal(t, 8, grown.SpotsLeft)
	assert.Equal(t, 4, store.reservedSum(event.ID))
}

func TestUpdateEventRejectedRenameLeavesCapacity(t *testing.T) {
	svc, _, _ := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 10))
	require.NoError(t, err)
	_, err = svc.Events.Create(ctx, "org-1", createRequest("Gala", 10))
	require.NoError(t, err)

	// The rename collides, so the whole update fails and the capacity half
	// must not stick.
	_, err = svc.Events.Update(ctx, event.ID, &models.UpdateEventRequest{
		Name:         strPtr("Gala"),
		MaxAttendees: intPtr(5),
	})
	var dup *apperrors.DuplicateError
	require.ErrorAs(t, err, &dup)

	unchanged, err := svc.Events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Picnic", unchanged.Name)
	assert.Equal(t, 10, unchanged.MaxAttendees)
	assert.Equal(t, 10, unchanged.SpotsLeft)
}

func TestUpdateEventRejectedResizeRestoresAttributes(t *testing.T) {
	svc, _, _ := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 10))
	require.NoError(t, err)
	_, err = svc.Cart.AddToCart(ctx, "holder-a", event.ID, 4)
	require.NoError(t, err)

	// The shrink conflicts with the 4 reserved spots, so the attribute half
	// must not stick either.
	_, err = svc.Events.Update(ctx, event.ID, &models.UpdateEventRequest{
		Location:     strPtr("Riverside"),
		MaxAttendees: intPtr(3),
	})
	var cc *apperrors.CapacityConflictError
	require.ErrorAs(t, err, &cc)

	unchanged, err := svc.Events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Central Park", unchanged.Location)
	assert.Equal(t, 10, unchanged.MaxAttendees)
	assert.Equal(t, 6, unchanged.SpotsLeft)
}

func TestUpdateEventResizeToZeroWithReservation(t *testing.T) {
	svc, _, _ := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 2))
	require.NoError(t, err)
	_, err = svc.Cart.AddToCart(ctx, "holder-a", event.ID, 1)
	require.NoError(t, err)

	_, err = svc.Events.Update(ctx, event.ID, &models.UpdateEventRequest{MaxAttendees: intPtr(0)})
	var cc *apperrors.CapacityConflictError
	require.ErrorAs(t, err, &cc)

	unchanged, err := svc.Events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unchanged.SpotsLeft)
}

func TestCancelEventFreezesDebits(t *testing.T) {
	svc, _, pub := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 10))
	require.NoError(t, err)
	_, err = svc.Cart.AddToCart(ctx, "holder-a", event.ID, 1)
	require.NoError(t, err)

	cancelled, err := svc.Events.Cancel(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCancelled, cancelled.Status)
	assert.Equal(t, 9, cancelled.SpotsLeft)
	assert.True(t, pub.published(models.SubjectEventCancelled))

	_, err = svc.Cart.AddToCart(ctx, "holder-b", event.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrEventCancelled)

	// The existing reservation survives the cancellation.
	cart, err := svc.Cart.ListCart(ctx, "holder-a")
	require.NoError(t, err)
	assert.Len(t, cart, 1)
}

func TestDeleteEventBlockedByReservations(t *testing.T) {
	svc, _, pub := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 10))
	require.NoError(t, err)
	_, err = svc.Cart.AddToCart(ctx, "holder-a", event.ID, 1)
	require.NoError(t, err)

	_, err = svc.Events.Delete(ctx, event.ID)
	var ar *apperrors.HasActiveReservationsError
	require.ErrorAs(t, err, &ar)
	assert.True(t, apperrors.IsConflict(err))

	_, err = svc.Cart.RemoveFromCart(ctx, "holder-a", event.ID)
	require.NoError(t, err)

	deleted, err := svc.Events.Delete(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Picnic", deleted.Name)
	assert.True(t, pub.published(models.SubjectEventDeleted))

	_, err = svc.Events.Get(ctx, event.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
