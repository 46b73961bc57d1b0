package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	apperrors "planet/internal/errors"
	"planet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToCartDebitsCapacity(t *testing.T) {
	svc, store, pub := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 5))
	require.NoError(t, err)

	res, err := svc.Cart.AddToCart(ctx, "holder-a", event.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Quantity)
	assert.NotEmpty(t, res.ID)

	after, err := svc.Events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.SpotsLeft)
	assert.Equal(t, 2, store.reservedSum(event.ID))
	assert.True(t, pub.published(models.SubjectReservationCreated))
}

func TestAddToCartRejectsBadQuantity(t *testing.T) {
	svc, _, _ := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 5))
	require.NoError(t, err)

	_, err = svc.Cart.AddToCart(ctx, "holder-a", event.ID, 0)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Cart.AddToCart(ctx, "holder-a", "unknown", 1)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAddToCartIncrementsExistingReservation(t *testing.T) {
	svc, store, _ := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 5))
	require.NoError(t, err)

	_, err = svc.Cart.AddToCart(ctx, "holder-a", event.ID, 1)
	require.NoError(t, err)

	res, err := svc.Cart.AddToCart(ctx, "holder-a", event.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Quantity)

	after, err := svc.Events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.SpotsLeft)
	assert.Equal(t, 3, store.reservedSum(event.ID))

	// Still one reservation row for the pair.
	cart, err := svc.Cart.ListCart(ctx, "holder-a")
	require.NoError(t, err)
	assert.Len(t, cart, 1)
}

func TestAddToCartLastSpotExactlyOneWins(t *testing.T) {
	svc, store, _ := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, holder := range []string{"holder-a", "holder-b"} {
		wg.Add(1)
		go func(i int, holder string) {
			defer wg.Done()
			_, errs[i] = svc.Cart.AddToCart(ctx, holder, event.ID, 1)
		}(i, holder)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperrors.ErrInsufficientCapacity):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)

	after, err := svc.Events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.SpotsLeft)
	assert.Equal(t, 1, store.reservedSum(event.ID))
}

func TestAddToCartPicnicScenario(t *testing.T) {
	svc, _, _ := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 2))
	require.NoError(t, err)
	assert.Equal(t, 2, event.SpotsLeft)

	_, err = svc.Cart.AddToCart(ctx, "holder-a", event.ID, 1)
	require.NoError(t, err)

	after, err := svc.Events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.SpotsLeft)

	_, err = svc.Cart.AddToCart(ctx, "holder-b", event.ID, 2)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientCapacity)

	unchanged, err := svc.Events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unchanged.SpotsLeft)
}

func TestRemoveFromCartCreditsOnce(t *testing.T) {
	svc, store, pub := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 5))
	require.NoError(t, err)
	_, err = svc.Cart.AddToCart(ctx, "holder-a", event.ID, 2)
	require.NoError(t, err)

	spotsLeft, err := svc.Cart.RemoveFromCart(ctx, "holder-a", event.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, spotsLeft)
	assert.Equal(t, 0, store.reservedSum(event.ID))
	assert.True(t, pub.published(models.SubjectReservationReleased))

	// Second removal finds no reservation and credits nothing.
	_, err = svc.Cart.RemoveFromCart(ctx, "holder-a", event.ID)
	assert.True(t, apperrors.IsNotFound(err))

	after, err := svc.Events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, after.SpotsLeft)
}

func TestConcurrentRemoveSingleCredit(t *testing.T) {
	svc, _, _ := newTestServices()
	ctx := context.Background()

	event, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 5))
	require.NoError(t, err)
	_, err = svc.Cart.AddToCart(ctx, "holder-a", event.ID, 3)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Cart.RemoveFromCart(ctx, "holder-a", event.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperrors.IsNotFound(err))
		}
	}
	assert.Equal(t, 1, succeeded)

	after, err := svc.Events.Get(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, after.SpotsLeft)
}

func TestListCartAndAttendees(t *testing.T) {
	svc, _, _ := newTestServices()
	ctx := context.Background()

	picnic, err := svc.Events.Create(ctx, "org-1", createRequest("Picnic", 5))
	require.NoError(t, err)
	gala, err := svc.Events.Create(ctx, "org-1", createRequest("Gala", 5))
	require.NoError(t, err)

	_, err = svc.Cart.AddToCart(ctx, "holder-a", picnic.ID, 1)
	require.NoError(t, err)
	_, err = svc.Cart.AddToCart(ctx, "holder-a", gala.ID, 2)
	require.NoError(t, err)
	_, err = svc.Cart.AddToCart(ctx, "holder-b", picnic.ID, 1)
	require.NoError(t, err)

	cart, err := svc.Cart.ListCart(ctx, "holder-a")
	require.NoError(t, err)
	assert.Len(t, cart, 2)

	attendees, err := svc.Cart.ListAttendees(ctx, picnic.ID)
	require.NoError(t, err)
	assert.Len(t, attendees, 2)

	_, err = svc.Cart.ListAttendees(ctx, "unknown")
	assert.True(t, apperrors.IsNotFound(err))
}
