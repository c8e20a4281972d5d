package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pattadon/petshop/internal/domain"
)

func (f *fixture) forceExpired(t *testing.T, orderID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	o, err := f.store.Orders().FindByID(ctx, orderID)
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour)
	o.ExpireAt = &past
	require.NoError(t, f.store.Orders().Save(ctx, o))
}

func TestSweepExpiresReadyOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sweeper := &Sweeper{Store: f.store, Orders: f.orders}
	_, v := f.seedProduct(t, "Salmon Kibble", 250, 5)

	stale := placeOrder(t, f, uuid.New(), map[uuid.UUID]int{v.ID: 2})
	_, err := f.orders.MarkReady(ctx, stale.ID, domain.PickupInfo{})
	require.NoError(t, err)
	f.forceExpired(t, stale.ID)

	fresh := placeOrder(t, f, uuid.New(), map[uuid.UUID]int{v.ID: 1})
	_, err = f.orders.MarkReady(ctx, fresh.ID, domain.PickupInfo{})
	require.NoError(t, err)

	assert.Equal(t, 1, sweeper.Sweep(ctx))

	t.Run("expired order is gone, its stock is back", func(t *testing.T) {
		_, err := f.orders.Get(ctx, stale.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, 4, f.variantStock(t, v.ID))
	})

	t.Run("fresh order untouched", func(t *testing.T) {
		got, err := f.orders.Get(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusReady, got.Status)
	})

	t.Run("second pass is a no-op", func(t *testing.T) {
		assert.Equal(t, 0, sweeper.Sweep(ctx))
		assert.Equal(t, 4, f.variantStock(t, v.ID))
	})
}

func TestSweepIgnoresPlacedOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sweeper := &Sweeper{Store: f.store, Orders: f.orders}
	_, v := f.seedProduct(t, "Salmon Kibble", 250, 5)

	// a placed order has no expiry yet, whatever its age
	placeOrder(t, f, uuid.New(), map[uuid.UUID]int{v.ID: 1})
	assert.Equal(t, 0, sweeper.Sweep(ctx))
}

func TestExpireLosesRaceGracefully(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, v := f.seedProduct(t, "Salmon Kibble", 250, 5)
	order := placeOrder(t, f, uuid.New(), map[uuid.UUID]int{v.ID: 1})
	_, err := f.orders.MarkReady(ctx, order.ID, domain.PickupInfo{})
	require.NoError(t, err)
	_, err = f.orders.Complete(ctx, order.ID)
	require.NoError(t, err)

	// the customer picked up between listing and claiming
	require.NoError(t, f.orders.Expire(ctx, order.ID))
	got, err := f.orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, got.Status)
	assert.Equal(t, 4, f.variantStock(t, v.ID))

	t.Run("order deleted underneath is fine too", func(t *testing.T) {
		assert.NoError(t, f.orders.Expire(ctx, uuid.New()))
	})
}
