package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pattadon/petshop/internal/domain"
)

func TestCartAddResolvesCatalogSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	p, v := f.seedProduct(t, "Salmon Kibble", 250, 4)

	cart, err := f.carts.Add(ctx, userID, v.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 1, cart.Len())
	line := cart.Lines()[0]
	assert.Equal(t, p.ID, line.ProductID)
	assert.Equal(t, "Salmon Kibble", line.Title)
	assert.Equal(t, "L", line.SizeName)
	assert.InDelta(t, 250.0, line.UnitPrice, 1e-9)
	assert.Equal(t, 4, line.MaxStock)

	t.Run("unknown variant", func(t *testing.T) {
		_, err := f.carts.Add(ctx, userID, uuid.New(), 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("sold-out variant rejected", func(t *testing.T) {
		_, empty := f.seedProduct(t, "Chew Toy", 90, 0)
		_, err := f.carts.Add(ctx, userID, empty.ID, 1)
		var ins *domain.InsufficientStockError
		assert.ErrorAs(t, err, &ins)
	})
}

func TestCartGetRefreshesAdvisoryStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	_, v := f.seedProduct(t, "Salmon Kibble", 250, 10)

	_, err := f.carts.Add(ctx, userID, v.ID, 8)
	require.NoError(t, err)
	f.shrinkStock(t, v.ID, 7) // live stock drops to 3 under the cart

	cart, err := f.carts.Get(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1, cart.Len())
	line := cart.Lines()[0]
	assert.Equal(t, 3, line.MaxStock)
	assert.Equal(t, 3, line.Quantity, "quantity clamps to the refreshed stock")
}

func TestCartGetKeepsGoneVariantVisible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	_, v := f.seedProduct(t, "Salmon Kibble", 250, 5)

	_, err := f.carts.Add(ctx, userID, v.ID, 2)
	require.NoError(t, err)
	f.store.RemoveVariant(v.ID)

	cart, err := f.carts.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Len(), "the line stays until checkout rules on it")
}

func TestCartSyncRebuildsServerSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	pa, a := f.seedProduct(t, "Salmon Kibble", 250, 3)
	pb, b := f.seedProduct(t, "Chew Toy", 90, 5)
	_, gone := f.seedProduct(t, "Cat Tree", 1500, 5)
	f.store.RemoveVariant(gone.ID)
	_, soldOut := f.seedProduct(t, "Scratcher", 300, 0)

	cart, err := f.carts.Sync(ctx, userID, []domain.CartLine{
		{ProductID: pa.ID, VariantID: a.ID, Quantity: 9}, // over stock, clamps
		{ProductID: pb.ID, VariantID: b.ID, Quantity: 2},
		{VariantID: gone.ID, Quantity: 1},    // variant vanished, dropped
		{VariantID: soldOut.ID, Quantity: 1}, // zero stock, dropped
		{ProductID: pb.ID, VariantID: b.ID, Quantity: 0},
	})
	require.NoError(t, err)
	require.Equal(t, 2, cart.Len())

	byVariant := map[uuid.UUID]domain.CartLine{}
	for _, l := range cart.Lines() {
		byVariant[l.VariantID] = l
	}
	assert.Equal(t, 3, byVariant[a.ID].Quantity)
	assert.Equal(t, 2, byVariant[b.ID].Quantity)

	t.Run("sync persisted over the old cart", func(t *testing.T) {
		got, err := f.carts.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Len())
	})
}

func TestCartChangeVariantThroughCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	p, small := f.seedProduct(t, "Salmon Kibble", 250, 5)

	xl := domain.Size{ID: uuid.New(), Name: "XL"}
	f.store.SeedSize(xl)
	large := &domain.Variant{ID: uuid.New(), ProductID: p.ID, SizeID: xl.ID, Quantity: 2}
	require.NoError(t, f.store.Catalog().SaveVariant(ctx, large))

	_, err := f.carts.Add(ctx, userID, small.ID, 4)
	require.NoError(t, err)

	oldKey := domain.CartKey{ProductID: p.ID, VariantID: small.ID}
	cart, err := f.carts.ChangeVariant(ctx, userID, oldKey, large.ID, 4)
	require.NoError(t, err)
	require.Equal(t, 1, cart.Len())
	line := cart.Lines()[0]
	assert.Equal(t, large.ID, line.VariantID)
	assert.Equal(t, 2, line.Quantity, "desired quantity clamps to the target's stock")

	t.Run("target variant gone", func(t *testing.T) {
		key := domain.CartKey{ProductID: p.ID, VariantID: large.ID}
		_, err := f.carts.ChangeVariant(ctx, userID, key, uuid.New(), 1)
		var goneErr *domain.VariantGoneError
		assert.ErrorAs(t, err, &goneErr)
	})
}

func TestCartSetQuantityAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	p, v := f.seedProduct(t, "Salmon Kibble", 250, 5)
	key := domain.CartKey{ProductID: p.ID, VariantID: v.ID}

	_, err := f.carts.Add(ctx, userID, v.ID, 1)
	require.NoError(t, err)

	cart, err := f.carts.SetQuantity(ctx, userID, key, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.Lines()[0].Quantity)

	cart, err = f.carts.Remove(ctx, userID, key)
	require.NoError(t, err)
	assert.Equal(t, 0, cart.Len())

	require.NoError(t, f.carts.Clear(ctx, userID))
}
