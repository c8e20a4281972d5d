package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pattadon/petshop/internal/adapters/repo/memory"
	"github.com/pattadon/petshop/internal/domain"
)

type fixture struct {
	store   *memory.Store
	catalog *CatalogUC
	carts   *CartUC
	orders  *OrderUC
	reviews *ReviewUC
	sizeID  uuid.UUID
	genID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	orders := &OrderUC{Store: store, DefaultPickupWindow: 72 * time.Hour}
	f := &fixture{
		store:   store,
		catalog: &CatalogUC{Store: store, DefaultLowStockThreshold: 5},
		carts:   &CartUC{Store: store},
		orders:  orders,
		reviews: &ReviewUC{Store: store},
		sizeID:  uuid.New(),
		genID:   uuid.New(),
	}
	store.SeedSize(domain.Size{ID: f.sizeID, Name: "L"})
	store.SeedGeneration(domain.Generation{ID: f.genID, Name: "Adult"})
	return f
}

func (f *fixture) seedProduct(t *testing.T, title string, price float64, stock int) (*domain.Product, *domain.Variant) {
	t.Helper()
	ctx := context.Background()
	p := &domain.Product{ID: uuid.New(), Title: title, Price: price}
	require.NoError(t, f.store.Products().Save(ctx, p))
	v := &domain.Variant{
		ID:        uuid.New(),
		ProductID: p.ID,
		SizeID:    f.sizeID,
		Quantity:  stock,
	}
	require.NoError(t, f.store.Catalog().SaveVariant(ctx, v))
	return p, v
}

func (f *fixture) variantStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	v, err := f.store.Catalog().GetVariantByID(context.Background(), id)
	require.NoError(t, err)
	return v.Quantity
}

// shrinkStock simulates another buyer draining stock after the cart was
// built, so the cart holds more than the live quantity.
func (f *fixture) shrinkStock(t *testing.T, id uuid.UUID, by int) {
	t.Helper()
	require.NoError(t, f.store.Catalog().DecrementStock(context.Background(), id, by))
}
