package usecase

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"

	"github.com/pattadon/petshop/internal/domain"
)

type CatalogUC struct {
	Store                    domain.Store
	DefaultLowStockThreshold int
}

func (uc *CatalogUC) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return uc.Store.Products().FindByID(ctx, id)
}

func (uc *CatalogUC) ListProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	return uc.Store.Products().List(ctx, f)
}

func (uc *CatalogUC) GetVariant(ctx context.Context, productID, sizeID uuid.UUID, generationID *uuid.UUID) (*domain.Variant, error) {
	return uc.Store.Catalog().GetVariant(ctx, productID, sizeID, generationID)
}

func (uc *CatalogUC) CreateVariant(ctx context.Context, v *domain.Variant) error {
	if v == nil {
		return errors.New("variant nil")
	}
	if v.Quantity < 0 {
		return domain.ErrInvalidQuantity
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return uc.Store.Catalog().SaveVariant(ctx, v)
}

func (uc *CatalogUC) SetVariantThreshold(ctx context.Context, variantID uuid.UUID, threshold *int) error {
	if variantID == uuid.Nil {
		return domain.ErrNotFound
	}
	return uc.Store.Catalog().SetLowStockThreshold(ctx, variantID, threshold)
}

// GlobalLowStockThreshold reads the admin-editable floor, falling back to
// the configured default when the settings row is absent or malformed.
func (uc *CatalogUC) GlobalLowStockThreshold(ctx context.Context) int {
	raw, err := uc.Store.Settings().Get(ctx, domain.SettingLowStockThreshold)
	if err != nil {
		return uc.DefaultLowStockThreshold
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return uc.DefaultLowStockThreshold
	}
	return n
}

func (uc *CatalogUC) SetGlobalLowStockThreshold(ctx context.Context, n int) error {
	if n < 0 {
		return domain.ErrInvalidQuantity
	}
	return uc.Store.Settings().Set(ctx, domain.SettingLowStockThreshold, strconv.Itoa(n))
}

func (uc *CatalogUC) ListLowStock(ctx context.Context) ([]domain.Variant, error) {
	return uc.Store.Catalog().ListLowStock(ctx, uc.GlobalLowStockThreshold(ctx))
}
