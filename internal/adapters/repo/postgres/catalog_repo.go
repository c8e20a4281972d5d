package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/pattadon/petshop/internal/domain"
)

type CatalogRepo struct{ db *gorm.DB }

func NewCatalogRepo(db *gorm.DB) *CatalogRepo { return &CatalogRepo{db: db} }

func (r *CatalogRepo) SaveVariant(ctx context.Context, v *domain.Variant) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return pkgerrors.Wrap(r.db.WithContext(ctx).Save(v).Error, "save variant")
}

func (r *CatalogRepo) GetVariant(ctx context.Context, productID, sizeID uuid.UUID, generationID *uuid.UUID) (*domain.Variant, error) {
	q := r.db.WithContext(ctx).Where("product_id = ? AND size_id = ?", productID, sizeID)
	if generationID == nil {
		q = q.Where("generation_id IS NULL")
	} else {
		q = q.Where("generation_id = ?", *generationID)
	}
	var v domain.Variant
	if err := q.First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "get variant")
	}
	return &v, nil
}

func (r *CatalogRepo) GetVariantByID(ctx context.Context, id uuid.UUID) (*domain.Variant, error) {
	var v domain.Variant
	if err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "get variant by id")
	}
	return &v, nil
}

func (r *CatalogRepo) ListVariants(ctx context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	var list []domain.Variant
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("created_at asc").Find(&list).Error
	return list, pkgerrors.Wrap(err, "list variants")
}

func (r *CatalogRepo) GetSize(ctx context.Context, id uuid.UUID) (*domain.Size, error) {
	var s domain.Size
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "get size")
	}
	return &s, nil
}

func (r *CatalogRepo) GetGeneration(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	var g domain.Generation
	if err := r.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "get generation")
	}
	return &g, nil
}

// DecrementStock is a compare-and-swap on the row: the WHERE clause keeps
// quantity from ever passing zero, so concurrent checkouts for the same
// scarce variant serialize in the database and the loser gets
// InsufficientStockError.
func (r *CatalogRepo) DecrementStock(ctx context.Context, variantID uuid.UUID, amount int) error {
	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}
	res := r.db.WithContext(ctx).Model(&domain.Variant{}).
		Where("id = ? AND quantity >= ?", variantID, amount).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", amount))
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		v, err := r.GetVariantByID(ctx, variantID)
		if err != nil {
			return err
		}
		return &domain.InsufficientStockError{VariantID: variantID, Requested: amount, Available: v.Quantity}
	}
	return nil
}

// IncrementStock restores cancelled or expired quantity. Missing rows are
// reported as ErrNotFound so the caller can decide to drop the credit.
func (r *CatalogRepo) IncrementStock(ctx context.Context, variantID uuid.UUID, amount int) error {
	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}
	res := r.db.WithContext(ctx).Model(&domain.Variant{}).
		Where("id = ?", variantID).
		UpdateColumn("quantity", gorm.Expr("COALESCE(quantity,0) + ?", amount))
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "increment stock")
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CatalogRepo) SetLowStockThreshold(ctx context.Context, variantID uuid.UUID, threshold *int) error {
	res := r.db.WithContext(ctx).Model(&domain.Variant{}).
		Where("id = ?", variantID).
		UpdateColumn("low_stock_threshold", threshold)
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "set low stock threshold")
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CatalogRepo) ListLowStock(ctx context.Context, globalThreshold int) ([]domain.Variant, error) {
	var list []domain.Variant
	err := r.db.WithContext(ctx).
		Where("quantity <= COALESCE(low_stock_threshold, ?)", globalThreshold).
		Order("quantity asc").
		Find(&list).Error
	return list, pkgerrors.Wrap(err, "list low stock")
}
