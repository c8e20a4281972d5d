package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/pattadon/petshop/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Save(ctx context.Context, p *domain.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return pkgerrors.Wrap(r.db.WithContext(ctx).Save(p).Error, "save product")
}

func (r *ProductRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("Variants").
		First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "find product")
	}
	return &p, nil
}

func (r *ProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	var list []domain.Product
	q := r.db.WithContext(ctx).Model(&domain.Product{})
	if f.Query != "" {
		like := "%" + strings.TrimSpace(f.Query) + "%"
		q = q.Where("LOWER(title) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count products")
	}
	switch f.Sort {
	case "price_desc":
		q = q.Order("price desc")
	case "price_asc":
		q = q.Order("price asc")
	case "best_selling":
		q = q.Order("total_sold desc")
	case "newest":
		q = q.Order("created_at desc")
	default:
		q = q.Order("title asc")
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	offset := (f.Page - 1) * f.PageSize
	err := q.Offset(offset).Limit(f.PageSize).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("Variants").
		Find(&list).Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list products")
	}
	return list, total, nil
}

func (r *ProductRepo) AddSold(ctx context.Context, productID uuid.UUID, n int) error {
	return pkgerrors.Wrap(r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", productID).
		UpdateColumn("total_sold", gorm.Expr("COALESCE(total_sold,0) + ?", n)).Error, "add sold")
}

func (r *ProductRepo) SetRating(ctx context.Context, productID uuid.UUID, avg float64, count int) error {
	return pkgerrors.Wrap(r.db.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ?", productID).
		UpdateColumns(map[string]any{"rating_avg": avg, "rating_count": count}).Error, "set rating")
}
