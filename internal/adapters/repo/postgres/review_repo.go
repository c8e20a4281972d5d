package postgres

import (
	"context"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pattadon/petshop/internal/domain"
)

type ReviewRepo struct{ db *gorm.DB }

func NewReviewRepo(db *gorm.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Upsert keeps one row per (order, variant): a repeat submission updates
// the rating and body in place.
func (r *ReviewRepo) Upsert(ctx context.Context, rev *domain.Review) error {
	if rev.ID == uuid.Nil {
		rev.ID = uuid.New()
	}
	return pkgerrors.Wrap(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}, {Name: "variant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "body", "updated_at"}),
	}).Create(rev).Error, "upsert review")
}

func (r *ReviewRepo) FindByOrderAndReviewer(ctx context.Context, orderID, reviewerID uuid.UUID) ([]domain.Review, error) {
	var list []domain.Review
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND reviewer_id = ?", orderID, reviewerID).
		Order("created_at asc").
		Find(&list).Error
	return list, pkgerrors.Wrap(err, "find reviews by order")
}

func (r *ReviewRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.Review, error) {
	var list []domain.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at desc").
		Find(&list).Error
	return list, pkgerrors.Wrap(err, "list reviews by product")
}

func (r *ReviewRepo) AggregateByProduct(ctx context.Context, productID uuid.UUID) (domain.RatingSummary, error) {
	var row struct {
		Avg   float64
		Count int
	}
	err := r.db.WithContext(ctx).Model(&domain.Review{}).
		Select("COALESCE(AVG(rating),0) as avg, COUNT(*) as count").
		Where("product_id = ?", productID).
		Scan(&row).Error
	if err != nil {
		return domain.RatingSummary{}, pkgerrors.Wrap(err, "aggregate reviews")
	}
	return domain.RatingSummary{Average: row.Avg, Count: row.Count}, nil
}
