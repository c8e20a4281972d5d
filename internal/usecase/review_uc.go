package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/pattadon/petshop/internal/domain"
)

// ReviewUC gates reviews to exactly the variants a reviewer received in a
// completed order, once per (order, variant), with upsert semantics.
type ReviewUC struct {
	Store domain.Store
}

func (uc *ReviewUC) Submit(ctx context.Context, orderID, variantID, reviewerID uuid.UUID, rating int, body string) (*domain.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, domain.ErrInvalidRating
	}
	var out *domain.Review
	err := uc.Store.Atomically(ctx, func(s domain.Store) error {
		o, err := s.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != reviewerID || o.Status != domain.OrderStatusCompleted {
			return domain.ErrNotEligible
		}
		var line *domain.OrderLine
		for i := range o.Lines {
			if o.Lines[i].VariantID == variantID {
				line = &o.Lines[i]
				break
			}
		}
		if line == nil {
			return domain.ErrNotEligible
		}
		review := &domain.Review{
			ID:         uuid.New(),
			OrderID:    orderID,
			VariantID:  variantID,
			ProductID:  line.ProductID,
			ReviewerID: reviewerID,
			Rating:     rating,
			Body:       body,
		}
		if err := s.Reviews().Upsert(ctx, review); err != nil {
			return err
		}
		summary, err := s.Reviews().AggregateByProduct(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if err := s.Products().SetRating(ctx, line.ProductID, summary.Average, summary.Count); err != nil {
			return err
		}
		out = review
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Mine lists the reviewer's reviews for one order, so the UI can show
// which lines are already rated.
func (uc *ReviewUC) Mine(ctx context.Context, orderID, reviewerID uuid.UUID) ([]domain.Review, error) {
	return uc.Store.Reviews().FindByOrderAndReviewer(ctx, orderID, reviewerID)
}

func (uc *ReviewUC) ProductRating(ctx context.Context, productID uuid.UUID) (domain.RatingSummary, error) {
	return uc.Store.Reviews().AggregateByProduct(ctx, productID)
}

func (uc *ReviewUC) ProductReviews(ctx context.Context, productID uuid.UUID) ([]domain.Review, error) {
	return uc.Store.Reviews().ListByProduct(ctx, productID)
}
