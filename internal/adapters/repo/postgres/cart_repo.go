package postgres

import (
	"context"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/pattadon/petshop/internal/domain"
)

type CartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) *CartRepo { return &CartRepo{db: db} }

func (r *CartRepo) Load(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at asc").Find(&lines).Error
	return lines, pkgerrors.Wrap(err, "load cart")
}

// Replace swaps the user's persisted lines wholesale: the cart is a
// staging area, not inventory truth, so last write wins.
func (r *CartRepo) Replace(ctx context.Context, userID uuid.UUID, lines []domain.CartLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&domain.CartLine{}).Error; err != nil {
			return pkgerrors.Wrap(err, "clear cart lines")
		}
		if len(lines) == 0 {
			return nil
		}
		for i := range lines {
			if lines[i].ID == uuid.Nil {
				lines[i].ID = uuid.New()
			}
			lines[i].UserID = userID
		}
		return pkgerrors.Wrap(tx.Create(&lines).Error, "insert cart lines")
	})
}

func (r *CartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	return pkgerrors.Wrap(r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.CartLine{}).Error, "clear cart")
}
