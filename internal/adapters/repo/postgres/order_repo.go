package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/pattadon/petshop/internal/domain"
)

type OrderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	return pkgerrors.Wrap(r.db.WithContext(ctx).Create(o).Error, "create order")
}

func (r *OrderRepo) Save(ctx context.Context, o *domain.Order) error {
	return pkgerrors.Wrap(r.db.WithContext(ctx).Omit("Lines").Save(o).Error, "save order")
}

func (r *OrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.WithContext(ctx).Preload("Lines").First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, pkgerrors.Wrap(err, "find order")
	}
	return &o, nil
}

func (r *OrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, terminal bool) ([]domain.Order, error) {
	statuses := []domain.OrderStatus{domain.OrderStatusPlaced, domain.OrderStatusReady}
	if terminal {
		statuses = []domain.OrderStatus{domain.OrderStatusCompleted, domain.OrderStatusCancelled}
	}
	var list []domain.Order
	err := r.db.WithContext(ctx).Preload("Lines").
		Where("user_id = ? AND status IN ?", userID, statuses).
		Order("created_at desc").
		Find(&list).Error
	return list, pkgerrors.Wrap(err, "list orders by user")
}

func (r *OrderRepo) ListExpired(ctx context.Context, now time.Time) ([]domain.Order, error) {
	var list []domain.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND expire_at IS NOT NULL AND expire_at <= ?", domain.OrderStatusReady, now).
		Find(&list).Error
	return list, pkgerrors.Wrap(err, "list expired orders")
}

func (r *OrderRepo) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 200
	}
	var list []domain.Order
	err := r.db.WithContext(ctx).Preload("Lines").
		Order("created_at desc").Limit(limit).
		Find(&list).Error
	return list, pkgerrors.Wrap(err, "list recent orders")
}

func (r *OrderRepo) CountByStatus(ctx context.Context, status domain.OrderStatus) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.Order{}).Where("status = ?", status).Count(&n).Error
	return n, pkgerrors.Wrap(err, "count orders")
}

// UpdateStatusIf flips the status only while the row is still in one of
// the expected source states. RowsAffected tells the caller whether it won
// the transition; under concurrent cancels or sweeps only one caller does.
func (r *OrderRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND status IN ?", id, from).
		UpdateColumn("status", to)
	if res.Error != nil {
		return false, pkgerrors.Wrap(res.Error, "update order status")
	}
	return res.RowsAffected > 0, nil
}

func (r *OrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&domain.OrderLine{}).Error; err != nil {
			return pkgerrors.Wrap(err, "delete order lines")
		}
		return pkgerrors.Wrap(tx.Delete(&domain.Order{}, "id = ?", id).Error, "delete order")
	})
}
