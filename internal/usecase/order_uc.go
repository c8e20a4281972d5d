package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pattadon/petshop/internal/domain"
)

// SystemCancelReason is recorded when the sweeper expires a ready order.
const SystemCancelReason = "pickup window expired"

// OrderUC owns checkout and the order lifecycle. Everything that touches
// stock runs inside Store.Atomically: either the whole order commits or no
// variant's quantity changes.
type OrderUC struct {
	Store domain.Store

	// DefaultPickupWindow applies when the settings table has no
	// pickup_window_hours row.
	DefaultPickupWindow time.Duration
}

// PlaceOrder converts the user's persisted cart into an order. Steps, all
// in one transaction: re-resolve every variant, conditionally decrement
// stock per line, snapshot the lines, create the order in "placed", clear
// the cart. Any failure rolls the whole unit back, so partial decrements
// never become visible.
func (uc *OrderUC) PlaceOrder(ctx context.Context, userID uuid.UUID) (*domain.Order, error) {
	var out *domain.Order
	err := uc.Store.Atomically(ctx, func(s domain.Store) error {
		lines, err := s.Carts().Load(ctx, userID)
		if err != nil {
			return err
		}
		cart := domain.NewCart(lines)
		if cart.Len() == 0 {
			return domain.ErrEmptyCart
		}

		order := &domain.Order{
			ID:     uuid.New(),
			UserID: userID,
			Status: domain.OrderStatusPlaced,
		}
		for _, cl := range cart.Lines() {
			v, err := s.Catalog().GetVariantByID(ctx, cl.VariantID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return &domain.VariantGoneError{VariantID: cl.VariantID, Title: cl.Title}
				}
				return err
			}
			if err := s.Catalog().DecrementStock(ctx, v.ID, cl.Quantity); err != nil {
				var ins *domain.InsufficientStockError
				if errors.As(err, &ins) {
					ins.Title = cl.Title
					ins.Requested = cl.Quantity
				}
				return err
			}
			p, err := s.Products().FindByID(ctx, cl.ProductID)
			if err != nil {
				return err
			}
			line := domain.OrderLine{
				ID:             uuid.New(),
				OrderID:        order.ID,
				ProductID:      p.ID,
				VariantID:      v.ID,
				Quantity:       cl.Quantity,
				UnitPrice:      p.Price,
				Title:          p.Title,
				SizeName:       cl.SizeName,
				GenerationName: cl.GenerationName,
				ImageURL:       cl.ImageURL,
			}
			order.Lines = append(order.Lines, line)
			order.CartTotal += line.LineTotal()
			if err := s.Products().AddSold(ctx, p.ID, cl.Quantity); err != nil {
				return err
			}
		}
		if err := s.Orders().Create(ctx, order); err != nil {
			return err
		}
		if err := s.Carts().Clear(ctx, userID); err != nil {
			return err
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkReady performs the placed → ready transition and stamps the expiry
// instant from the configured pickup window.
func (uc *OrderUC) MarkReady(ctx context.Context, orderID uuid.UUID, pickup domain.PickupInfo) (*domain.Order, error) {
	var out *domain.Order
	err := uc.Store.Atomically(ctx, func(s domain.Store) error {
		o, err := s.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		won, err := s.Orders().UpdateStatusIf(ctx, orderID,
			[]domain.OrderStatus{domain.OrderStatusPlaced}, domain.OrderStatusReady)
		if err != nil {
			return err
		}
		if !won {
			return domain.ErrInvalidTransition
		}
		expire := time.Now().Add(uc.pickupWindow(ctx, s))
		o.Status = domain.OrderStatusReady
		o.ExpireAt = &expire
		o.PickupPlace = pickup.Place
		o.PickupTime = pickup.Time
		o.PickupNote = pickup.Note
		if err := s.Orders().Save(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	return out, err
}

// BulkMarkReady applies the same placed → ready transition across a set of
// orders. It is a batched invocation, not a distinct state: per-order
// failures are collected and do not stop the rest.
func (uc *OrderUC) BulkMarkReady(ctx context.Context, orderIDs []uuid.UUID, pickup domain.PickupInfo) map[uuid.UUID]error {
	failed := map[uuid.UUID]error{}
	for _, id := range orderIDs {
		if _, err := uc.MarkReady(ctx, id, pickup); err != nil {
			failed[id] = err
		}
	}
	return failed
}

// Complete performs the ready → completed transition; the order becomes
// eligible for reviews.
func (uc *OrderUC) Complete(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var out *domain.Order
	err := uc.Store.Atomically(ctx, func(s domain.Store) error {
		o, err := s.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		won, err := s.Orders().UpdateStatusIf(ctx, orderID,
			[]domain.OrderStatus{domain.OrderStatusReady}, domain.OrderStatusCompleted)
		if err != nil {
			return err
		}
		if !won {
			return domain.ErrInvalidTransition
		}
		now := time.Now()
		o.Status = domain.OrderStatusCompleted
		o.CompletedAt = &now
		if err := s.Orders().Save(ctx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	return out, err
}

// Cancel moves a placed or ready order to cancelled and restores the stock
// every line committed, exactly once. Re-cancelling an already cancelled
// order is a silent no-op; cancelling a completed one is rejected.
func (uc *OrderUC) Cancel(ctx context.Context, orderID uuid.UUID, reason, note string) error {
	if reason == "" {
		return domain.ErrReasonRequired
	}
	return uc.cancel(ctx, orderID, reason, note, false)
}

// CancelAndDelete is the user's "cancel and forget": the same cancellation
// followed by removal of the order row.
func (uc *OrderUC) CancelAndDelete(ctx context.Context, orderID uuid.UUID, reason, note string) error {
	if reason == "" {
		return domain.ErrReasonRequired
	}
	return uc.cancel(ctx, orderID, reason, note, true)
}

func (uc *OrderUC) cancel(ctx context.Context, orderID uuid.UUID, reason, note string, deleteRow bool) error {
	return uc.Store.Atomically(ctx, func(s domain.Store) error {
		o, err := s.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		won, err := s.Orders().UpdateStatusIf(ctx, orderID,
			[]domain.OrderStatus{domain.OrderStatusPlaced, domain.OrderStatusReady},
			domain.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if !won {
			if o.Status == domain.OrderStatusCancelled {
				return nil
			}
			return domain.ErrInvalidTransition
		}
		if err := restoreStock(ctx, s, o); err != nil {
			return err
		}
		if deleteRow {
			return s.Orders().Delete(ctx, orderID)
		}
		now := time.Now()
		o.Status = domain.OrderStatusCancelled
		o.CancelReason = reason
		o.CancelNote = note
		o.CancelledAt = &now
		return s.Orders().Save(ctx, o)
	})
}

// restoreStock credits back exactly what the order committed. A variant
// deleted while the order was active is logged and skipped rather than
// failing the cancellation.
func restoreStock(ctx context.Context, s domain.Store, o *domain.Order) error {
	for _, l := range o.Lines {
		if err := s.Catalog().IncrementStock(ctx, l.VariantID, l.Quantity); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				log.Warn().
					Str("order_id", o.ID.String()).
					Str("variant_id", l.VariantID.String()).
					Int("quantity", l.Quantity).
					Msg("variant gone, dropping stock restoration")
				continue
			}
			return err
		}
	}
	return nil
}

// Expire is the sweeper's per-order step: claim the ready → cancelled
// transition, restore stock, delete the row. An order already swept,
// cancelled or completed by the time we get here is a silent no-op.
func (uc *OrderUC) Expire(ctx context.Context, orderID uuid.UUID) error {
	err := uc.Store.Atomically(ctx, func(s domain.Store) error {
		o, err := s.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		won, err := s.Orders().UpdateStatusIf(ctx, orderID,
			[]domain.OrderStatus{domain.OrderStatusReady}, domain.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		if err := restoreStock(ctx, s, o); err != nil {
			// the tx rolls back and the order stays ready: losing a
			// sweep beats losing inventory
			return err
		}
		return s.Orders().Delete(ctx, orderID)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (uc *OrderUC) Get(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return uc.Store.Orders().FindByID(ctx, orderID)
}

// ListActive returns the user's placed and ready orders; ListHistory the
// terminal ones.
func (uc *OrderUC) ListActive(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	return uc.Store.Orders().ListByUser(ctx, userID, false)
}

func (uc *OrderUC) ListHistory(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	return uc.Store.Orders().ListByUser(ctx, userID, true)
}

func (uc *OrderUC) pickupWindow(ctx context.Context, s domain.Store) time.Duration {
	raw, err := s.Settings().Get(ctx, domain.SettingPickupWindowHours)
	if err == nil {
		if h, err := strconv.Atoi(raw); err == nil && h > 0 {
			return time.Duration(h) * time.Hour
		}
	}
	if uc.DefaultPickupWindow > 0 {
		return uc.DefaultPickupWindow
	}
	return 72 * time.Hour
}

// SetPickupWindowHours stores the admin-configured expiry window.
func (uc *OrderUC) SetPickupWindowHours(ctx context.Context, hours int) error {
	if hours <= 0 {
		return domain.ErrInvalidQuantity
	}
	return uc.Store.Settings().Set(ctx, domain.SettingPickupWindowHours, strconv.Itoa(hours))
}
