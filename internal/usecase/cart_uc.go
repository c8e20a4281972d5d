package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pattadon/petshop/internal/domain"
)

// CartUC keeps the per-user cart in sync with the catalog. All mutators
// run through the Cart aggregate so the clamp invariant holds regardless
// of what the client sent; stock figures stored on lines stay advisory
// until checkout re-validates them.
type CartUC struct {
	Store domain.Store
}

func (uc *CartUC) load(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	lines, err := uc.Store.Carts().Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return domain.NewCart(lines), nil
}

func (uc *CartUC) persist(ctx context.Context, userID uuid.UUID, cart *domain.Cart) error {
	return uc.Store.Carts().Replace(ctx, userID, cart.Lines())
}

// Get returns the cart with each line's advisory MaxStock and price
// refreshed from the live catalog. Lines whose variant disappeared are
// kept visible as-is; the authoritative drop happens at checkout.
func (uc *CartUC) Get(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	lines, err := uc.Store.Carts().Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		ref, err := uc.resolveRef(ctx, lines[i].VariantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		lines[i].UnitPrice = ref.UnitPrice
		lines[i].MaxStock = ref.MaxStock
		lines[i].Title = ref.Title
		lines[i].SizeName = ref.SizeName
		lines[i].GenerationName = ref.GenerationName
		lines[i].ImageURL = ref.ImageURL
	}
	cart := domain.NewCart(lines)
	if err := uc.persist(ctx, userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Sync replaces the user's persisted cart with the client's lines,
// re-resolving every variant server-side. Lines for vanished variants are
// dropped; quantities are whatever the aggregate's clamp allows.
func (uc *CartUC) Sync(ctx context.Context, userID uuid.UUID, incoming []domain.CartLine) (*domain.Cart, error) {
	cart := domain.NewCart(nil)
	for _, l := range incoming {
		if l.Quantity < 1 {
			continue
		}
		ref, err := uc.resolveRef(ctx, l.VariantID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if err := cart.Add(*ref, l.Quantity); err != nil {
			var ins *domain.InsufficientStockError
			if errors.As(err, &ins) {
				continue
			}
			return nil, err
		}
	}
	if err := uc.persist(ctx, userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (uc *CartUC) Add(ctx context.Context, userID, variantID uuid.UUID, qty int) (*domain.Cart, error) {
	ref, err := uc.resolveRef(ctx, variantID)
	if err != nil {
		return nil, err
	}
	cart, err := uc.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := cart.Add(*ref, qty); err != nil {
		return nil, err
	}
	return cart, uc.persist(ctx, userID, cart)
}

func (uc *CartUC) SetQuantity(ctx context.Context, userID uuid.UUID, key domain.CartKey, n int) (*domain.Cart, error) {
	cart, err := uc.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := cart.SetQuantity(key, n); err != nil {
		return nil, err
	}
	return cart, uc.persist(ctx, userID, cart)
}

// ChangeVariant swaps a line to another (size, generation) of its product.
func (uc *CartUC) ChangeVariant(ctx context.Context, userID uuid.UUID, oldKey domain.CartKey, newVariantID uuid.UUID, desiredQty int) (*domain.Cart, error) {
	ref, err := uc.resolveRef(ctx, newVariantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.VariantGoneError{VariantID: newVariantID}
		}
		return nil, err
	}
	cart, err := uc.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := cart.ChangeVariant(oldKey, *ref, desiredQty); err != nil {
		return nil, err
	}
	return cart, uc.persist(ctx, userID, cart)
}

func (uc *CartUC) Remove(ctx context.Context, userID uuid.UUID, key domain.CartKey) (*domain.Cart, error) {
	cart, err := uc.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Remove(key)
	return cart, uc.persist(ctx, userID, cart)
}

func (uc *CartUC) Clear(ctx context.Context, userID uuid.UUID) error {
	return uc.Store.Carts().Clear(ctx, userID)
}

// resolveRef snapshots a live variant plus its display names into a
// VariantRef for the aggregate.
func (uc *CartUC) resolveRef(ctx context.Context, variantID uuid.UUID) (*domain.VariantRef, error) {
	v, err := uc.Store.Catalog().GetVariantByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	p, err := uc.Store.Products().FindByID(ctx, v.ProductID)
	if err != nil {
		return nil, err
	}
	ref := &domain.VariantRef{
		ProductID: p.ID,
		VariantID: v.ID,
		UnitPrice: p.Price,
		MaxStock:  v.Quantity,
		Title:     p.Title,
	}
	if s, err := uc.Store.Catalog().GetSize(ctx, v.SizeID); err == nil {
		ref.SizeName = s.Name
	}
	if v.GenerationID != nil {
		if g, err := uc.Store.Catalog().GetGeneration(ctx, *v.GenerationID); err == nil {
			ref.GenerationName = g.Name
		}
	}
	if len(p.Images) > 0 {
		ref.ImageURL = p.Images[0].URL
	}
	return ref, nil
}
