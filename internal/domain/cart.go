package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartKey identifies a cart line: one line per (product, variant) pair.
// Changing size or generation is a key change, never a field mutation.
type CartKey struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
}

// CartLine is a client-held intent to purchase, persisted only for sync.
// MaxStock is the variant's quantity at last sync: an advisory ceiling,
// re-validated at checkout.
type CartLine struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID         uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_cart_lines_key" json:"-"`
	ProductID      uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_lines_key" json:"product_id"`
	VariantID      uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_lines_key" json:"variant_id"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	UnitPrice      float64   `gorm:"type:decimal(12,2)" json:"unit_price"`
	MaxStock       int       `gorm:"not null;default:0" json:"max_stock"`
	Title          string    `gorm:"size:180" json:"title"`
	SizeName       string    `gorm:"size:60" json:"size_name"`
	GenerationName string    `gorm:"size:60" json:"generation_name"`
	ImageURL       string    `gorm:"size:255" json:"image_url"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

func (l CartLine) Key() CartKey { return CartKey{ProductID: l.ProductID, VariantID: l.VariantID} }

// VariantRef is a resolved snapshot of a variant used when inserting or
// re-targeting a cart line.
type VariantRef struct {
	ProductID      uuid.UUID
	VariantID      uuid.UUID
	UnitPrice      float64
	MaxStock       int
	Title          string
	SizeName       string
	GenerationName string
	ImageURL       string
}

// Cart is the per-user staging area. Every mutator re-establishes the
// clamp invariant 1 <= quantity <= maxStock; callers never write
// quantities directly.
type Cart struct {
	lines []CartLine
}

// NewCart rebuilds a cart from persisted lines, dropping anything a
// previous sync let through with a non-positive quantity.
func NewCart(lines []CartLine) *Cart {
	c := &Cart{}
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		l.Quantity = clampQty(l.Quantity, l.MaxStock)
		c.lines = append(c.lines, l)
	}
	return c
}

func clampQty(n, maxStock int) int {
	if n < 1 {
		n = 1
	}
	if maxStock > 0 && n > maxStock {
		n = maxStock
	}
	return n
}

func (c *Cart) find(key CartKey) int {
	for i := range c.lines {
		if c.lines[i].Key() == key {
			return i
		}
	}
	return -1
}

// Add merges qty units of the referenced variant into the cart, clamping
// the merged count to the variant's stock.
func (c *Cart) Add(ref VariantRef, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if ref.MaxStock <= 0 {
		return &InsufficientStockError{VariantID: ref.VariantID, Title: ref.Title, Requested: qty, Available: 0}
	}
	key := CartKey{ProductID: ref.ProductID, VariantID: ref.VariantID}
	if i := c.find(key); i >= 0 {
		c.lines[i].Quantity = clampQty(c.lines[i].Quantity+qty, ref.MaxStock)
		c.refresh(i, ref)
		return nil
	}
	c.lines = append(c.lines, CartLine{
		ID:             uuid.New(),
		ProductID:      ref.ProductID,
		VariantID:      ref.VariantID,
		Quantity:       clampQty(qty, ref.MaxStock),
		UnitPrice:      ref.UnitPrice,
		MaxStock:       ref.MaxStock,
		Title:          ref.Title,
		SizeName:       ref.SizeName,
		GenerationName: ref.GenerationName,
		ImageURL:       ref.ImageURL,
	})
	return nil
}

// SetQuantity clamps n into [1, maxStock]. Requesting less than one floors
// to one: removal is explicit, never a side effect of this path.
func (c *Cart) SetQuantity(key CartKey, n int) error {
	i := c.find(key)
	if i < 0 {
		return ErrNotFound
	}
	c.lines[i].Quantity = clampQty(n, c.lines[i].MaxStock)
	return nil
}

// ChangeVariant re-keys a line to a different (size, generation) of the
// same or another variant: the old key is removed and quantities merge
// into the new key, re-clamped to the new variant's stock. A target with
// zero stock rejects the whole operation and leaves the old line alone.
func (c *Cart) ChangeVariant(oldKey CartKey, ref VariantRef, desiredQty int) error {
	i := c.find(oldKey)
	if i < 0 {
		return ErrNotFound
	}
	if ref.MaxStock <= 0 {
		return &InsufficientStockError{VariantID: ref.VariantID, Title: ref.Title, Requested: desiredQty, Available: 0}
	}
	if desiredQty < 1 {
		desiredQty = c.lines[i].Quantity
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)

	newKey := CartKey{ProductID: ref.ProductID, VariantID: ref.VariantID}
	if j := c.find(newKey); j >= 0 {
		c.lines[j].Quantity = clampQty(c.lines[j].Quantity+desiredQty, ref.MaxStock)
		c.refresh(j, ref)
		return nil
	}
	return c.Add(ref, desiredQty)
}

func (c *Cart) Remove(key CartKey) {
	if i := c.find(key); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

func (c *Cart) Clear() { c.lines = nil }

// refresh re-syncs a line's advisory snapshot fields from the ref.
func (c *Cart) refresh(i int, ref VariantRef) {
	c.lines[i].UnitPrice = ref.UnitPrice
	c.lines[i].MaxStock = ref.MaxStock
	c.lines[i].Title = ref.Title
	c.lines[i].SizeName = ref.SizeName
	c.lines[i].GenerationName = ref.GenerationName
	c.lines[i].ImageURL = ref.ImageURL
}

func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) TotalPrice() float64 {
	var sum float64
	for _, l := range c.lines {
		sum += l.UnitPrice * float64(l.Quantity)
	}
	return sum
}

func (c *Cart) TotalCount() int {
	var n int
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}
