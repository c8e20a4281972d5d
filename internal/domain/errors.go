package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrReasonRequired    = errors.New("cancel reason required")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNotEligible       = errors.New("order line not eligible for review")
)

// InsufficientStockError names the offending line so the caller can
// highlight it instead of guessing which item ran out.
type InsufficientStockError struct {
	VariantID uuid.UUID
	Title     string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Title, e.Requested, e.Available)
}

// VariantGoneError reports a cart line whose (size, generation) combination
// no longer exists in the catalog.
type VariantGoneError struct {
	VariantID uuid.UUID
	Title     string
}

func (e *VariantGoneError) Error() string {
	return fmt.Sprintf("variant for %q no longer exists", e.Title)
}
