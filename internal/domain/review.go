package domain

import (
	"time"

	"github.com/google/uuid"
)

// Review is keyed by (order, variant): one rating per variant actually
// received in a completed order, updatable thereafter.
type Review struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_reviews_order_variant" json:"order_id"`
	VariantID  uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_reviews_order_variant" json:"variant_id"`
	ProductID  uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	ReviewerID uuid.UUID `gorm:"type:uuid;index" json:"reviewer_id"`
	Rating     int       `gorm:"not null" json:"rating"`
	Body       string    `gorm:"type:text" json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RatingSummary is the product-level aggregate: all reviews weigh equally.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}
