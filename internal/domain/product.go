package domain

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title          string    `gorm:"size:180;not null"`
	Description    string    `gorm:"type:text"`
	Price          float64   `gorm:"type:decimal(12,2);not null"`
	TotalSold      int       `gorm:"not null;default:0"`
	PickupLocation string    `gorm:"size:255"`
	RatingAvg      float64   `gorm:"type:decimal(3,2);default:0"`
	RatingCount    int       `gorm:"not null;default:0"`
	Images         []Image
	Variants       []Variant
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Variant is one purchasable (size, generation) combination of a product.
// GenerationID is nullable: "no generation" is a valid variant.
type Variant struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProductID         uuid.UUID  `gorm:"type:uuid;index;uniqueIndex:idx_variants_combo"`
	SizeID            uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_variants_combo"`
	GenerationID      *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_variants_combo"`
	Quantity          int        `gorm:"not null;default:0"`
	SKU               string     `gorm:"size:100;index"`
	LowStockThreshold *int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Size struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:60;uniqueIndex"`
	CreatedAt time.Time
}

type Generation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:60;uniqueIndex"`
	CreatedAt time.Time
}

type Image struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"type:uuid;index"`
	URL       string    `gorm:"size:255"`
	Alt       string    `gorm:"size:140"`
	CreatedAt time.Time
}

type ProductFilter struct {
	Query    string
	Sort     string
	Page     int
	PageSize int
}
