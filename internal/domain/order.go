package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// StatusLabelTH maps each status to the Thai label shown in the storefront.
var StatusLabelTH = map[OrderStatus]string{
	OrderStatusPlaced:    "กำลังรับออเดอร์",
	OrderStatusReady:     "รอรับสินค้า",
	OrderStatusCompleted: "รับสินค้าแล้ว",
	OrderStatusCancelled: "ยกเลิกแล้ว",
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

type Order struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID   `gorm:"type:uuid;index"`
	Status       OrderStatus `gorm:"type:varchar(20);index"`
	Lines        []OrderLine
	CartTotal    float64    `gorm:"type:decimal(12,2)"`
	ExpireAt     *time.Time `gorm:"index"`
	PickupPlace  string     `gorm:"size:255"`
	PickupTime   *time.Time
	PickupNote   string `gorm:"type:text"`
	CancelReason string `gorm:"size:255"`
	CancelNote   string `gorm:"type:text"`
	CancelledAt  *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderLine is the authoritative record of how much stock an order
// committed. Display fields are snapshots taken at checkout; later catalog
// edits must not change historical orders.
type OrderLine struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"type:uuid;index"`
	ProductID      uuid.UUID `gorm:"type:uuid;index"`
	VariantID      uuid.UUID `gorm:"type:uuid;index"`
	Quantity       int       `gorm:"not null"`
	UnitPrice      float64   `gorm:"type:decimal(12,2)"`
	Title          string    `gorm:"size:180"`
	SizeName       string    `gorm:"size:60"`
	GenerationName string    `gorm:"size:60"`
	ImageURL       string    `gorm:"size:255"`
}

func (l OrderLine) LineTotal() float64 { return l.UnitPrice * float64(l.Quantity) }

// PickupInfo carries the admin-supplied pickup metadata for the
// placed → ready transition.
type PickupInfo struct {
	Place string
	Time  *time.Time
	Note  string
}
