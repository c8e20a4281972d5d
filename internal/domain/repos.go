package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ProductRepo interface {
	Save(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, f ProductFilter) ([]Product, int64, error)
	AddSold(ctx context.Context, productID uuid.UUID, n int) error
	SetRating(ctx context.Context, productID uuid.UUID, avg float64, count int) error
}

// VariantCatalog owns variant rows and the only serialized mutable state
// in the core: stock. DecrementStock is conditional per row, never a
// read-then-write from a stale snapshot.
type VariantCatalog interface {
	SaveVariant(ctx context.Context, v *Variant) error
	GetVariant(ctx context.Context, productID, sizeID uuid.UUID, generationID *uuid.UUID) (*Variant, error)
	GetVariantByID(ctx context.Context, id uuid.UUID) (*Variant, error)
	ListVariants(ctx context.Context, productID uuid.UUID) ([]Variant, error)
	GetSize(ctx context.Context, id uuid.UUID) (*Size, error)
	GetGeneration(ctx context.Context, id uuid.UUID) (*Generation, error)
	DecrementStock(ctx context.Context, variantID uuid.UUID, amount int) error
	IncrementStock(ctx context.Context, variantID uuid.UUID, amount int) error
	SetLowStockThreshold(ctx context.Context, variantID uuid.UUID, threshold *int) error
	ListLowStock(ctx context.Context, globalThreshold int) ([]Variant, error)
}

type CartRepo interface {
	Load(ctx context.Context, userID uuid.UUID) ([]CartLine, error)
	Replace(ctx context.Context, userID uuid.UUID, lines []CartLine) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type OrderRepo interface {
	Create(ctx context.Context, o *Order) error
	Save(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, terminal bool) ([]Order, error)
	ListExpired(ctx context.Context, now time.Time) ([]Order, error)
	ListRecent(ctx context.Context, limit int) ([]Order, error)
	CountByStatus(ctx context.Context, status OrderStatus) (int64, error)
	// UpdateStatusIf claims a transition: it flips status to `to` only if
	// the row is still in one of `from`, reporting whether this caller won.
	// Cancellation and the sweeper rely on it to restore stock exactly once.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from []OrderStatus, to OrderStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ReviewRepo interface {
	Upsert(ctx context.Context, r *Review) error
	FindByOrderAndReviewer(ctx context.Context, orderID, reviewerID uuid.UUID) ([]Review, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]Review, error)
	AggregateByProduct(ctx context.Context, productID uuid.UUID) (RatingSummary, error)
}

type UserRepo interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, u *User) error
}

// Settings is the generic admin key/value collaborator (thresholds,
// pickup window). Missing keys return ErrNotFound.
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

const (
	SettingLowStockThreshold = "low_stock_threshold"
	SettingPickupWindowHours = "pickup_window_hours"
)

// Store bundles the repositories with a transaction boundary. Atomically
// runs fn against a store bound to one transaction; any error rolls the
// whole unit back. placeOrder, cancellation and the sweep all run inside it.
type Store interface {
	Products() ProductRepo
	Catalog() VariantCatalog
	Carts() CartRepo
	Orders() OrderRepo
	Reviews() ReviewRepo
	Users() UserRepo
	Settings() Settings
	Atomically(ctx context.Context, fn func(Store) error) error
}
