package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/pattadon/petshop/internal/domain"
)

// Store binds all repositories to one *gorm.DB handle. Atomically rebinds
// them to a transaction so checkout, cancellation and the sweep commit or
// roll back as a unit.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

func (s *Store) Products() domain.ProductRepo   { return NewProductRepo(s.db) }
func (s *Store) Catalog() domain.VariantCatalog { return NewCatalogRepo(s.db) }
func (s *Store) Carts() domain.CartRepo         { return NewCartRepo(s.db) }
func (s *Store) Orders() domain.OrderRepo       { return NewOrderRepo(s.db) }
func (s *Store) Reviews() domain.ReviewRepo     { return NewReviewRepo(s.db) }
func (s *Store) Users() domain.UserRepo         { return NewUserRepo(s.db) }
func (s *Store) Settings() domain.Settings      { return NewSettingsRepo(s.db) }

func (s *Store) Atomically(ctx context.Context, fn func(domain.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
