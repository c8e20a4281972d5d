// Package memory provides an in-memory Store used by tests and local
// development. Atomically snapshots the whole state and restores it on
// error, mirroring the rollback behavior of the postgres store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pattadon/petshop/internal/domain"
)

type reviewKey struct {
	OrderID   uuid.UUID
	VariantID uuid.UUID
}

type data struct {
	products    map[uuid.UUID]*domain.Product
	variants    map[uuid.UUID]*domain.Variant
	sizes       map[uuid.UUID]*domain.Size
	generations map[uuid.UUID]*domain.Generation
	carts       map[uuid.UUID][]domain.CartLine
	orders      map[uuid.UUID]*domain.Order
	reviews     map[reviewKey]*domain.Review
	users       map[uuid.UUID]*domain.User
	settings    map[string]string
}

func newData() *data {
	return &data{
		products:    map[uuid.UUID]*domain.Product{},
		variants:    map[uuid.UUID]*domain.Variant{},
		sizes:       map[uuid.UUID]*domain.Size{},
		generations: map[uuid.UUID]*domain.Generation{},
		carts:       map[uuid.UUID][]domain.CartLine{},
		orders:      map[uuid.UUID]*domain.Order{},
		reviews:     map[reviewKey]*domain.Review{},
		users:       map[uuid.UUID]*domain.User{},
		settings:    map[string]string{},
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.products {
		p := *v
		p.Images = append([]domain.Image(nil), v.Images...)
		p.Variants = append([]domain.Variant(nil), v.Variants...)
		c.products[k] = &p
	}
	for k, v := range d.variants {
		vv := *v
		c.variants[k] = &vv
	}
	for k, v := range d.sizes {
		s := *v
		c.sizes[k] = &s
	}
	for k, v := range d.generations {
		g := *v
		c.generations[k] = &g
	}
	for k, v := range d.carts {
		c.carts[k] = append([]domain.CartLine(nil), v...)
	}
	for k, v := range d.orders {
		o := *v
		o.Lines = append([]domain.OrderLine(nil), v.Lines...)
		c.orders[k] = &o
	}
	for k, v := range d.reviews {
		r := *v
		c.reviews[k] = &r
	}
	for k, v := range d.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range d.settings {
		c.settings[k] = v
	}
	return c
}

type Store struct {
	mu   *sync.Mutex
	d    *data
	inTx bool
}

func New() *Store {
	return &Store{mu: &sync.Mutex{}, d: newData()}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) Atomically(ctx context.Context, fn func(domain.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.d.clone()
	child := &Store{mu: s.mu, d: s.d, inTx: true}
	if err := fn(child); err != nil {
		*s.d = *snapshot
		return err
	}
	return nil
}

func (s *Store) Products() domain.ProductRepo   { return (*productRepo)(s) }
func (s *Store) Catalog() domain.VariantCatalog { return (*catalogRepo)(s) }
func (s *Store) Carts() domain.CartRepo         { return (*cartRepo)(s) }
func (s *Store) Orders() domain.OrderRepo       { return (*orderRepo)(s) }
func (s *Store) Reviews() domain.ReviewRepo     { return (*reviewRepo)(s) }
func (s *Store) Users() domain.UserRepo         { return (*userRepo)(s) }
func (s *Store) Settings() domain.Settings      { return (*settingsRepo)(s) }

// --- products ---

type productRepo Store

func (r *productRepo) Save(_ context.Context, p *domain.Product) error {
	defer (*Store)(r).lock()()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	cp.Images = append([]domain.Image(nil), p.Images...)
	r.d.products[p.ID] = &cp
	return nil
}

func (r *productRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	defer (*Store)(r).lock()()
	p, ok := r.d.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	cp.Images = append([]domain.Image(nil), p.Images...)
	cp.Variants = nil
	for _, v := range r.d.variants {
		if v.ProductID == id {
			cp.Variants = append(cp.Variants, *v)
		}
	}
	sort.Slice(cp.Variants, func(i, j int) bool {
		return cp.Variants[i].CreatedAt.Before(cp.Variants[j].CreatedAt)
	})
	return &cp, nil
}

func (r *productRepo) List(_ context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	defer (*Store)(r).lock()()
	var list []domain.Product
	for _, p := range r.d.products {
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.Query)) {
			continue
		}
		list = append(list, *p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Title < list[j].Title })
	return list, int64(len(list)), nil
}

func (r *productRepo) AddSold(_ context.Context, productID uuid.UUID, n int) error {
	defer (*Store)(r).lock()()
	p, ok := r.d.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.TotalSold += n
	return nil
}

func (r *productRepo) SetRating(_ context.Context, productID uuid.UUID, avg float64, count int) error {
	defer (*Store)(r).lock()()
	p, ok := r.d.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.RatingAvg = avg
	p.RatingCount = count
	return nil
}

// --- catalog ---

type catalogRepo Store

func (r *catalogRepo) SaveVariant(_ context.Context, v *domain.Variant) error {
	defer (*Store)(r).lock()()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	cp := *v
	r.d.variants[v.ID] = &cp
	return nil
}

func (r *catalogRepo) GetVariant(_ context.Context, productID, sizeID uuid.UUID, generationID *uuid.UUID) (*domain.Variant, error) {
	defer (*Store)(r).lock()()
	for _, v := range r.d.variants {
		if v.ProductID != productID || v.SizeID != sizeID {
			continue
		}
		if generationID == nil && v.GenerationID == nil {
			cp := *v
			return &cp, nil
		}
		if generationID != nil && v.GenerationID != nil && *generationID == *v.GenerationID {
			cp := *v
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *catalogRepo) GetVariantByID(_ context.Context, id uuid.UUID) (*domain.Variant, error) {
	defer (*Store)(r).lock()()
	v, ok := r.d.variants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *catalogRepo) ListVariants(_ context.Context, productID uuid.UUID) ([]domain.Variant, error) {
	defer (*Store)(r).lock()()
	var list []domain.Variant
	for _, v := range r.d.variants {
		if v.ProductID == productID {
			list = append(list, *v)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (r *catalogRepo) GetSize(_ context.Context, id uuid.UUID) (*domain.Size, error) {
	defer (*Store)(r).lock()()
	s, ok := r.d.sizes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *catalogRepo) GetGeneration(_ context.Context, id uuid.UUID) (*domain.Generation, error) {
	defer (*Store)(r).lock()()
	g, ok := r.d.generations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

// RemoveVariant hard-deletes a variant row, standing in for the admin
// catalog edit that can orphan active cart and order lines.
func (s *Store) RemoveVariant(id uuid.UUID) {
	defer s.lock()()
	delete(s.d.variants, id)
}

// SeedSize and SeedGeneration load lookup rows; the admin CRUD that
// normally owns them is out of process here.
func (s *Store) SeedSize(sz domain.Size) {
	defer s.lock()()
	s.d.sizes[sz.ID] = &sz
}

func (s *Store) SeedGeneration(g domain.Generation) {
	defer s.lock()()
	s.d.generations[g.ID] = &g
}

func (r *catalogRepo) DecrementStock(_ context.Context, variantID uuid.UUID, amount int) error {
	defer (*Store)(r).lock()()
	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}
	v, ok := r.d.variants[variantID]
	if !ok {
		return domain.ErrNotFound
	}
	if v.Quantity < amount {
		return &domain.InsufficientStockError{VariantID: variantID, Requested: amount, Available: v.Quantity}
	}
	v.Quantity -= amount
	return nil
}

func (r *catalogRepo) IncrementStock(_ context.Context, variantID uuid.UUID, amount int) error {
	defer (*Store)(r).lock()()
	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}
	v, ok := r.d.variants[variantID]
	if !ok {
		return domain.ErrNotFound
	}
	v.Quantity += amount
	return nil
}

func (r *catalogRepo) SetLowStockThreshold(_ context.Context, variantID uuid.UUID, threshold *int) error {
	defer (*Store)(r).lock()()
	v, ok := r.d.variants[variantID]
	if !ok {
		return domain.ErrNotFound
	}
	v.LowStockThreshold = threshold
	return nil
}

func (r *catalogRepo) ListLowStock(_ context.Context, globalThreshold int) ([]domain.Variant, error) {
	defer (*Store)(r).lock()()
	var list []domain.Variant
	for _, v := range r.d.variants {
		threshold := globalThreshold
		if v.LowStockThreshold != nil {
			threshold = *v.LowStockThreshold
		}
		if v.Quantity <= threshold {
			list = append(list, *v)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Quantity < list[j].Quantity })
	return list, nil
}

// --- carts ---

type cartRepo Store

func (r *cartRepo) Load(_ context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	defer (*Store)(r).lock()()
	return append([]domain.CartLine(nil), r.d.carts[userID]...), nil
}

func (r *cartRepo) Replace(_ context.Context, userID uuid.UUID, lines []domain.CartLine) error {
	defer (*Store)(r).lock()()
	cp := make([]domain.CartLine, len(lines))
	copy(cp, lines)
	for i := range cp {
		if cp[i].ID == uuid.Nil {
			cp[i].ID = uuid.New()
		}
		cp[i].UserID = userID
	}
	r.d.carts[userID] = cp
	return nil
}

func (r *cartRepo) Clear(_ context.Context, userID uuid.UUID) error {
	defer (*Store)(r).lock()()
	delete(r.d.carts, userID)
	return nil
}

// --- orders ---

type orderRepo Store

func (r *orderRepo) Create(_ context.Context, o *domain.Order) error {
	defer (*Store)(r).lock()()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	cp := *o
	cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
	r.d.orders[o.ID] = &cp
	return nil
}

func (r *orderRepo) Save(_ context.Context, o *domain.Order) error {
	defer (*Store)(r).lock()()
	existing, ok := r.d.orders[o.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := *o
	cp.Lines = existing.Lines
	r.d.orders[o.ID] = &cp
	return nil
}

func (r *orderRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	defer (*Store)(r).lock()()
	o, ok := r.d.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return &cp, nil
}

func (r *orderRepo) ListByUser(_ context.Context, userID uuid.UUID, terminal bool) ([]domain.Order, error) {
	defer (*Store)(r).lock()()
	var list []domain.Order
	for _, o := range r.d.orders {
		if o.UserID != userID || o.Status.Terminal() != terminal {
			continue
		}
		cp := *o
		cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
		list = append(list, cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *orderRepo) ListExpired(_ context.Context, now time.Time) ([]domain.Order, error) {
	defer (*Store)(r).lock()()
	var list []domain.Order
	for _, o := range r.d.orders {
		if o.Status == domain.OrderStatusReady && o.ExpireAt != nil && !o.ExpireAt.After(now) {
			list = append(list, *o)
		}
	}
	return list, nil
}

func (r *orderRepo) ListRecent(_ context.Context, limit int) ([]domain.Order, error) {
	defer (*Store)(r).lock()()
	var list []domain.Order
	for _, o := range r.d.orders {
		cp := *o
		cp.Lines = append([]domain.OrderLine(nil), o.Lines...)
		list = append(list, cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r *orderRepo) CountByStatus(_ context.Context, status domain.OrderStatus) (int64, error) {
	defer (*Store)(r).lock()()
	var n int64
	for _, o := range r.d.orders {
		if o.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *orderRepo) UpdateStatusIf(_ context.Context, id uuid.UUID, from []domain.OrderStatus, to domain.OrderStatus) (bool, error) {
	defer (*Store)(r).lock()()
	o, ok := r.d.orders[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if o.Status == f {
			o.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *orderRepo) Delete(_ context.Context, id uuid.UUID) error {
	defer (*Store)(r).lock()()
	delete(r.d.orders, id)
	return nil
}

// --- reviews ---

type reviewRepo Store

func (r *reviewRepo) Upsert(_ context.Context, rev *domain.Review) error {
	defer (*Store)(r).lock()()
	key := reviewKey{OrderID: rev.OrderID, VariantID: rev.VariantID}
	if existing, ok := r.d.reviews[key]; ok {
		existing.Rating = rev.Rating
		existing.Body = rev.Body
		existing.UpdatedAt = time.Now()
		*rev = *existing
		return nil
	}
	if rev.ID == uuid.Nil {
		rev.ID = uuid.New()
	}
	rev.CreatedAt = time.Now()
	cp := *rev
	r.d.reviews[key] = &cp
	return nil
}

func (r *reviewRepo) FindByOrderAndReviewer(_ context.Context, orderID, reviewerID uuid.UUID) ([]domain.Review, error) {
	defer (*Store)(r).lock()()
	var list []domain.Review
	for _, rev := range r.d.reviews {
		if rev.OrderID == orderID && rev.ReviewerID == reviewerID {
			list = append(list, *rev)
		}
	}
	return list, nil
}

func (r *reviewRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]domain.Review, error) {
	defer (*Store)(r).lock()()
	var list []domain.Review
	for _, rev := range r.d.reviews {
		if rev.ProductID == productID {
			list = append(list, *rev)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *reviewRepo) AggregateByProduct(_ context.Context, productID uuid.UUID) (domain.RatingSummary, error) {
	defer (*Store)(r).lock()()
	var sum, count int
	for _, rev := range r.d.reviews {
		if rev.ProductID == productID {
			sum += rev.Rating
			count++
		}
	}
	if count == 0 {
		return domain.RatingSummary{}, nil
	}
	return domain.RatingSummary{Average: float64(sum) / float64(count), Count: count}, nil
}

// --- users ---

type userRepo Store

func (r *userRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	defer (*Store)(r).lock()()
	for _, u := range r.d.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *userRepo) Save(_ context.Context, u *domain.User) error {
	defer (*Store)(r).lock()()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	r.d.users[u.ID] = &cp
	return nil
}

// --- settings ---

type settingsRepo Store

func (r *settingsRepo) Get(_ context.Context, key string) (string, error) {
	defer (*Store)(r).lock()()
	v, ok := r.d.settings[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (r *settingsRepo) Set(_ context.Context, key, value string) error {
	defer (*Store)(r).lock()()
	r.d.settings[key] = value
	return nil
}
