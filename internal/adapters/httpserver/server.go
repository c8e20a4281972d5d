package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/pattadon/petshop/internal/adapters/export"
	"github.com/pattadon/petshop/internal/domain"
	"github.com/pattadon/petshop/internal/usecase"
)

type Server struct {
	mux      *http.ServeMux
	catalog  *usecase.CatalogUC
	carts    *usecase.CartUC
	orders   *usecase.OrderUC
	reviews  *usecase.ReviewUC
	notifier *usecase.Notifier
	store    domain.Store
	users    domain.UserRepo
	oauthCfg *oauth2.Config

	sessionKey   []byte
	adminAllowed map[string]struct{}
}

type Options struct {
	Catalog  *usecase.CatalogUC
	Carts    *usecase.CartUC
	Orders   *usecase.OrderUC
	Reviews  *usecase.ReviewUC
	Notifier *usecase.Notifier
	Store    domain.Store
	OAuth    *oauth2.Config

	SessionKey         string
	AdminAllowedEmails string
}

func New(opts Options) http.Handler {
	s := &Server{
		mux:        http.NewServeMux(),
		catalog:    opts.Catalog,
		carts:      opts.Carts,
		orders:     opts.Orders,
		reviews:    opts.Reviews,
		notifier:   opts.Notifier,
		store:      opts.Store,
		users:      opts.Store.Users(),
		oauthCfg:   opts.OAuth,
		sessionKey: []byte(opts.SessionKey),
	}
	allowed := map[string]struct{}{}
	for _, e := range strings.Split(opts.AdminAllowedEmails, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allowed[e] = struct{}{}
		}
	}
	s.adminAllowed = allowed

	s.routes()
	return Chain(s.mux,
		RateLimit(120),
		RequestID,
		Recovery,
		Logging,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/products", s.handleProducts)
	s.mux.HandleFunc("/products/", s.handleProductByID)

	s.mux.HandleFunc("/user/cart", s.handleCart)
	s.mux.HandleFunc("/user/cart/add", s.handleCartAdd)
	s.mux.HandleFunc("/user/cart/update", s.handleCartUpdate)
	s.mux.HandleFunc("/user/cart/change", s.handleCartChange)
	s.mux.HandleFunc("/user/cart/remove", s.handleCartRemove)

	s.mux.HandleFunc("/user/order", s.handleUserOrders)
	s.mux.HandleFunc("/user/order-history", s.handleOrderHistory)
	s.mux.HandleFunc("/orders/", s.handleOrderByID)

	s.mux.HandleFunc("/admin/orders/pickup", s.handleBulkPickup)
	s.mux.HandleFunc("/admin/orders/", s.handleAdminOrderByID)
	s.mux.HandleFunc("/admin/settings/low-stock-threshold", s.handleLowStockThreshold)
	s.mux.HandleFunc("/admin/settings/pickup-window", s.handlePickupWindow)
	s.mux.HandleFunc("/admin/variants/", s.handleAdminVariantByID)
	s.mux.HandleFunc("/admin/notifications", s.handleNotifications)
	s.mux.HandleFunc("/admin/export/orders.xlsx", s.handleExportOrders)

	s.mux.HandleFunc("/auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("/auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("/logout", s.handleLogout)
}

// --- products ---

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	f := domain.ProductFilter{Query: q.Get("q"), Sort: q.Get("sort"), Page: page, PageSize: size}
	list, total, err := s.catalog.ListProducts(r.Context(), f)
	if err != nil {
		s.httpError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"items": list, "total": total})
}

// handleProductByID serves /products/{id}, /products/{id}/rating and
// /products/{id}/reviews.
func (s *Server) handleProductByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/products/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.NotFound(w, r)
		return
	}
	switch {
	case len(parts) == 1:
		p, err := s.catalog.GetProduct(r.Context(), id)
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, p)
	case len(parts) == 2 && parts[1] == "rating":
		sum, err := s.reviews.ProductRating(r.Context(), id)
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, sum)
	case len(parts) == 2 && parts[1] == "reviews":
		list, err := s.reviews.ProductReviews(r.Context(), id)
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"items": list})
	default:
		http.NotFound(w, r)
	}
}

// --- cart ---

func cartPayload(c *domain.Cart) map[string]any {
	return map[string]any{
		"items":       c.Lines(),
		"total_price": c.TotalPrice(),
		"total_count": c.TotalCount(),
	}
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	switch r.Method {
	case http.MethodGet:
		cart, err := s.carts.Get(r.Context(), u.ID)
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, cartPayload(cart))
	case http.MethodPost:
		var req struct {
			Items []domain.CartLine `json:"items"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		cart, err := s.carts.Sync(r.Context(), u.ID, req.Items)
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, cartPayload(cart))
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		VariantID uuid.UUID `json:"variant_id"`
		Quantity  int       `json:"quantity"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	cart, err := s.carts.Add(r.Context(), u.ID, req.VariantID, req.Quantity)
	if err != nil {
		s.httpError(w, err)
		return
	}
	writeJSON(w, 200, cartPayload(cart))
}

func (s *Server) handleCartUpdate(w http.ResponseWriter, r *http.Request) {
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		ProductID uuid.UUID `json:"product_id"`
		VariantID uuid.UUID `json:"variant_id"`
		Quantity  int       `json:"quantity"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	key := domain.CartKey{ProductID: req.ProductID, VariantID: req.VariantID}
	cart, err := s.carts.SetQuantity(r.Context(), u.ID, key, req.Quantity)
	if err != nil {
		s.httpError(w, err)
		return
	}
	writeJSON(w, 200, cartPayload(cart))
}

// handleCartChange swaps a line to a different size/generation variant.
func (s *Server) handleCartChange(w http.ResponseWriter, r *http.Request) {
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		ProductID    uuid.UUID `json:"product_id"`
		VariantID    uuid.UUID `json:"variant_id"`
		NewVariantID uuid.UUID `json:"new_variant_id"`
		Quantity     int       `json:"quantity"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	oldKey := domain.CartKey{ProductID: req.ProductID, VariantID: req.VariantID}
	cart, err := s.carts.ChangeVariant(r.Context(), u.ID, oldKey, req.NewVariantID, req.Quantity)
	if err != nil {
		s.httpError(w, err)
		return
	}
	writeJSON(w, 200, cartPayload(cart))
}

func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		ProductID uuid.UUID `json:"product_id"`
		VariantID uuid.UUID `json:"variant_id"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	cart, err := s.carts.Remove(r.Context(), u.ID, domain.CartKey{ProductID: req.ProductID, VariantID: req.VariantID})
	if err != nil {
		s.httpError(w, err)
		return
	}
	writeJSON(w, 200, cartPayload(cart))
}

// --- orders ---

func orderPayload(o *domain.Order) map[string]any {
	return map[string]any{"order": o, "status_label": domain.StatusLabelTH[o.Status]}
}

func ordersPayload(list []domain.Order) map[string]any {
	items := make([]map[string]any, 0, len(list))
	for i := range list {
		items = append(items, orderPayload(&list[i]))
	}
	return map[string]any{"items": items}
}

func (s *Server) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := s.orders.ListActive(r.Context(), u.ID)
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, ordersPayload(list))
	case http.MethodPost:
		order, err := s.orders.PlaceOrder(r.Context(), u.ID)
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 201, orderPayload(order))
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	list, err := s.orders.ListHistory(r.Context(), u.ID)
	if err != nil {
		s.httpError(w, err)
		return
	}
	writeJSON(w, 200, ordersPayload(list))
}

// handleOrderByID serves the user-facing order surface:
// PUT /orders/{id}/cancel, DELETE /orders/{id},
// POST /orders/{id}/reviews, GET /orders/{id}/reviews/mine.
func (s *Server) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/orders/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if !s.ownsOrder(w, r, u, id) {
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodDelete:
		reason := r.URL.Query().Get("reason")
		if reason == "" {
			reason = "cancelled by customer"
		}
		if err := s.orders.CancelAndDelete(r.Context(), id, reason, r.URL.Query().Get("note")); err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"status": "ok"})
	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPut:
		var req struct {
			Reason string `json:"reason"`
			Note   string `json:"note"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		if err := s.orders.Cancel(r.Context(), id, req.Reason, req.Note); err != nil {
			s.httpError(w, err)
			return
		}
		o, err := s.orders.Get(r.Context(), id)
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, orderPayload(o))
	case len(parts) == 2 && parts[1] == "reviews" && r.Method == http.MethodPost:
		var req struct {
			VariantID uuid.UUID `json:"variant_id"`
			Rating    int       `json:"rating"`
			Body      string    `json:"body"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 16384)).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		rev, err := s.reviews.Submit(r.Context(), id, req.VariantID, u.ID, req.Rating, req.Body)
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 201, rev)
	case len(parts) == 3 && parts[1] == "reviews" && parts[2] == "mine" && r.Method == http.MethodGet:
		list, err := s.reviews.Mine(r.Context(), id, u.ID)
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"items": list})
	default:
		http.NotFound(w, r)
	}
}

// ownsOrder rejects callers poking at someone else's order; admins pass.
func (s *Server) ownsOrder(w http.ResponseWriter, r *http.Request, u *sessionUser, orderID uuid.UUID) bool {
	if u.Role == domain.RoleAdmin {
		return true
	}
	o, err := s.orders.Get(r.Context(), orderID)
	if err != nil {
		s.httpError(w, err)
		return false
	}
	if o.UserID != u.ID {
		writeJSON(w, 403, map[string]any{"error": "forbidden"})
		return false
	}
	return true
}

// --- admin ---

// handleAdminOrderByID serves PUT /admin/orders/{id}/status,
// PATCH /admin/orders/{id}/pickup and PUT /admin/orders/{id}/cancel.
func (s *Server) handleAdminOrderByID(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/admin/orders/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.NotFound(w, r)
		return
	}
	switch {
	case parts[1] == "status" && r.Method == http.MethodPut:
		var req struct {
			Status string `json:"status"`
			Reason string `json:"reason"`
			Note   string `json:"note"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		var o *domain.Order
		switch domain.OrderStatus(req.Status) {
		case domain.OrderStatusReady:
			o, err = s.orders.MarkReady(r.Context(), id, domain.PickupInfo{})
		case domain.OrderStatusCompleted:
			o, err = s.orders.Complete(r.Context(), id)
		case domain.OrderStatusCancelled:
			if err = s.orders.Cancel(r.Context(), id, req.Reason, req.Note); err == nil {
				o, err = s.orders.Get(r.Context(), id)
			}
		default:
			http.Error(w, "status", 400)
			return
		}
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, orderPayload(o))
	case parts[1] == "pickup" && r.Method == http.MethodPatch:
		pickup, ok := decodePickup(w, r)
		if !ok {
			return
		}
		o, err := s.orders.MarkReady(r.Context(), id, pickup)
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, orderPayload(o))
	case parts[1] == "cancel" && r.Method == http.MethodPut:
		var req struct {
			Reason string `json:"reason"`
			Note   string `json:"note"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		if err := s.orders.Cancel(r.Context(), id, req.Reason, req.Note); err != nil {
			s.httpError(w, err)
			return
		}
		o, err := s.orders.Get(r.Context(), id)
		if err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, orderPayload(o))
	default:
		http.NotFound(w, r)
	}
}

func decodePickup(w http.ResponseWriter, r *http.Request) (domain.PickupInfo, bool) {
	var req struct {
		Place string     `json:"place"`
		Time  *time.Time `json:"time"`
		Note  string     `json:"note"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 8192)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return domain.PickupInfo{}, false
	}
	return domain.PickupInfo{Place: req.Place, Time: req.Time, Note: req.Note}, true
}

// handleBulkPickup applies the placed → ready transition across a set of
// order ids; per-order failures are reported, not fatal.
func (s *Server) handleBulkPickup(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		OrderIDs []uuid.UUID `json:"order_ids"`
		Place    string      `json:"place"`
		Time     *time.Time  `json:"time"`
		Note     string      `json:"note"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	failed := s.orders.BulkMarkReady(r.Context(), req.OrderIDs, domain.PickupInfo{Place: req.Place, Time: req.Time, Note: req.Note})
	errorsMap := map[string]string{}
	for id, err := range failed {
		errorsMap[id.String()] = err.Error()
	}
	writeJSON(w, 200, map[string]any{
		"updated": len(req.OrderIDs) - len(failed),
		"errors":  errorsMap,
	})
}

func (s *Server) handleLowStockThreshold(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, 200, map[string]any{"threshold": s.catalog.GlobalLowStockThreshold(r.Context())})
	case http.MethodPut:
		var req struct {
			Threshold int `json:"threshold"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
			http.Error(w, "json", 400)
			return
		}
		if err := s.catalog.SetGlobalLowStockThreshold(r.Context(), req.Threshold); err != nil {
			s.httpError(w, err)
			return
		}
		writeJSON(w, 200, map[string]any{"threshold": req.Threshold})
	default:
		http.Error(w, "method", 405)
	}
}

func (s *Server) handlePickupWindow(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	if r.Method != http.MethodPut {
		http.Error(w, "method", 405)
		return
	}
	var req struct {
		Hours int `json:"hours"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	if err := s.orders.SetPickupWindowHours(r.Context(), req.Hours); err != nil {
		s.httpError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"hours": req.Hours})
}

// handleAdminVariantByID serves PUT /admin/variants/{id}/low-stock-threshold.
func (s *Server) handleAdminVariantByID(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/admin/variants/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != "low-stock-threshold" || r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Threshold *int `json:"threshold"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "json", 400)
		return
	}
	if err := s.catalog.SetVariantThreshold(r.Context(), id, req.Threshold); err != nil {
		s.httpError(w, err)
		return
	}
	writeJSON(w, 200, map[string]any{"status": "ok"})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, 200, s.notifier.Snapshot())
}

func (s *Server) handleExportOrders(w http.ResponseWriter, r *http.Request) {
	if s.requireAdmin(w, r) == nil {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method", 405)
		return
	}
	orders, err := s.store.Orders().ListRecent(r.Context(), 500)
	if err != nil {
		s.httpError(w, err)
		return
	}
	low, err := s.catalog.ListLowStock(r.Context())
	if err != nil {
		s.httpError(w, err)
		return
	}
	f, err := export.OrdersWorkbook(orders, low)
	if err != nil {
		s.httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="orders.xlsx"`)
	if err := f.Write(w); err != nil {
		log.Error().Err(err).Msg("write xlsx")
	}
}

// --- helpers ---

// httpError maps the domain taxonomy to status codes. Stock failures get
// enough detail to highlight the offending line in the UI.
func (s *Server) httpError(w http.ResponseWriter, err error) {
	var ins *domain.InsufficientStockError
	var gone *domain.VariantGoneError
	switch {
	case errors.As(err, &ins):
		writeJSON(w, 422, map[string]any{
			"error":      "insufficient_stock",
			"variant_id": ins.VariantID,
			"title":      ins.Title,
			"requested":  ins.Requested,
			"available":  ins.Available,
		})
	case errors.As(err, &gone):
		writeJSON(w, 422, map[string]any{
			"error":      "variant_gone",
			"variant_id": gone.VariantID,
			"title":      gone.Title,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, 404, map[string]any{"error": "not_found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		writeJSON(w, 409, map[string]any{"error": "invalid_transition"})
	case errors.Is(err, domain.ErrNotEligible):
		writeJSON(w, 409, map[string]any{"error": "not_eligible"})
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrReasonRequired):
		writeJSON(w, 400, map[string]any{"error": err.Error()})
	default:
		log.Error().Err(err).Msg("internal error")
		writeJSON(w, 500, map[string]any{"error": "internal"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
