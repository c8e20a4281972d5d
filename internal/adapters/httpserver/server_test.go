package httpserver

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pattadon/petshop/internal/adapters/repo/memory"
	"github.com/pattadon/petshop/internal/domain"
	"github.com/pattadon/petshop/internal/usecase"
)

const testSessionKey = "0123456789abcdef0123456789abcdef"

type env struct {
	store   *memory.Store
	handler http.Handler
	sizeID  uuid.UUID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	catalog := &usecase.CatalogUC{Store: store, DefaultLowStockThreshold: 5}
	orders := &usecase.OrderUC{Store: store, DefaultPickupWindow: 72 * time.Hour}
	e := &env{
		store:  store,
		sizeID: uuid.New(),
	}
	store.SeedSize(domain.Size{ID: e.sizeID, Name: "M"})
	e.handler = New(Options{
		Catalog:  catalog,
		Carts:    &usecase.CartUC{Store: store},
		Orders:   orders,
		Reviews:  &usecase.ReviewUC{Store: store},
		Notifier: &usecase.Notifier{Store: store, Catalog: catalog},
		Store:    store,

		SessionKey:         testSessionKey,
		AdminAllowedEmails: "owner@example.com",
	})
	return e
}

func (e *env) seedProduct(t *testing.T, title string, price float64, stock int) (*domain.Product, *domain.Variant) {
	t.Helper()
	ctx := context.Background()
	p := &domain.Product{ID: uuid.New(), Title: title, Price: price}
	require.NoError(t, e.store.Products().Save(ctx, p))
	v := &domain.Variant{ID: uuid.New(), ProductID: p.ID, SizeID: e.sizeID, Quantity: stock}
	require.NoError(t, e.store.Catalog().SaveVariant(ctx, v))
	return p, v
}

// sessionCookie mints a cookie the server's HMAC check accepts, standing
// in for the oauth callback.
func sessionCookie(t *testing.T, u sessionUser) *http.Cookie {
	t.Helper()
	b, err := json.Marshal(u)
	require.NoError(t, err)
	h := hmac.New(sha256.New, []byte(testSessionKey))
	h.Write(b)
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return &http.Cookie{Name: "sess", Value: sig + "." + base64.RawURLEncoding.EncodeToString(b)}
}

func customerCookie(t *testing.T, id uuid.UUID) *http.Cookie {
	return sessionCookie(t, sessionUser{ID: id, Email: "cust@example.com", Role: domain.RoleCustomer})
}

func adminCookie(t *testing.T) *http.Cookie {
	return sessionCookie(t, sessionUser{ID: uuid.New(), Email: "owner@example.com", Role: domain.RoleAdmin})
}

func (e *env) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAuthBoundaries(t *testing.T) {
	e := newEnv(t)

	t.Run("products are public", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/products", nil)
		assert.Equal(t, 200, rec.Code)
	})

	t.Run("cart needs a session", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/user/cart", nil)
		assert.Equal(t, 401, rec.Code)
	})

	t.Run("tampered cookie is anonymous", func(t *testing.T) {
		c := customerCookie(t, uuid.New())
		c.Value = c.Value + "x"
		rec := e.do(t, http.MethodGet, "/user/cart", nil, c)
		assert.Equal(t, 401, rec.Code)
	})

	t.Run("admin surface rejects customers", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/admin/notifications", nil, customerCookie(t, uuid.New()))
		assert.Equal(t, 403, rec.Code)
	})

	t.Run("admin surface accepts admins", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/admin/notifications", nil, adminCookie(t))
		assert.Equal(t, 200, rec.Code)
	})
}

func TestCheckoutFlowOverHTTP(t *testing.T) {
	e := newEnv(t)
	userID := uuid.New()
	cust := customerCookie(t, userID)
	_, v := e.seedProduct(t, "Salmon Kibble", 250, 3)

	rec := e.do(t, http.MethodPost, "/user/cart/add", map[string]any{"variant_id": v.ID, "quantity": 2}, cust)
	require.Equal(t, 200, rec.Code)
	body := decode(t, rec)
	assert.InDelta(t, 500.0, body["total_price"], 1e-9)

	rec = e.do(t, http.MethodPost, "/user/order", nil, cust)
	require.Equal(t, 201, rec.Code)
	body = decode(t, rec)
	order := body["order"].(map[string]any)
	assert.Equal(t, "placed", order["Status"])
	assert.Equal(t, "กำลังรับออเดอร์", body["status_label"])
	orderID := order["ID"].(string)

	t.Run("cart is empty after checkout", func(t *testing.T) {
		rec := e.do(t, http.MethodGet, "/user/cart", nil, cust)
		require.Equal(t, 200, rec.Code)
		assert.InDelta(t, 0.0, decode(t, rec)["total_count"], 1e-9)
	})

	t.Run("empty cart checkout is a 400", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/user/order", nil, cust)
		assert.Equal(t, 400, rec.Code)
	})

	t.Run("another customer cannot touch the order", func(t *testing.T) {
		rec := e.do(t, http.MethodPut, "/orders/"+orderID+"/cancel", map[string]any{"reason": "mine now"}, customerCookie(t, uuid.New()))
		assert.Equal(t, 403, rec.Code)
	})

	t.Run("admin accepts and completes it", func(t *testing.T) {
		admin := adminCookie(t)
		rec := e.do(t, http.MethodPatch, "/admin/orders/"+orderID+"/pickup", map[string]any{"place": "หน้าร้าน"}, admin)
		require.Equal(t, 200, rec.Code)
		got := decode(t, rec)["order"].(map[string]any)
		assert.Equal(t, "ready", got["Status"])
		assert.NotNil(t, got["ExpireAt"])

		rec = e.do(t, http.MethodPut, "/admin/orders/"+orderID+"/status", map[string]any{"status": "completed"}, admin)
		require.Equal(t, 200, rec.Code)
	})

	t.Run("review lands once completed", func(t *testing.T) {
		rec := e.do(t, http.MethodPost, "/orders/"+orderID+"/reviews", map[string]any{"variant_id": v.ID, "rating": 5, "body": "ดีมาก"}, cust)
		assert.Equal(t, 201, rec.Code)

		rec = e.do(t, http.MethodGet, "/orders/"+orderID+"/reviews/mine", nil, cust)
		require.Equal(t, 200, rec.Code)
		items := decode(t, rec)["items"].([]any)
		assert.Len(t, items, 1)
	})

	t.Run("cancel after completion is a 409", func(t *testing.T) {
		rec := e.do(t, http.MethodPut, "/orders/"+orderID+"/cancel", map[string]any{"reason": "changed my mind"}, cust)
		assert.Equal(t, 409, rec.Code)
	})
}

func TestStockErrorsCarryDetail(t *testing.T) {
	e := newEnv(t)
	userID := uuid.New()
	cust := customerCookie(t, userID)
	_, v := e.seedProduct(t, "Salmon Kibble", 250, 2)

	rec := e.do(t, http.MethodPost, "/user/cart/add", map[string]any{"variant_id": v.ID, "quantity": 2}, cust)
	require.Equal(t, 200, rec.Code)

	// a faster buyer takes one before checkout
	require.NoError(t, e.store.Catalog().DecrementStock(context.Background(), v.ID, 1))

	rec = e.do(t, http.MethodPost, "/user/order", nil, cust)
	require.Equal(t, 422, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "insufficient_stock", body["error"])
	assert.Equal(t, "Salmon Kibble", body["title"])
	assert.InDelta(t, 2.0, body["requested"], 1e-9)
	assert.InDelta(t, 1.0, body["available"], 1e-9)
}

func TestVariantGoneOverHTTP(t *testing.T) {
	e := newEnv(t)
	userID := uuid.New()
	cust := customerCookie(t, userID)
	_, v := e.seedProduct(t, "Salmon Kibble", 250, 3)

	rec := e.do(t, http.MethodPost, "/user/cart/add", map[string]any{"variant_id": v.ID, "quantity": 1}, cust)
	require.Equal(t, 200, rec.Code)
	e.store.RemoveVariant(v.ID)

	rec = e.do(t, http.MethodPost, "/user/order", nil, cust)
	require.Equal(t, 422, rec.Code)
	assert.Equal(t, "variant_gone", decode(t, rec)["error"])
}

func TestAdminSettingsEndpoints(t *testing.T) {
	e := newEnv(t)
	admin := adminCookie(t)

	rec := e.do(t, http.MethodGet, "/admin/settings/low-stock-threshold", nil, admin)
	require.Equal(t, 200, rec.Code)
	assert.InDelta(t, 5.0, decode(t, rec)["threshold"], 1e-9)

	rec = e.do(t, http.MethodPut, "/admin/settings/low-stock-threshold", map[string]any{"threshold": 9}, admin)
	require.Equal(t, 200, rec.Code)

	rec = e.do(t, http.MethodGet, "/admin/settings/low-stock-threshold", nil, admin)
	require.Equal(t, 200, rec.Code)
	assert.InDelta(t, 9.0, decode(t, rec)["threshold"], 1e-9)

	rec = e.do(t, http.MethodPut, "/admin/settings/pickup-window", map[string]any{"hours": 24}, admin)
	assert.Equal(t, 200, rec.Code)

	t.Run("unknown order returns 404", func(t *testing.T) {
		rec := e.do(t, http.MethodPut, "/admin/orders/"+uuid.NewString()+"/status", map[string]any{"status": "completed"}, admin)
		assert.Equal(t, 404, rec.Code)
	})

	t.Run("bulk pickup reports per-order failures", func(t *testing.T) {
		missing := uuid.New()
		rec := e.do(t, http.MethodPost, "/admin/orders/pickup", map[string]any{"order_ids": []string{missing.String()}, "place": "หน้าร้าน"}, admin)
		require.Equal(t, 200, rec.Code)
		body := decode(t, rec)
		assert.InDelta(t, 0.0, body["updated"], 1e-9)
		assert.Len(t, body["errors"].(map[string]any), 1)
	})
}

func TestExportOrdersXLSX(t *testing.T) {
	e := newEnv(t)
	e.seedProduct(t, "Salmon Kibble", 250, 1)

	rec := e.do(t, http.MethodGet, "/admin/export/orders.xlsx", nil, adminCookie(t))
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}
