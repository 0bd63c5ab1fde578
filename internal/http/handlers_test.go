package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront/internal/payment"
	"storefront/internal/payment/paymenttest"
	"storefront/internal/repository"
	"storefront/internal/service"
)

type testEnv struct {
	srv *Server
	rec *paymenttest.Recorder
}

func setupServer(t *testing.T, opts Options) *testEnv {
	t.Helper()
	return setupServerWith(t, &paymenttest.Recorder{}, opts)
}

func setupServerWith(t *testing.T, rec *paymenttest.Recorder, opts Options) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	catalog, err := repository.LoadCatalogFile("")
	require.NoError(t, err)
	return &testEnv{srv: newTestServer(catalog, rec, opts), rec: rec}
}

func newTestServer(catalog *repository.MemoryCatalog, processor payment.Processor, opts Options) *Server {
	log := zap.NewNop()
	pricing := service.NewPricingService(catalog, processor, log)
	carts := service.NewCartService(repository.NewMemoryCarts(time.Hour), catalog, pricing, log)
	if opts.PublishableKey == "" {
		opts.PublishableKey = "pk_test_123"
	}
	return NewServer(service.NewProductService(catalog), pricing, carts, opts)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, w)["error"]
}

func TestCreatePaymentIntent_Success(t *testing.T) {
	env := setupServer(t, Options{})
	w := doJSON(t, env.srv, http.MethodPost, "/api/create-payment-intent", map[string]any{
		"items": []map[string]any{{"productId": "prod_1", "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[map[string]any](t, w)
	assert.Equal(t, "pi_test_1_secret_test", got["clientSecret"])
	assert.EqualValues(t, 59998, got["amount"])
	assert.Len(t, got, 2, "only clientSecret and amount are returned")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestCreatePaymentIntent_IgnoresClientPrices(t *testing.T) {
	env := setupServer(t, Options{})
	w := doJSON(t, env.srv, http.MethodPost, "/api/create-payment-intent", map[string]any{
		"items": []map[string]any{{"productId": "prod_1", "quantity": 1, "price": 1, "name": "Free"}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 29999, decode[map[string]any](t, w)["amount"])
	assert.Equal(t, "Premium Wireless Headphones", env.rec.Requests()[0].Items[0].Name)
}

func TestCreatePaymentIntent_ClampsQuantity(t *testing.T) {
	env := setupServer(t, Options{})
	w := doJSON(t, env.srv, http.MethodPost, "/api/create-payment-intent", map[string]any{
		"items": []map[string]any{{"productId": "prod_2", "quantity": 25}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 49990, decode[map[string]any](t, w)["amount"])
}

func TestCreatePaymentIntent_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		body any
		want string
	}{
		{"no items", map[string]any{}, "Invalid request: items array is required"},
		{"empty items", map[string]any{"items": []any{}}, "Invalid request: items array is required"},
		{"items not array", map[string]any{"items": "prod_1"}, "Invalid request: items array is required"},
		{"not json", "{", "Invalid request: items array is required"},
		{"unknown product", map[string]any{"items": []map[string]any{{"productId": "unknown", "quantity": 1}}}, "Product not found: unknown"},
		{"zero quantity", map[string]any{"items": []map[string]any{{"productId": "prod_1", "quantity": 0}}}, "Invalid item in cart"},
		{"fractional quantity", map[string]any{"items": []map[string]any{{"productId": "prod_1", "quantity": 1.5}}}, "Invalid item in cart"},
		{"string quantity", map[string]any{"items": []map[string]any{{"productId": "prod_1", "quantity": "2"}}}, "Invalid item in cart"},
		{"numeric product id", map[string]any{"items": []map[string]any{{"productId": 1, "quantity": 1}}}, "Invalid item in cart"},
		{"element not object", map[string]any{"items": []any{"prod_1"}}, "Invalid item in cart"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupServer(t, Options{})
			w := doJSON(t, env.srv, http.MethodPost, "/api/create-payment-intent", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.want, errorOf(t, w))
			assert.Zero(t, env.rec.Calls())
		})
	}
}

func TestCreatePaymentIntent_ProcessorFailureIsGeneric(t *testing.T) {
	rec := &paymenttest.Recorder{Err: errors.New("card_declined: secret detail")}
	env := setupServerWith(t, rec, Options{})
	w := doJSON(t, env.srv, http.MethodPost, "/api/create-payment-intent", map[string]any{
		"items": []map[string]any{{"productId": "prod_1", "quantity": 1}},
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to create payment intent. Please try again.", errorOf(t, w))
	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestCreatePaymentIntent_OpenBreakerSkipsProcessor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	catalog, err := repository.LoadCatalogFile("")
	require.NoError(t, err)
	rec := &paymenttest.Recorder{Err: errors.New("upstream down")}
	breaker := payment.NewBreaker(rec, payment.BreakerConfig{
		Name: "test", ConsecutiveFailures: 1, OpenTimeout: time.Minute, HalfOpenRequests: 1,
	}, zap.NewNop())
	srv := newTestServer(catalog, breaker, Options{PaymentState: breaker.State})

	body := map[string]any{"items": []map[string]any{{"productId": "prod_1", "quantity": 1}}}
	w := doJSON(t, srv, http.MethodPost, "/api/create-payment-intent", body)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 1, rec.Calls())

	w = doJSON(t, srv, http.MethodPost, "/api/create-payment-intent", body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, rec.Calls(), "open breaker must not reach the processor")

	w = doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, "open", decode[map[string]string](t, w)["payment"])
}

func TestCreatePaymentIntent_IdempotencyKeyHeader(t *testing.T) {
	env := setupServer(t, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/create-payment-intent",
		strings.NewReader(`{"items":[{"productId":"prod_3","quantity":1}]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "order-42")
	w := httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "order-42", env.rec.Requests()[0].IdempotencyKey)
}

func TestCreatePaymentIntent_RateLimited(t *testing.T) {
	env := setupServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})
	body := map[string]any{"items": []map[string]any{{"productId": "prod_1", "quantity": 1}}}

	for range 2 {
		w := doJSON(t, env.srv, http.MethodPost, "/api/create-payment-intent", body)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := doJSON(t, env.srv, http.MethodPost, "/api/create-payment-intent", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 2, env.rec.Calls())

	// catalog reads are not limited
	w = doJSON(t, env.srv, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateCart_RateLimited(t *testing.T) {
	env := setupServer(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 1})

	w := doJSON(t, env.srv, http.MethodPost, "/api/cart", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	sid := decode[service.CartView](t, w).SessionID

	w = doJSON(t, env.srv, http.MethodPost, "/api/cart", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests. Please slow down.", errorOf(t, w))

	// the session already handed out keeps working
	w = doJSON(t, env.srv, http.MethodPost, "/api/cart/"+sid+"/items", map[string]any{"productId": "prod_1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreatePaymentIntent_BodyTooLarge(t *testing.T) {
	env := setupServer(t, Options{MaxBodyBytes: 64})
	w := doJSON(t, env.srv, http.MethodPost, "/api/create-payment-intent",
		`{"items":[{"productId":"`+strings.Repeat("x", 128)+`","quantity":1}]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, env.rec.Calls())
}

func TestProductsAndConfig(t *testing.T) {
	env := setupServer(t, Options{})

	w := doJSON(t, env.srv, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 6)

	w = doJSON(t, env.srv, http.MethodGet, "/api/products?max_price=5000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, p := range decode[[]map[string]any](t, w) {
		assert.LessOrEqual(t, p["price"], float64(5000))
	}

	w = doJSON(t, env.srv, http.MethodGet, "/api/products?min_price=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, env.srv, http.MethodGet, "/api/products/prod_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 29999, decode[map[string]any](t, w)["price"])

	w = doJSON(t, env.srv, http.MethodGet, "/api/products/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, env.srv, http.MethodGet, "/api/config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"publishableKey": "pk_test_123", "currency": "usd"}, decode[map[string]string](t, w))

	w = doJSON(t, env.srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCartFlow(t *testing.T) {
	env := setupServer(t, Options{})
	s := env.srv

	w := doJSON(t, s, http.MethodPost, "/api/cart", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	sid := decode[service.CartView](t, w).SessionID
	base := "/api/cart/" + sid

	w = doJSON(t, s, http.MethodPost, base+"/items", map[string]any{"productId": "prod_1"})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodPost, base+"/items", map[string]any{"productId": "prod_1"})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodPost, base+"/items", map[string]any{"productId": "prod_2"})
	require.Equal(t, http.StatusOK, w.Code)
	v := decode[service.CartView](t, w)
	assert.Equal(t, int64(3), v.ItemCount)
	assert.Equal(t, "$649.97", v.SubtotalFormatted)

	w = doJSON(t, s, http.MethodPut, base+"/items/prod_2", map[string]any{"quantity": 4})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(6), decode[service.CartView](t, w).ItemCount)

	w = doJSON(t, s, http.MethodDelete, base+"/items/prod_2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[service.CartView](t, w).Items, 1)

	w = doJSON(t, s, http.MethodPost, base+"/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[service.CartView](t, w).Visible)

	w = doJSON(t, s, http.MethodPost, base+"/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 59998, decode[map[string]any](t, w)["amount"])

	w = doJSON(t, s, http.MethodPost, base+"/complete", map[string]any{"paymentIntent": "pi_test_1"})
	require.Equal(t, http.StatusOK, w.Code)
	v = decode[service.CartView](t, w)
	assert.Empty(t, v.Items)
	assert.False(t, v.Visible)

	w = doJSON(t, s, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, s, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCart_BadRequests(t *testing.T) {
	env := setupServer(t, Options{})
	s := env.srv

	w := doJSON(t, s, http.MethodGet, "/api/cart/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/cart", nil)
	base := "/api/cart/" + decode[service.CartView](t, w).SessionID

	w = doJSON(t, s, http.MethodPost, base+"/items", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, base+"/items", map[string]any{"productId": "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, s, http.MethodPost, base+"/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request: items array is required", errorOf(t, w))

	w = doJSON(t, s, http.MethodPost, base+"/complete", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.rec.Calls())

	w = doJSON(t, s, http.MethodPost, base+"/items", map[string]any{"productId": "prod_1"})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, s, http.MethodPut, base+"/items/prod_1", map[string]any{"quantity": int64(math.MaxInt64)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = doJSON(t, s, http.MethodGet, base, nil)
	assert.Equal(t, int64(1), decode[service.CartView](t, w).ItemCount)
}

func TestRecoveryAndRequestID(t *testing.T) {
	env := setupServer(t, Options{})
	env.srv.Engine().GET("/boom", func(*gin.Context) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(requestIDHeader, "req-abc")
	w := httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-abc", w.Header().Get(requestIDHeader))
	assert.Equal(t, "internal error", errorOf(t, w))
}

func TestParseQuantity(t *testing.T) {
	cases := map[string]int64{
		`3`:      3,
		`-1`:     -1,
		`2.0`:    2,
		`2.5`:    0,
		`"2"`:    0,
		`true`:   0,
		`null`:   0,
		``:       0,
		`1e300`:  quantityCap,
		`-1e300`: -quantityCap,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseQuantity(json.RawMessage(in)), in)
	}
}
