package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/basket/internal/domain"
	"github.com/dukerupert/basket/internal/handler/api"
	"github.com/dukerupert/basket/internal/middleware"
	"github.com/dukerupert/basket/internal/router"
)

type stubTokens map[string]*domain.User

func (s stubTokens) Parse(token string) (*domain.User, error) {
	if user, ok := s[token]; ok {
		return user, nil
	}
	return nil, errors.New("token is malformed")
}

type stubCarts struct{ domain.CartService }

func (stubCarts) GetCart(ctx context.Context) (*domain.CartView, error) {
	return &domain.CartView{UserID: domain.UserFromContext(ctx).ID}, nil
}

type stubProducts struct{ domain.ProductService }

func (stubProducts) ListProducts(context.Context, domain.ProductFilter) (*domain.ProductPage, error) {
	return &domain.ProductPage{Page: 1, Products: []domain.Product{}}, nil
}

func (stubProducts) CreateProduct(_ context.Context, params domain.ProductParams) (*domain.Product, error) {
	return &domain.Product{ID: uuid.New(), Name: params.Name}, nil
}

type stubUsers struct{ domain.UserService }

func (stubUsers) Login(context.Context, string, string) (*domain.AuthResult, error) {
	return &domain.AuthResult{Token: "signed"}, nil
}

func (stubUsers) ListUsers(context.Context) ([]domain.Account, error) {
	return []domain.Account{}, nil
}

type stubOrders struct{ domain.OrderService }

func (stubOrders) ListMyOrders(context.Context) ([]domain.Order, error) {
	return []domain.Order{}, nil
}

func newAPI(t *testing.T, authLimit middleware.RateLimiterConfig) *echo.Echo {
	t.Helper()

	tokens := stubTokens{
		"user-token":  {ID: uuid.New(), Email: "ravi@example.com", Role: domain.RoleUser},
		"admin-token": {ID: uuid.New(), Email: "admin@example.com", Role: domain.RoleAdmin},
	}

	e := router.New(router.Options{Logger: zerolog.Nop()}, middleware.RequestID())
	RegisterAPIRoutes(e, APIDeps{
		CartHandler:    api.NewCartHandler(stubCarts{}),
		OrderHandler:   api.NewOrderHandler(stubOrders{}),
		PaymentHandler: api.NewPaymentHandler(nil),
		ProductHandler: api.NewProductHandler(stubProducts{}),
		UserHandler:    api.NewUserHandler(stubUsers{}),
		Tokens:         tokens,
		RateLimit:      middleware.RateLimiterConfig{RequestsPerSecond: 1000, BurstSize: 1000},
		AuthRateLimit:  authLimit,
	})
	RegisterOpsRoutes(e, OpsDeps{Metrics: middleware.NewMetrics("routes_test", prometheus.NewRegistry())})
	return e
}

func request(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRegisterAPIRoutes_Access(t *testing.T) {
	e := newAPI(t, middleware.RateLimiterConfig{RequestsPerSecond: 1000, BurstSize: 1000})

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{name: "catalog is public", method: http.MethodGet, path: "/api/products", want: http.StatusOK},
		{name: "cart requires token", method: http.MethodGet, path: "/api/cart", want: http.StatusUnauthorized},
		{name: "cart rejects bad token", method: http.MethodGet, path: "/api/cart", token: "forged", want: http.StatusUnauthorized},
		{name: "cart for user", method: http.MethodGet, path: "/api/cart", token: "user-token", want: http.StatusOK},
		{name: "my orders before order id", method: http.MethodGet, path: "/api/orders/myorders", token: "user-token", want: http.StatusOK},
		{name: "user list is admin only", method: http.MethodGet, path: "/api/users", token: "user-token", want: http.StatusForbidden},
		{name: "user list for admin", method: http.MethodGet, path: "/api/users", token: "admin-token", want: http.StatusOK},
		{name: "create product is admin only", method: http.MethodPost, path: "/api/products", token: "user-token", body: `{"name":"Kiwi","category":"Fruits"}`, want: http.StatusForbidden},
		{name: "create product for admin", method: http.MethodPost, path: "/api/products", token: "admin-token", body: `{"name":"Kiwi","category":"Fruits"}`, want: http.StatusCreated},
		{name: "review requires token", method: http.MethodPost, path: "/api/products/" + uuid.NewString() + "/reviews", body: `{"rating":5}`, want: http.StatusUnauthorized},
		{name: "logout requires token", method: http.MethodPost, path: "/api/users/logout", want: http.StatusUnauthorized},
		{name: "unknown api route", method: http.MethodGet, path: "/api/nothing", want: http.StatusNotFound},
		{name: "health", method: http.MethodGet, path: "/health", want: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(e, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRegisterAPIRoutes_LoginRateLimit(t *testing.T) {
	e := newAPI(t, middleware.RateLimiterConfig{RequestsPerSecond: 0.001, BurstSize: 2})
	body := `{"email":"ravi@example.com","password":"s3cretpass"}`

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, request(e, http.MethodPost, "/api/users/login", "", body).Code)
	}
	rec := request(e, http.MethodPost, "/api/users/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"rate_limit"`)

	assert.Equal(t, http.StatusOK, request(e, http.MethodGet, "/api/products", "", "").Code, "catalog uses the default limit")
}

func TestRegisterOpsRoutes_Health(t *testing.T) {
	e := router.New(router.Options{Logger: zerolog.Nop()})
	RegisterOpsRoutes(e, OpsDeps{Ready: func(context.Context) error { return errors.New("database unreachable") }})

	rec := request(e, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, http.StatusNotFound, request(e, http.MethodGet, "/metrics", "", "").Code)
}
