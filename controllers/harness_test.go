package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront-service/clients"
	"storefront-service/controllers"
	"storefront-service/database"
	apperrors "storefront-service/errors"
	"storefront-service/identity"
	"storefront-service/metrics"
	"storefront-service/middleware"
	"storefront-service/models"
	"storefront-service/routes"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testIssuer   = "https://id.example.com/oauth2/default"
	testClientID = "storefront"
	testSecret   = "test-signing-secret"
)

// ---- fakes ----

type fakeCatalog struct {
	mu            sync.Mutex
	products      map[int64]models.Product
	categories    []models.ProductCategory
	categoriesErr error
	calls         []string
}

func (f *fakeCatalog) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCatalog) page(page, size int) *models.ProductPage {
	return &models.ProductPage{
		Products: []models.Product{{ID: 1, Name: "Mug", UnitPrice: decimal.RequireFromString("10.50")}},
		Page:     models.PageInfo{Number: page, Size: size, TotalElements: 42, TotalPages: 42/size + 1},
	}
}

func (f *fakeCatalog) ProductsByCategory(_ context.Context, categoryID int64, page, size int) (*models.ProductPage, error) {
	f.record("category")
	return f.page(page, size), nil
}

func (f *fakeCatalog) SearchProducts(_ context.Context, keyword string, page, size int) (*models.ProductPage, error) {
	f.record("search:" + keyword)
	return f.page(page, size), nil
}

func (f *fakeCatalog) Product(_ context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, &clients.GatewayError{Method: http.MethodGet, URL: "/products", StatusCode: http.StatusNotFound}
	}
	return &p, nil
}

func (f *fakeCatalog) Categories(_ context.Context) ([]models.ProductCategory, error) {
	return f.categories, f.categoriesErr
}

type fakeReference struct{}

func (fakeReference) Countries(_ context.Context) ([]models.Country, error) {
	return []models.Country{{ID: 1, Code: "US", Name: "United States"}, {ID: 2, Code: "CA", Name: "Canada"}}, nil
}

func (fakeReference) Regions(_ context.Context, code string) ([]models.Region, error) {
	switch code {
	case "US":
		return []models.Region{{ID: 10, Name: "Alabama"}, {ID: 11, Name: "Alaska"}}, nil
	case "CA":
		return []models.Region{{ID: 20, Name: "Alberta"}}, nil
	}
	return nil, nil
}

type fakeOrders struct {
	mu    sync.Mutex
	calls int
	last  *models.Purchase
	err   error

	// entered receives once per call; the call then waits for release.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeOrders) PlaceOrder(_ context.Context, p *models.Purchase) (*models.PurchaseResponse, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return &models.PurchaseResponse{OrderTrackingNumber: "TRACK-1"}, nil
}

func (f *fakeOrders) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// ---- server harness ----

type harness struct {
	t       *testing.T
	router  *gin.Engine
	store   *services.SessionStore
	catalog *fakeCatalog
	orders  *fakeOrders
	metrics *metrics.ServerMetrics
	cookie  *http.Cookie
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	provider    *identity.Provider
	idempotency *database.IdempotencyRepository
}

func withProvider(t *testing.T) harnessOption {
	return func(c *harnessConfig) {
		p, err := identity.NewProvider(identity.Config{
			Issuer:        testIssuer,
			ClientID:      testClientID,
			RedirectURI:   "http://localhost:8095/login/callback",
			SigningSecret: testSecret,
		})
		require.NoError(t, err)
		c.provider = p
	}
}

func withIdempotency(repo *database.IdempotencyRepository) harnessOption {
	return func(c *harnessConfig) { c.idempotency = repo }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	var cfg harnessConfig
	for _, o := range opts {
		o(&cfg)
	}

	catalog := &fakeCatalog{
		products: map[int64]models.Product{
			1: {ID: 1, Name: "Mug", UnitPrice: decimal.RequireFromString("10.50"), ImageURL: "mug.png"},
			2: {ID: 2, Name: "Pen", UnitPrice: decimal.RequireFromString("1.25")},
		},
		categories: []models.ProductCategory{{ID: 1, CategoryName: "Books"}},
	}
	orders := &fakeOrders{}
	store := services.NewSessionStore(services.SessionDeps{
		Catalog:         catalog,
		DefaultCategory: 1,
		DefaultPageSize: 5,
		Checkout: services.CheckoutDeps{
			Reference: fakeReference{},
			Orders:    orders,
			Clock:     func() time.Time { return time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC) },
		},
		TTL: time.Hour,
	})
	m := metrics.NewServerMetrics(nil)
	cookie := middleware.SessionOptions{MaxAge: time.Hour}

	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	routes.RegisterRoutes(r, routes.Controllers{
		Catalog:  controllers.NewCatalogController(catalog),
		Cart:     controllers.NewCartController(store, catalog, m),
		Checkout: controllers.NewCheckoutController(store, cfg.idempotency, m, nil),
		Auth:     controllers.NewAuthController(cfg.provider, store, cookie, nil),
	}, routes.Options{Sessions: store, Cookie: cookie, Metrics: m})

	return &harness{t: t, router: r, store: store, catalog: catalog, orders: orders, metrics: m}
}

// do sends a request with the harness's session cookie and keeps any cookie
// the server issues.
func (h *harness) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			h.cookie = c
		}
	}
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
