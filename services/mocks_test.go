package services_test

import (
	"context"
	"sync"
	"time"

	"storefront-service/models"

	"github.com/shopspring/decimal"
)

// ---- mock gateways ----

type mockReference struct {
	mu           sync.Mutex
	countries    []models.Country
	countriesErr error
	regions      map[string][]models.Region
	regionsErr   error
	countryCalls int
	regionCalls  map[string]int
}

func (m *mockReference) Countries(_ context.Context) ([]models.Country, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countryCalls++
	return m.countries, m.countriesErr
}

func (m *mockReference) Regions(_ context.Context, code string) ([]models.Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.regionCalls == nil {
		m.regionCalls = make(map[string]int)
	}
	m.regionCalls[code]++
	return m.regions[code], m.regionsErr
}

type mockOrders struct {
	placeFn func(ctx context.Context, p *models.Purchase) (*models.PurchaseResponse, error)
	calls   int
	last    *models.Purchase
}

func (m *mockOrders) PlaceOrder(ctx context.Context, p *models.Purchase) (*models.PurchaseResponse, error) {
	m.calls++
	m.last = p
	return m.placeFn(ctx, p)
}

type mockCatalog struct {
	byCategoryFn func(categoryID int64, page, size int) (*models.ProductPage, error)
	searchFn     func(keyword string, page, size int) (*models.ProductPage, error)
	products     map[int64]*models.Product
}

func (m *mockCatalog) ProductsByCategory(_ context.Context, categoryID int64, page, size int) (*models.ProductPage, error) {
	return m.byCategoryFn(categoryID, page, size)
}

func (m *mockCatalog) SearchProducts(_ context.Context, keyword string, page, size int) (*models.ProductPage, error) {
	return m.searchFn(keyword, page, size)
}

func (m *mockCatalog) Product(_ context.Context, id int64) (*models.Product, error) {
	return m.products[id], nil
}

func (m *mockCatalog) Categories(_ context.Context) ([]models.ProductCategory, error) {
	return nil, nil
}

type mockEvents struct {
	events []models.OrderPlacedEvent
	err    error
}

func (m *mockEvents) PublishOrderPlaced(_ context.Context, e models.OrderPlacedEvent) error {
	m.events = append(m.events, e)
	return m.err
}

// ---- helpers ----

func fixedClock(year int, month time.Month) func() time.Time {
	return func() time.Time { return time.Date(year, month, 15, 10, 0, 0, 0, time.UTC) }
}

func line(id int64, name, price string) models.CartLine {
	return models.CartLine{ID: id, Name: name, UnitPrice: decimal.RequireFromString(price), Quantity: 1}
}

// echoPage answers with the requested page and size.
func echoPage(total int64) func(int64, int, int) (*models.ProductPage, error) {
	return func(_ int64, page, reqSize int) (*models.ProductPage, error) {
		return &models.ProductPage{
			Products: []models.Product{},
			Page:     models.PageInfo{Size: reqSize, TotalElements: total, Number: page},
		}, nil
	}
}
