package services

import (
	"context"
	"sync"

	"storefront-service/clients"
	"storefront-service/models"
)

// ProductListing keeps one session's position in the catalog. Pages are
// 1-based here and 0-based at the catalog gateway.
type ProductListing struct {
	catalog         clients.CatalogGateway
	defaultCategory int64

	mu                 sync.Mutex
	currentCategoryID  int64
	previousCategoryID int64
	previousKeyword    string
	searchMode         bool
	pageNumber         int
	pageSize           int
	totalElements      int64
}

func NewProductListing(catalog clients.CatalogGateway, defaultCategory int64, defaultPageSize int) *ProductListing {
	if defaultCategory <= 0 {
		defaultCategory = 1
	}
	if defaultPageSize <= 0 {
		defaultPageSize = 5
	}
	return &ProductListing{
		catalog:            catalog,
		defaultCategory:    defaultCategory,
		currentCategoryID:  defaultCategory,
		previousCategoryID: defaultCategory,
		pageNumber:         1,
		pageSize:           defaultPageSize,
	}
}

// ListCategory lists a category. categoryID 0 selects the default category.
// Switching category or page size starts again at page 1.
func (l *ProductListing) ListCategory(ctx context.Context, categoryID int64, q models.ListQuery) (*models.ProductListView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if categoryID <= 0 {
		categoryID = l.defaultCategory
	}
	l.searchMode = false
	l.currentCategoryID = categoryID
	l.applyQuery(q)
	if l.previousCategoryID != categoryID {
		l.pageNumber = 1
	}
	l.previousCategoryID = categoryID

	page, err := l.catalog.ProductsByCategory(ctx, categoryID, l.pageNumber-1, l.pageSize)
	if err != nil {
		return nil, err
	}
	return l.processResult(page), nil
}

// Search lists products whose name contains keyword. A new keyword or page
// size starts again at page 1.
func (l *ProductListing) Search(ctx context.Context, keyword string, q models.ListQuery) (*models.ProductListView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.searchMode = true
	l.applyQuery(q)
	if l.previousKeyword != keyword {
		l.pageNumber = 1
	}
	l.previousKeyword = keyword

	page, err := l.catalog.SearchProducts(ctx, keyword, l.pageNumber-1, l.pageSize)
	if err != nil {
		return nil, err
	}
	return l.processResult(page), nil
}

// applyQuery must be called with l.mu held.
func (l *ProductListing) applyQuery(q models.ListQuery) {
	if q.Page > 0 {
		l.pageNumber = q.Page
	}
	if q.Size > 0 && q.Size != l.pageSize {
		l.pageSize = q.Size
		l.pageNumber = 1
	}
}

// processResult adopts the paging state reported by the catalog.
func (l *ProductListing) processResult(page *models.ProductPage) *models.ProductListView {
	l.pageNumber = page.Page.Number + 1
	if page.Page.Size > 0 {
		l.pageSize = page.Page.Size
	}
	l.totalElements = page.Page.TotalElements

	view := &models.ProductListView{
		Products:      page.Products,
		PageNumber:    l.pageNumber,
		PageSize:      l.pageSize,
		TotalElements: l.totalElements,
		SearchMode:    l.searchMode,
	}
	if l.searchMode {
		view.Keyword = l.previousKeyword
	} else {
		view.CategoryID = l.currentCategoryID
	}
	return view
}
