package services_test

import (
	"context"
	"errors"
	"testing"

	"storefront-service/models"
	"storefront-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageCall struct {
	category int64
	keyword  string
	page     int
	size     int
}

func recordingCatalog(calls *[]pageCall) *mockCatalog {
	return &mockCatalog{
		byCategoryFn: func(categoryID int64, page, size int) (*models.ProductPage, error) {
			*calls = append(*calls, pageCall{category: categoryID, page: page, size: size})
			return echoPage(42)(categoryID, page, size)
		},
		searchFn: func(keyword string, page, size int) (*models.ProductPage, error) {
			*calls = append(*calls, pageCall{keyword: keyword, page: page, size: size})
			return echoPage(7)(0, page, size)
		},
	}
}

func TestProductListing_Defaults(t *testing.T) {
	var calls []pageCall
	l := services.NewProductListing(recordingCatalog(&calls), 1, 5)

	view, err := l.ListCategory(context.Background(), 0, models.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []pageCall{{category: 1, page: 0, size: 5}}, calls)
	assert.Equal(t, 1, view.PageNumber)
	assert.Equal(t, 5, view.PageSize)
	assert.Equal(t, int64(42), view.TotalElements)
	assert.Equal(t, int64(1), view.CategoryID)
	assert.False(t, view.SearchMode)
}

func TestProductListing_PageIsOneBased(t *testing.T) {
	var calls []pageCall
	l := services.NewProductListing(recordingCatalog(&calls), 1, 5)

	view, err := l.ListCategory(context.Background(), 1, models.ListQuery{Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, calls[0].page)
	assert.Equal(t, 3, view.PageNumber)
}

func TestProductListing_CategoryChangeResetsPage(t *testing.T) {
	var calls []pageCall
	l := services.NewProductListing(recordingCatalog(&calls), 1, 5)
	ctx := context.Background()

	_, err := l.ListCategory(ctx, 1, models.ListQuery{Page: 4})
	require.NoError(t, err)

	view, err := l.ListCategory(ctx, 2, models.ListQuery{Page: 4})
	require.NoError(t, err)
	assert.Equal(t, 0, calls[1].page)
	assert.Equal(t, 1, view.PageNumber)

	// same category keeps the requested page
	_, err = l.ListCategory(ctx, 2, models.ListQuery{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, calls[2].page)
}

func TestProductListing_PageSizeChangeResetsPage(t *testing.T) {
	var calls []pageCall
	l := services.NewProductListing(recordingCatalog(&calls), 1, 5)
	ctx := context.Background()

	_, err := l.ListCategory(ctx, 1, models.ListQuery{Page: 3})
	require.NoError(t, err)

	view, err := l.ListCategory(ctx, 1, models.ListQuery{Page: 3, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, pageCall{category: 1, page: 0, size: 10}, calls[1])
	assert.Equal(t, 10, view.PageSize)

	// the size sticks for later requests
	_, err = l.ListCategory(ctx, 1, models.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 10, calls[2].size)
}

func TestProductListing_SearchKeywordChangeResetsPage(t *testing.T) {
	var calls []pageCall
	l := services.NewProductListing(recordingCatalog(&calls), 1, 5)
	ctx := context.Background()

	_, err := l.Search(ctx, "mug", models.ListQuery{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, calls[0].page)

	_, err = l.Search(ctx, "mug", models.ListQuery{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, calls[1].page)

	view, err := l.Search(ctx, "book", models.ListQuery{Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, calls[2].page)
	assert.True(t, view.SearchMode)
	assert.Equal(t, "book", view.Keyword)
	assert.Equal(t, int64(7), view.TotalElements)
}

func TestProductListing_AdoptsBackendPaging(t *testing.T) {
	catalog := &mockCatalog{byCategoryFn: func(int64, int, int) (*models.ProductPage, error) {
		return &models.ProductPage{
			Products: []models.Product{{ID: 1}},
			Page:     models.PageInfo{Size: 20, TotalElements: 3, Number: 0},
		}, nil
	}}
	l := services.NewProductListing(catalog, 1, 5)

	view, err := l.ListCategory(context.Background(), 1, models.ListQuery{Page: 9})
	require.NoError(t, err)
	assert.Equal(t, 1, view.PageNumber)
	assert.Equal(t, 20, view.PageSize)
	assert.Len(t, view.Products, 1)
}

func TestProductListing_GatewayError(t *testing.T) {
	catalog := &mockCatalog{byCategoryFn: func(int64, int, int) (*models.ProductPage, error) {
		return nil, errors.New("timeout")
	}}
	l := services.NewProductListing(catalog, 1, 5)

	_, err := l.ListCategory(context.Background(), 1, models.ListQuery{})
	assert.ErrorContains(t, err, "timeout")
}
