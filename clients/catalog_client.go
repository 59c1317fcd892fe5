package clients

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"storefront-service/models"
)

// CatalogGateway is the product/category side of the REST backend.
type CatalogGateway interface {
	ProductsByCategory(ctx context.Context, categoryID int64, page, size int) (*models.ProductPage, error)
	SearchProducts(ctx context.Context, keyword string, page, size int) (*models.ProductPage, error)
	Product(ctx context.Context, id int64) (*models.Product, error)
	Categories(ctx context.Context) ([]models.ProductCategory, error)
}

type getResponseProducts struct {
	Embedded struct {
		Products []models.Product `json:"products"`
	} `json:"_embedded"`
	Page models.PageInfo `json:"page"`
}

type getResponseProductCategory struct {
	Embedded struct {
		ProductCategory []models.ProductCategory `json:"productCategory"`
	} `json:"_embedded"`
}

type CatalogClient struct {
	gateway     *GatewayClient
	productsURL string
	categoryURL string
}

func NewCatalogClient(gateway *GatewayClient, productsURL, categoryURL string) *CatalogClient {
	return &CatalogClient{
		gateway:     gateway,
		productsURL: productsURL,
		categoryURL: categoryURL,
	}
}

// ProductsByCategory fetches one 0-based page of a category.
func (c *CatalogClient) ProductsByCategory(ctx context.Context, categoryID int64, page, size int) (*models.ProductPage, error) {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(categoryID, 10))
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return c.productPage(ctx, c.productsURL+"/search/findByCategoryId", q)
}

// SearchProducts fetches one 0-based page of products whose name contains keyword.
func (c *CatalogClient) SearchProducts(ctx context.Context, keyword string, page, size int) (*models.ProductPage, error) {
	q := url.Values{}
	q.Set("name", keyword)
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return c.productPage(ctx, c.productsURL+"/search/findByNameContaining", q)
}

func (c *CatalogClient) Product(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := c.gateway.GetJSON(ctx, fmt.Sprintf("%s/%d", c.productsURL, id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *CatalogClient) Categories(ctx context.Context) ([]models.ProductCategory, error) {
	var resp getResponseProductCategory
	if err := c.gateway.GetJSON(ctx, c.categoryURL, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Embedded.ProductCategory, nil
}

func (c *CatalogClient) productPage(ctx context.Context, searchURL string, q url.Values) (*models.ProductPage, error) {
	var resp getResponseProducts
	if err := c.gateway.GetJSON(ctx, searchURL, q, &resp); err != nil {
		return nil, err
	}
	products := resp.Embedded.Products
	if products == nil {
		products = []models.Product{}
	}
	return &models.ProductPage{Products: products, Page: resp.Page}, nil
}
