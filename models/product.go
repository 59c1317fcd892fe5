package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product mirrors the catalog backend's product resource.
type Product struct {
	ID           int64           `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	ImageURL     string          `json:"imageUrl"`
	Active       bool            `json:"active"`
	UnitsInStock int             `json:"unitsInStock"`
	DateCreated  *time.Time      `json:"dateCreated,omitempty"`
	LastUpdated  *time.Time      `json:"lastUpdated,omitempty"`
}

type ProductCategory struct {
	ID           int64  `json:"id"`
	CategoryName string `json:"categoryName"`
}

// PageInfo is the page metadata returned by the catalog. Number is 0-based.
type PageInfo struct {
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Number        int   `json:"number"`
}

type ProductPage struct {
	Products []Product `json:"products"`
	Page     PageInfo  `json:"page"`
}

// ProductListView is a page of products as the storefront shows it. PageNumber
// is 1-based.
type ProductListView struct {
	Products      []Product `json:"products"`
	PageNumber    int       `json:"pageNumber"`
	PageSize      int       `json:"pageSize"`
	TotalElements int64     `json:"totalElements"`
	CategoryID    int64     `json:"categoryId,omitempty"`
	Keyword       string    `json:"keyword,omitempty"`
	SearchMode    bool      `json:"searchMode"`
}

// ListQuery holds the optional paging parameters of a listing request. Zero
// values mean "keep the current setting".
type ListQuery struct {
	Page int `form:"page" binding:"omitempty,min=1"`
	Size int `form:"size" binding:"omitempty,min=1,max=100"`
}
