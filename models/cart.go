package models

import "github.com/shopspring/decimal"

// CartLine is one distinct product in the cart.
type CartLine struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewCartLine builds a line for a product with quantity 1.
func NewCartLine(p Product) CartLine {
	return CartLine{
		ID:        p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		UnitPrice: p.UnitPrice,
		Quantity:  1,
	}
}

type CartTotals struct {
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	TotalQuantity int             `json:"totalQuantity"`
}

type CartView struct {
	Items  []CartLine `json:"items"`
	Totals CartTotals `json:"totals"`
}

// AddToCartRequest is the payload for POST /api/cart/items.
type AddToCartRequest struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
}
