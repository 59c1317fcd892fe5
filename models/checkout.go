package models

import "github.com/shopspring/decimal"

// CheckoutDraft is the not-yet-submitted checkout form. Country fields hold a
// country code and State fields hold a region id.
type CheckoutDraft struct {
	Customer        Customer     `json:"customer"`
	ShippingAddress DraftAddress `json:"shippingAddress"`
	BillingAddress  DraftAddress `json:"billingAddress"`
	CreditCard      CreditCard   `json:"creditCard"`
}

type Customer struct {
	FirstName string `json:"firstName" validate:"required,notblank,min=2"`
	LastName  string `json:"lastName" validate:"required,notblank,min=2"`
	Email     string `json:"email" validate:"required,email"`
}

type DraftAddress struct {
	Street  string `json:"street" validate:"required,notblank"`
	City    string `json:"city" validate:"required,notblank"`
	State   string `json:"state" validate:"required"`
	Country string `json:"country" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required,notblank"`
}

// CreditCard is only format-checked; it is never sent to the order backend.
type CreditCard struct {
	CardType        string `json:"cardType" validate:"required"`
	NameOnCard      string `json:"nameOnCard" validate:"required,notblank,min=2"`
	CardNumber      string `json:"cardNumber" validate:"required,digits=16"`
	SecurityCode    string `json:"securityCode" validate:"required,digits=3"`
	ExpirationMonth int    `json:"expirationMonth"`
	ExpirationYear  int    `json:"expirationYear"`
}

// FieldState is the validity of a single draft field.
type FieldState struct {
	Valid   bool     `json:"valid"`
	Touched bool     `json:"touched"`
	Errors  []string `json:"errors,omitempty"`
}

// Address is the submitted form of an address: state and country are display names.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode"`
}

type OrderSummary struct {
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	TotalQuantity int             `json:"totalQuantity"`
}

type OrderItem struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// Purchase is the order submission payload.
type Purchase struct {
	Customer        Customer     `json:"customer"`
	ShippingAddress Address      `json:"shippingAddress"`
	BillingAddress  Address      `json:"billingAddress"`
	Order           OrderSummary `json:"order"`
	OrderItems      []OrderItem  `json:"orderItems"`
}

type PurchaseResponse struct {
	OrderTrackingNumber string `json:"orderTrackingNumber"`
}

// OrderPlacedEvent is published after the backend accepts a purchase.
type OrderPlacedEvent struct {
	EventID             string          `json:"event_id"`
	EventType           string          `json:"event_type"`
	OrderTrackingNumber string          `json:"order_tracking_number"`
	CustomerEmail       string          `json:"customer_email"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	TotalQuantity       int             `json:"total_quantity"`
	Timestamp           string          `json:"timestamp"`
}

// CheckoutView is everything a checkout page renders.
type CheckoutView struct {
	Draft                 CheckoutDraft         `json:"draft"`
	Fields                map[string]FieldState `json:"fields"`
	Valid                 bool                  `json:"valid"`
	Totals                CartTotals            `json:"totals"`
	Countries             []Country             `json:"countries"`
	ShippingRegions       []Region              `json:"shippingRegions"`
	BillingRegions        []Region              `json:"billingRegions"`
	CreditCardYears       []int                 `json:"creditCardYears"`
	CreditCardMonths      []int                 `json:"creditCardMonths"`
	CopyShippingToBilling bool                  `json:"copyShippingToBilling"`
}

// CheckoutResult is returned after a successful submission.
type CheckoutResult struct {
	OrderTrackingNumber string `json:"orderTrackingNumber"`
	Redirect            string `json:"redirect"`
}

type SelectCountryRequest struct {
	Code string `json:"code" binding:"required"`
}

type SelectRegionRequest struct {
	ID int64 `json:"id" binding:"required"`
}

type CopyShippingRequest struct {
	Enabled bool `json:"enabled"`
}

type ExpirationYearRequest struct {
	Year int `json:"year" binding:"required"`
}

type ExpirationMonthRequest struct {
	Month int `json:"month" binding:"required,min=1,max=12"`
}
