package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront-service/clients"
	"storefront-service/events"
	"storefront-service/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	GroupShipping = "shippingAddress"
	GroupBilling  = "billingAddress"

	// ProductsRedirect is where the client goes after a placed order.
	ProductsRedirect = "/products"

	creditCardYearSpan = 10
)

var (
	ErrInvalidDraft        = errors.New("checkout form is invalid")
	ErrSubmitInProgress    = errors.New("order submission already in progress")
	ErrUnknownField        = errors.New("unknown or non-text checkout field")
	ErrUnknownGroup        = errors.New("unknown address group")
	ErrInvalidOption       = errors.New("value is not one of the offered options")
	ErrUnresolvedSelection = errors.New("selected country or region cannot be resolved")
)

// ValidationError carries the per-field state of a draft that failed validation.
type ValidationError struct {
	Fields map[string]models.FieldState
}

func (e *ValidationError) Error() string { return ErrInvalidDraft.Error() }

func (e *ValidationError) Unwrap() error { return ErrInvalidDraft }

// CheckoutDeps are the collaborators of a checkout form.
type CheckoutDeps struct {
	Ledger    *CartLedger
	Reference clients.ReferenceGateway
	Orders    clients.OrderGateway
	Events    events.OrderEventPublisher // optional
	Validator *DraftValidator
	Clock     func() time.Time
	Logger    *zap.Logger
}

// CheckoutForm assembles a checkout draft for one session: it tracks field
// values and touched flags, keeps the derived option lists in sync and turns a
// valid draft into a placed order.
type CheckoutForm struct {
	deps CheckoutDeps

	mu              sync.Mutex
	draft           models.CheckoutDraft
	touched         map[string]bool
	countries       []models.Country
	shippingRegions []models.Region
	billingRegions  []models.Region
	years           []int
	months          []int
	copyShipping    bool
	submitting      bool

	// totals is written by ledger listeners, which run under the ledger lock
	// and therefore must never take mu.
	totalsMu sync.Mutex
	totals   models.CartTotals

	unsubscribe []func()
}

func NewCheckoutForm(deps CheckoutDeps) *CheckoutForm {
	if deps.Validator == nil {
		deps.Validator = NewDraftValidator()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	f := &CheckoutForm{deps: deps, touched: make(map[string]bool)}
	now := deps.Clock()
	f.years = creditCardYears(now)
	f.months = creditCardMonths(int(now.Month()))

	f.unsubscribe = append(f.unsubscribe,
		deps.Ledger.OnTotalPrice(func(p decimal.Decimal) {
			f.totalsMu.Lock()
			f.totals.TotalPrice = p
			f.totalsMu.Unlock()
		}),
		deps.Ledger.OnTotalQuantity(func(q int) {
			f.totalsMu.Lock()
			f.totals.TotalQuantity = q
			f.totalsMu.Unlock()
		}),
	)
	return f
}

// Open loads the country list. It is called when the checkout view is entered
// and is a no-op once countries are loaded.
func (f *CheckoutForm) Open(ctx context.Context) error {
	f.mu.Lock()
	loaded := f.countries != nil
	f.mu.Unlock()
	if loaded {
		return nil
	}

	countries, err := f.deps.Reference.Countries(ctx)
	if err != nil {
		return fmt.Errorf("load countries: %w", err)
	}
	if countries == nil {
		countries = []models.Country{}
	}

	f.mu.Lock()
	f.countries = countries
	f.mu.Unlock()
	return nil
}

// Close detaches the form from the cart ledger.
func (f *CheckoutForm) Close() {
	for _, unsub := range f.unsubscribe {
		unsub()
	}
	f.unsubscribe = nil
}

// SetField sets a free-text field or the expiration month and marks it touched.
func (f *CheckoutForm) SetField(path, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submitting {
		return ErrSubmitInProgress
	}

	d := &f.draft
	switch path {
	case "customer.firstName":
		d.Customer.FirstName = value
	case "customer.lastName":
		d.Customer.LastName = value
	case "customer.email":
		d.Customer.Email = value
	case "shippingAddress.street":
		d.ShippingAddress.Street = value
	case "shippingAddress.city":
		d.ShippingAddress.City = value
	case "shippingAddress.zipCode":
		d.ShippingAddress.ZipCode = value
	case "billingAddress.street":
		d.BillingAddress.Street = value
	case "billingAddress.city":
		d.BillingAddress.City = value
	case "billingAddress.zipCode":
		d.BillingAddress.ZipCode = value
	case "creditCard.cardType":
		d.CreditCard.CardType = value
	case "creditCard.nameOnCard":
		d.CreditCard.NameOnCard = value
	case "creditCard.cardNumber":
		d.CreditCard.CardNumber = value
	case "creditCard.securityCode":
		d.CreditCard.SecurityCode = value
	case "creditCard.expirationMonth":
		month, err := strconv.Atoi(value)
		if err != nil || !containsInt(f.months, month) {
			return fmt.Errorf("%s=%q: %w", path, value, ErrInvalidOption)
		}
		d.CreditCard.ExpirationMonth = month
	default:
		return fmt.Errorf("%s: %w", path, ErrUnknownField)
	}
	f.touched[path] = true
	return nil
}

// SelectCountry sets the country of an address group, reloads that group's
// region options and selects the first region (or none when the list is
// empty). Countries are loaded first if the form was never opened. Nothing
// changes when either lookup fails.
func (f *CheckoutForm) SelectCountry(ctx context.Context, group, code string) error {
	if err := f.Open(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInProgress
	}
	if _, err := f.address(group); err != nil {
		f.mu.Unlock()
		return err
	}
	if countryByCode(f.countries, code) == nil {
		f.mu.Unlock()
		return fmt.Errorf("country %q: %w", code, ErrInvalidOption)
	}
	f.mu.Unlock()

	regions, err := f.deps.Reference.Regions(ctx, code)
	if err != nil {
		return fmt.Errorf("load regions for %s: %w", code, err)
	}
	if regions == nil {
		regions = []models.Region{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	addr, _ := f.address(group)
	addr.Country = code
	addr.State = ""
	if len(regions) > 0 {
		addr.State = strconv.FormatInt(regions[0].ID, 10)
	}
	if group == GroupShipping {
		f.shippingRegions = regions
	} else {
		f.billingRegions = regions
	}
	f.touched[group+".country"] = true
	return nil
}

// SelectRegion picks one of the group's loaded region options.
func (f *CheckoutForm) SelectRegion(group string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submitting {
		return ErrSubmitInProgress
	}
	addr, err := f.address(group)
	if err != nil {
		return err
	}
	if regionByID(f.regions(group), id) == nil {
		return fmt.Errorf("region %d: %w", id, ErrInvalidOption)
	}
	addr.State = strconv.FormatInt(id, 10)
	f.touched[group+".state"] = true
	return nil
}

// SetCopyShippingToBilling copies the current shipping address and its region
// options into billing when enabled. Later shipping edits are not propagated.
// Disabling resets billing to empty.
func (f *CheckoutForm) SetCopyShippingToBilling(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submitting {
		return ErrSubmitInProgress
	}
	f.copyShipping = enabled
	if enabled {
		f.draft.BillingAddress = f.draft.ShippingAddress
		f.billingRegions = append([]models.Region(nil), f.shippingRegions...)
		return nil
	}
	f.draft.BillingAddress = models.DraftAddress{}
	f.billingRegions = nil
	for _, path := range draftFieldPaths {
		if strings.HasPrefix(path, GroupBilling+".") {
			delete(f.touched, path)
		}
	}
	return nil
}

// SelectExpirationYear sets the card expiration year and recomputes the
// month options. A previously chosen month that is no longer offered is
// cleared.
func (f *CheckoutForm) SelectExpirationYear(year int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submitting {
		return ErrSubmitInProgress
	}
	if !containsInt(f.years, year) {
		return fmt.Errorf("year %d: %w", year, ErrInvalidOption)
	}
	f.draft.CreditCard.ExpirationYear = year

	now := f.deps.Clock()
	startMonth := 1
	if year == now.Year() {
		startMonth = int(now.Month())
	}
	f.months = creditCardMonths(startMonth)
	if m := f.draft.CreditCard.ExpirationMonth; m != 0 && !containsInt(f.months, m) {
		f.draft.CreditCard.ExpirationMonth = 0
	}
	f.touched["creditCard.expirationYear"] = true
	return nil
}

// Validate reports the state of every field and whether the draft is valid.
func (f *CheckoutForm) Validate() (map[string]models.FieldState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deps.Validator.FieldStates(&f.draft, f.touched)
}

// View snapshots everything the checkout page renders.
func (f *CheckoutForm) View() models.CheckoutView {
	f.mu.Lock()
	defer f.mu.Unlock()

	fields, valid := f.deps.Validator.FieldStates(&f.draft, f.touched)
	return models.CheckoutView{
		Draft:                 f.draft,
		Fields:                fields,
		Valid:                 valid,
		Totals:                f.currentTotals(),
		Countries:             nonNilCountries(f.countries),
		ShippingRegions:       nonNilRegions(f.shippingRegions),
		BillingRegions:        nonNilRegions(f.billingRegions),
		CreditCardYears:       append([]int(nil), f.years...),
		CreditCardMonths:      append([]int(nil), f.months...),
		CopyShippingToBilling: f.copyShipping,
	}
}

// Submit places the order. An invalid draft marks every field touched and
// returns a *ValidationError without contacting the backend. On success the
// cart is cleared and the draft reset; on failure nothing changes.
func (f *CheckoutForm) Submit(ctx context.Context) (*models.CheckoutResult, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmitInProgress
	}

	fields, valid := f.deps.Validator.FieldStates(&f.draft, f.touched)
	if !valid {
		for _, path := range draftFieldPaths {
			f.touched[path] = true
			st := fields[path]
			st.Touched = true
			fields[path] = st
		}
		f.mu.Unlock()
		return nil, &ValidationError{Fields: fields}
	}

	purchase, err := f.assemblePurchase()
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}
	f.submitting = true
	f.mu.Unlock()

	resp, err := f.deps.Orders.PlaceOrder(ctx, purchase)
	if err != nil {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
		f.deps.Logger.Warn("order submission failed", zap.Error(err))
		return nil, err
	}

	f.deps.Logger.Info("order placed",
		zap.String("order_tracking_number", resp.OrderTrackingNumber),
		zap.String("total_price", purchase.Order.TotalPrice.StringFixed(2)),
		zap.Int("total_quantity", purchase.Order.TotalQuantity),
	)
	if f.deps.Events != nil {
		event := events.NewOrderPlacedEvent(purchase, resp.OrderTrackingNumber, f.deps.Clock())
		if err := f.deps.Events.PublishOrderPlaced(ctx, event); err != nil {
			f.deps.Logger.Warn("order event publish failed",
				zap.String("order_tracking_number", resp.OrderTrackingNumber), zap.Error(err))
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.deps.Ledger.Clear()
	f.resetLocked()
	f.submitting = false

	return &models.CheckoutResult{
		OrderTrackingNumber: resp.OrderTrackingNumber,
		Redirect:            ProductsRedirect,
	}, nil
}

// Reset discards the draft. Loaded countries are kept.
func (f *CheckoutForm) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
}

func (f *CheckoutForm) resetLocked() {
	f.draft = models.CheckoutDraft{}
	f.touched = make(map[string]bool)
	f.shippingRegions = nil
	f.billingRegions = nil
	f.copyShipping = false
	now := f.deps.Clock()
	f.years = creditCardYears(now)
	f.months = creditCardMonths(int(now.Month()))
}

// assemblePurchase must be called with f.mu held.
func (f *CheckoutForm) assemblePurchase() (*models.Purchase, error) {
	shipping, err := f.resolveAddress(f.draft.ShippingAddress, f.shippingRegions)
	if err != nil {
		return nil, fmt.Errorf("shipping address: %w", err)
	}
	billing, err := f.resolveAddress(f.draft.BillingAddress, f.billingRegions)
	if err != nil {
		return nil, fmt.Errorf("billing address: %w", err)
	}

	totals := f.currentTotals()
	lines := f.deps.Ledger.Lines()
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			ProductID: line.ID,
			Name:      line.Name,
			ImageURL:  line.ImageURL,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}

	return &models.Purchase{
		Customer:        f.draft.Customer,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		Order: models.OrderSummary{
			TotalPrice:    totals.TotalPrice,
			TotalQuantity: totals.TotalQuantity,
		},
		OrderItems: items,
	}, nil
}

func (f *CheckoutForm) resolveAddress(addr models.DraftAddress, regions []models.Region) (models.Address, error) {
	country := countryByCode(f.countries, addr.Country)
	if country == nil {
		return models.Address{}, fmt.Errorf("country %q: %w", addr.Country, ErrUnresolvedSelection)
	}
	id, err := strconv.ParseInt(addr.State, 10, 64)
	if err != nil {
		return models.Address{}, fmt.Errorf("region %q: %w", addr.State, ErrUnresolvedSelection)
	}
	region := regionByID(regions, id)
	if region == nil {
		return models.Address{}, fmt.Errorf("region %d: %w", id, ErrUnresolvedSelection)
	}
	return models.Address{
		Street:  addr.Street,
		City:    addr.City,
		State:   region.Name,
		Country: country.Name,
		ZipCode: addr.ZipCode,
	}, nil
}

func (f *CheckoutForm) currentTotals() models.CartTotals {
	f.totalsMu.Lock()
	defer f.totalsMu.Unlock()
	return f.totals
}

func (f *CheckoutForm) address(group string) (*models.DraftAddress, error) {
	switch group {
	case GroupShipping:
		return &f.draft.ShippingAddress, nil
	case GroupBilling:
		return &f.draft.BillingAddress, nil
	default:
		return nil, fmt.Errorf("%q: %w", group, ErrUnknownGroup)
	}
}

func (f *CheckoutForm) regions(group string) []models.Region {
	if group == GroupShipping {
		return f.shippingRegions
	}
	return f.billingRegions
}

func creditCardYears(now time.Time) []int {
	years := make([]int, 0, creditCardYearSpan+1)
	for y := now.Year(); y <= now.Year()+creditCardYearSpan; y++ {
		years = append(years, y)
	}
	return years
}

func creditCardMonths(startMonth int) []int {
	months := make([]int, 0, 12)
	for m := startMonth; m <= 12; m++ {
		months = append(months, m)
	}
	return months
}

func countryByCode(countries []models.Country, code string) *models.Country {
	for i := range countries {
		if countries[i].Code == code {
			return &countries[i]
		}
	}
	return nil
}

func regionByID(regions []models.Region, id int64) *models.Region {
	for i := range regions {
		if regions[i].ID == id {
			return &regions[i]
		}
	}
	return nil
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func nonNilCountries(c []models.Country) []models.Country {
	out := make([]models.Country, len(c))
	copy(out, c)
	return out
}

func nonNilRegions(r []models.Region) []models.Region {
	out := make([]models.Region, len(r))
	copy(out, r)
	return out
}
