package services

import (
	"errors"
	"sync"

	"storefront-service/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrLineNotFound is returned when decrementing a product that is not in the cart.
var ErrLineNotFound = errors.New("cart line not found")

// CartLedger is the authoritative in-memory list of cart lines. Every mutation
// recomputes the totals and pushes them to all listeners, price first, then
// quantity. Listeners run synchronously under the ledger lock and must not call
// back into the ledger.
type CartLedger struct {
	mu     sync.Mutex
	lines  []models.CartLine
	totals models.CartTotals
	logger *zap.Logger

	nextID            int
	priceListeners    []priceListener
	quantityListeners []quantityListener
}

type priceListener struct {
	id int
	fn func(decimal.Decimal)
}

type quantityListener struct {
	id int
	fn func(int)
}

func NewCartLedger(logger *zap.Logger) *CartLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartLedger{
		totals: models.CartTotals{TotalPrice: decimal.Zero},
		logger: logger,
	}
}

// Add increments the quantity of an existing line with the same id, or appends
// the line with quantity 1.
func (l *CartLedger) Add(line models.CartLine) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.indexOf(line.ID); i >= 0 {
		l.lines[i].Quantity++
	} else {
		line.Quantity = 1
		l.lines = append(l.lines, line)
	}
	l.computeTotals()
}

// Decrement lowers the quantity of a line by one and removes it at zero.
func (l *CartLedger) Decrement(id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return ErrLineNotFound
	}
	l.lines[i].Quantity--
	if l.lines[i].Quantity == 0 {
		l.removeAt(i)
	}
	l.computeTotals()
	return nil
}

// Remove drops a line regardless of quantity. It reports whether a line was
// removed; totals are only rebroadcast when it was.
func (l *CartLedger) Remove(id int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	l.removeAt(i)
	l.computeTotals()
	return true
}

// Clear empties the ledger and broadcasts zero totals.
func (l *CartLedger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = nil
	l.computeTotals()
}

// Restore replaces the ledger contents with a persisted snapshot.
func (l *CartLedger) Restore(lines []models.CartLine) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lines = make([]models.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		l.lines = append(l.lines, line)
	}
	l.computeTotals()
}

// Lines returns a copy of the current lines in insertion order.
func (l *CartLedger) Lines() []models.CartLine {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.CartLine, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l *CartLedger) Totals() models.CartTotals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals
}

// OnTotalPrice registers fn for price updates. fn is called immediately with
// the latest total. The returned func unregisters it.
func (l *CartLedger) OnTotalPrice(fn func(decimal.Decimal)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	l.priceListeners = append(l.priceListeners, priceListener{id: id, fn: fn})
	fn(l.totals.TotalPrice)

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, pl := range l.priceListeners {
			if pl.id == id {
				l.priceListeners = append(l.priceListeners[:i], l.priceListeners[i+1:]...)
				return
			}
		}
	}
}

// OnTotalQuantity registers fn for quantity updates, with the same replay
// semantics as OnTotalPrice.
func (l *CartLedger) OnTotalQuantity(fn func(int)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	l.quantityListeners = append(l.quantityListeners, quantityListener{id: id, fn: fn})
	fn(l.totals.TotalQuantity)

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, ql := range l.quantityListeners {
			if ql.id == id {
				l.quantityListeners = append(l.quantityListeners[:i], l.quantityListeners[i+1:]...)
				return
			}
		}
	}
}

func (l *CartLedger) indexOf(id int64) int {
	for i := range l.lines {
		if l.lines[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *CartLedger) removeAt(i int) {
	l.lines = append(l.lines[:i], l.lines[i+1:]...)
}

// computeTotals must be called with l.mu held.
func (l *CartLedger) computeTotals() {
	price := decimal.Zero
	quantity := 0
	for _, line := range l.lines {
		price = price.Add(line.Subtotal())
		quantity += line.Quantity
	}
	l.totals = models.CartTotals{TotalPrice: price, TotalQuantity: quantity}

	for _, pl := range l.priceListeners {
		pl.fn(price)
	}
	for _, ql := range l.quantityListeners {
		ql.fn(quantity)
	}

	l.logCartData()
}

func (l *CartLedger) logCartData() {
	if ce := l.logger.Check(zap.DebugLevel, "cart contents"); ce != nil {
		items := make([]zap.Field, 0, len(l.lines)+2)
		for _, line := range l.lines {
			items = append(items, zap.Dict(line.Name,
				zap.Int("quantity", line.Quantity),
				zap.String("unit_price", line.UnitPrice.StringFixed(2)),
				zap.String("subtotal", line.Subtotal().StringFixed(2)),
			))
		}
		items = append(items,
			zap.String("total_price", l.totals.TotalPrice.StringFixed(2)),
			zap.Int("total_quantity", l.totals.TotalQuantity),
		)
		ce.Write(items...)
	}
}
