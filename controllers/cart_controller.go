package controllers

import (
	"net/http"

	"storefront-service/clients"
	"storefront-service/logger"
	"storefront-service/metrics"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultStreamBuffer = 16

type CartController struct {
	store        *services.SessionStore
	catalog      clients.CatalogGateway
	metrics      *metrics.ServerMetrics
	streamBuffer int
}

// NewCartController wires the cart endpoints. m may be nil.
func NewCartController(store *services.SessionStore, catalog clients.CatalogGateway, m *metrics.ServerMetrics) *CartController {
	return &CartController{store: store, catalog: catalog, metrics: m, streamBuffer: defaultStreamBuffer}
}

func (cc *CartController) GetCart(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cartView(sess.Ledger))
}

func (cc *CartController) Status(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Ledger.Totals())
}

// AddItem looks the product up in the catalog so the price always comes from
// the backend, then adds one unit.
func (cc *CartController) AddItem(c *gin.Context) {
	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	product, err := cc.catalog.Product(c.Request.Context(), req.ProductID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	sess.Lock()
	defer sess.Unlock()
	sess.Ledger.Add(models.NewCartLine(*product))
	cc.afterMutation(c, sess, "add")
	c.JSON(http.StatusOK, cartView(sess.Ledger))
}

func (cc *CartController) DecrementItem(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	sess.Lock()
	defer sess.Unlock()
	if err := sess.Ledger.Decrement(id); err != nil {
		abortWithError(c, err)
		return
	}
	cc.afterMutation(c, sess, "decrement")
	c.JSON(http.StatusOK, cartView(sess.Ledger))
}

// RemoveItem drops a line. Removing an absent product is not an error.
func (cc *CartController) RemoveItem(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	sess.Lock()
	defer sess.Unlock()
	if sess.Ledger.Remove(id) {
		cc.afterMutation(c, sess, "remove")
	}
	c.JSON(http.StatusOK, cartView(sess.Ledger))
}

func (cc *CartController) Clear(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	sess.Lock()
	defer sess.Unlock()
	sess.Ledger.Clear()
	cc.afterMutation(c, sess, "clear")
	c.JSON(http.StatusOK, cartView(sess.Ledger))
}

// StreamStatus pushes cart totals as server-sent events, starting with the
// current totals. A client that falls more than the buffer behind is
// disconnected and expected to reconnect.
func (cc *CartController) StreamStatus(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	updates := make(chan models.CartTotals, cc.streamBuffer)
	lagged := make(chan struct{})
	closed := false

	// Ledger callbacks are serialized by the ledger lock, price before quantity.
	var latest models.CartTotals
	unsubPrice := sess.Ledger.OnTotalPrice(func(p decimal.Decimal) {
		latest.TotalPrice = p
	})
	unsubQuantity := sess.Ledger.OnTotalQuantity(func(q int) {
		latest.TotalQuantity = q
		if closed {
			return
		}
		select {
		case updates <- latest:
		default:
			closed = true
			close(lagged)
		}
	})
	defer unsubPrice()
	defer unsubQuantity()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-lagged:
			logger.FromGin(c).Info("cart status stream closed, client lagging")
			return
		case totals := <-updates:
			c.SSEvent("totals", totals)
			c.Writer.Flush()
		}
	}
}

func (cc *CartController) afterMutation(c *gin.Context, sess *services.Session, op string) {
	cc.metrics.CartMutation(op)
	if err := cc.store.SaveCart(c.Request.Context(), sess); err != nil {
		logger.FromGin(c).Warn("cart snapshot save failed", zap.Error(err))
	}
}

func cartView(ledger *services.CartLedger) models.CartView {
	return models.CartView{Items: ledger.Lines(), Totals: ledger.Totals()}
}
