package controllers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"storefront-service/database"
	"storefront-service/logger"
	"storefront-service/metrics"
	"storefront-service/models"
	awspkg "storefront-service/pkg/aws"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type CheckoutController struct {
	store       *services.SessionStore
	idempotency *database.IdempotencyRepository
	metrics     *metrics.ServerMetrics
	cloudwatch  *awspkg.MetricsClient
}

// NewCheckoutController wires the checkout endpoints. Every collaborator but
// store may be nil; without a repository Idempotency-Key headers are ignored.
func NewCheckoutController(store *services.SessionStore, idempotency *database.IdempotencyRepository, m *metrics.ServerMetrics, cw *awspkg.MetricsClient) *CheckoutController {
	return &CheckoutController{store: store, idempotency: idempotency, metrics: m, cloudwatch: cw}
}

// GetCheckout enters the checkout view, loading countries on first use.
func (cc *CheckoutController) GetCheckout(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()

	form := sess.Checkout()
	if err := form.Open(c.Request.Context()); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, form.View())
}

// UpdateFields applies {path: value} pairs in path order and stops at the
// first rejected one.
func (cc *CheckoutController) UpdateFields(c *gin.Context) {
	var fields map[string]string
	if err := c.ShouldBindJSON(&fields); err != nil {
		abortBadRequest(c, err)
		return
	}
	paths := make([]string, 0, len(fields))
	for p := range fields {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	cc.mutate(c, func(form *services.CheckoutForm) error {
		for _, p := range paths {
			if err := form.SetField(p, fields[p]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (cc *CheckoutController) SelectCountry(c *gin.Context) {
	var req models.SelectCountryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	group := c.Param("group")
	cc.mutate(c, func(form *services.CheckoutForm) error {
		return form.SelectCountry(c.Request.Context(), group, req.Code)
	})
}

func (cc *CheckoutController) SelectState(c *gin.Context) {
	var req models.SelectRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	group := c.Param("group")
	cc.mutate(c, func(form *services.CheckoutForm) error {
		return form.SelectRegion(group, req.ID)
	})
}

func (cc *CheckoutController) CopyShipping(c *gin.Context) {
	var req models.CopyShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	cc.mutate(c, func(form *services.CheckoutForm) error {
		return form.SetCopyShippingToBilling(req.Enabled)
	})
}

func (cc *CheckoutController) ExpirationYear(c *gin.Context) {
	var req models.ExpirationYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	cc.mutate(c, func(form *services.CheckoutForm) error {
		return form.SelectExpirationYear(req.Year)
	})
}

func (cc *CheckoutController) ExpirationMonth(c *gin.Context) {
	var req models.ExpirationMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, err)
		return
	}
	cc.mutate(c, func(form *services.CheckoutForm) error {
		return form.SetField("creditCard.expirationMonth", strconv.Itoa(req.Month))
	})
}

// Submit places the order. A repeated Idempotency-Key returns the tracking
// number of the first successful submission without contacting the backend.
func (cc *CheckoutController) Submit(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	log := logger.FromGin(c)

	key := c.GetHeader(IdempotencyKeyHeader)
	if key != "" && cc.idempotency != nil {
		key = sess.ID + ":" + key
	} else {
		key = ""
	}
	if cc.replay(c, key) {
		return
	}

	sess.Lock()
	defer sess.Unlock()

	// A duplicate that waited on the lock sees the tracking number stored by
	// the submission that held it.
	if cc.replay(c, key) {
		return
	}

	result, err := sess.Checkout().Submit(ctx)
	if err != nil {
		var validation *services.ValidationError
		switch {
		case errors.As(err, &validation):
			cc.metrics.CheckoutSubmission(metrics.OutcomeInvalid)
		case !errors.Is(err, services.ErrSubmitInProgress):
			cc.metrics.CheckoutSubmission(metrics.OutcomeFailed)
			cc.recordOrder(awspkg.MetricOrdersFailed)
		}
		abortWithError(c, err)
		return
	}
	cc.metrics.CheckoutSubmission(metrics.OutcomePlaced)
	cc.recordOrder(awspkg.MetricOrdersPlaced)

	if key != "" {
		if err := cc.idempotency.Set(ctx, key, result.OrderTrackingNumber); err != nil {
			log.Warn("idempotency store failed", zap.Error(err))
		}
	}
	if err := cc.store.SaveCart(ctx, sess); err != nil {
		log.Warn("cart snapshot save failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, result)
}

// Discard drops the draft, as when the user leaves the checkout view.
func (cc *CheckoutController) Discard(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	sess.Lock()
	sess.DiscardCheckout()
	sess.Unlock()
	c.Status(http.StatusNoContent)
}

// replay answers with a stored tracking number for key, if there is one.
func (cc *CheckoutController) replay(c *gin.Context, key string) bool {
	if key == "" {
		return false
	}
	tracking, err := cc.idempotency.Get(c.Request.Context(), key)
	if err != nil {
		logger.FromGin(c).Warn("idempotency lookup failed", zap.Error(err))
		return false
	}
	if tracking == "" {
		return false
	}
	cc.metrics.CheckoutSubmission(metrics.OutcomeReplayed)
	c.JSON(http.StatusOK, models.CheckoutResult{
		OrderTrackingNumber: tracking,
		Redirect:            services.ProductsRedirect,
	})
	return true
}

func (cc *CheckoutController) recordOrder(metric string) {
	if !cc.cloudwatch.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = cc.cloudwatch.Publish(ctx, map[string]string{"Service": "storefront-service"}, awspkg.Count(metric))
	}()
}

// mutate runs fn against the session's form and answers with the new view.
func (cc *CheckoutController) mutate(c *gin.Context, fn func(*services.CheckoutForm) error) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	sess.Lock()
	defer sess.Unlock()

	form := sess.Checkout()
	if err := fn(form); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, form.View())
}
