package controllers

import (
	"errors"
	"net/http"

	"storefront-service/clients"
	apperrors "storefront-service/errors"
	"storefront-service/logger"
	"storefront-service/middleware"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sessionFromContext returns the request's session or aborts with 500 when the
// session middleware is missing from the chain.
func sessionFromContext(c *gin.Context) (*services.Session, bool) {
	sess, ok := middleware.GetSession(c)
	if !ok {
		_ = c.Error(apperrors.ErrInternalServer.Wrap(errors.New("no session on request")))
		c.Abort()
		return nil, false
	}
	return sess, true
}

// abortWithError maps service and gateway errors to an application error and
// hands it to ErrorMiddleware.
func abortWithError(c *gin.Context, err error) {
	var (
		appErr     *apperrors.Error
		validation *services.ValidationError
		gateway    *clients.GatewayError
	)
	switch {
	case errors.As(err, &appErr):
	case errors.As(err, &validation):
		appErr = apperrors.ErrValidation.WithDetails(validation.Fields).Wrap(err)
	case errors.Is(err, services.ErrSubmitInProgress):
		appErr = apperrors.ErrSubmitBusy.Wrap(err)
	case errors.Is(err, services.ErrUnknownField),
		errors.Is(err, services.ErrUnknownGroup),
		errors.Is(err, services.ErrInvalidOption),
		errors.Is(err, services.ErrUnresolvedSelection):
		appErr = apperrors.ErrInvalidInput.WithDetails(gin.H{"error": err.Error()}).Wrap(err)
	case errors.Is(err, services.ErrLineNotFound):
		appErr = apperrors.ErrNotFound.Wrap(err)
	case errors.As(err, &gateway) && gateway.StatusCode == http.StatusNotFound:
		appErr = apperrors.ErrNotFound.Wrap(err)
	default:
		logger.FromGin(c).Warn("upstream request failed", zap.Error(err))
		appErr = apperrors.ErrUpstream.Wrap(err)
	}
	_ = c.Error(appErr)
	c.Abort()
}

// abortBadRequest reports a malformed path parameter or body.
func abortBadRequest(c *gin.Context, err error) {
	_ = c.Error(apperrors.ErrBadRequest.WithDetails(gin.H{"error": err.Error()}).Wrap(err))
	c.Abort()
}
