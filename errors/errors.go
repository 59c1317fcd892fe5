package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an application error rendered to clients as {code, message}.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// JSON returns the error as a JSON string
func (e *Error) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrap copies a sentinel and attaches the underlying cause. Sentinels are
// shared and must never be mutated.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// WithDetails copies a sentinel and attaches a client-visible payload.
func (e *Error) WithDetails(details interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// Common error types
var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized       = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrConflict           = New(http.StatusConflict, "Conflict", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Internal server error", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)
)

// Storefront error types
var (
	ErrValidation   = New(http.StatusBadRequest, "Validation error", nil)
	ErrInvalidInput = New(http.StatusBadRequest, "Invalid input", nil)
	ErrUpstream     = New(http.StatusBadGateway, "The store backend could not complete the request", nil)
	ErrInvalidToken = New(http.StatusUnauthorized, "Invalid token", nil)
	ErrSubmitBusy   = New(http.StatusConflict, "An order submission is already in progress", nil)
)

// ErrorMiddleware renders the last error attached to the gin context.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		var appErr *Error
		if !stderrors.As(err, &appErr) {
			appErr = ErrInternalServer.Wrap(err)
		}
		c.AbortWithStatusJSON(appErr.Code, appErr)
	}
}
