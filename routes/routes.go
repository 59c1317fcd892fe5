package routes

import (
	"net/http"
	"time"

	"storefront-service/controllers"
	"storefront-service/metrics"
	"storefront-service/middleware"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
)

// Controllers groups everything the router dispatches to.
type Controllers struct {
	Catalog  *controllers.CatalogController
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Auth     *controllers.AuthController
}

// Options carries the session and metrics wiring the router needs.
type Options struct {
	Sessions *services.SessionStore
	Cookie   middleware.SessionOptions
	Metrics  *metrics.ServerMetrics
	Clock    func() time.Time
}

func RegisterRoutes(r *gin.Engine, ctrl Controllers, opts Options) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// The provider posts back cross-site without the session cookie; the
	// session is found through the login state instead.
	r.GET("/login/callback", ctrl.Auth.Callback)
	r.POST("/login/callback", ctrl.Auth.Callback)

	sessioned := r.Group("/")
	sessioned.Use(middleware.Session(opts.Sessions, opts.Cookie, opts.Metrics))
	{
		sessioned.GET("/login", ctrl.Auth.Login)
		sessioned.POST("/logout", ctrl.Auth.Logout)
	}

	api := sessioned.Group("/api")
	{
		// Product list pages
		api.GET("/products", ctrl.Catalog.ListProducts)
		api.GET("/products/:id", ctrl.Catalog.GetProduct)
		api.GET("/category/:id", ctrl.Catalog.ListCategory)
		api.GET("/search/:keyword", ctrl.Catalog.Search)
		api.GET("/categories", ctrl.Catalog.Categories)

		// Cart
		api.GET("/cart", ctrl.Cart.GetCart)
		api.DELETE("/cart", ctrl.Cart.Clear)
		api.GET("/cart/status", ctrl.Cart.Status)
		api.GET("/cart/status/stream", ctrl.Cart.StreamStatus)
		api.POST("/cart/items", ctrl.Cart.AddItem)
		api.POST("/cart/items/:id/decrement", ctrl.Cart.DecrementItem)
		api.DELETE("/cart/items/:id", ctrl.Cart.RemoveItem)

		// Checkout
		api.GET("/checkout", ctrl.Checkout.GetCheckout)
		api.DELETE("/checkout", ctrl.Checkout.Discard)
		api.PATCH("/checkout/fields", ctrl.Checkout.UpdateFields)
		api.PUT("/checkout/:group/country", ctrl.Checkout.SelectCountry)
		api.PUT("/checkout/:group/state", ctrl.Checkout.SelectState)
		api.PUT("/checkout/copy-shipping", ctrl.Checkout.CopyShipping)
		api.PUT("/checkout/expiration-year", ctrl.Checkout.ExpirationYear)
		api.PUT("/checkout/expiration-month", ctrl.Checkout.ExpirationMonth)
		api.POST("/checkout/submit", ctrl.Checkout.Submit)

		// Auth
		api.GET("/auth/status", ctrl.Auth.Status)
		api.GET("/members", middleware.RequireAuth(opts.Clock), ctrl.Auth.Members)
	}

	r.NoRoute(func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api/products")
	})
}
