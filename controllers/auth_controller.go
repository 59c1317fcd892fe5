package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "storefront-service/errors"
	"storefront-service/identity"
	"storefront-service/logger"
	"storefront-service/middleware"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AfterLoginRedirect is where the browser lands once signed in.
const AfterLoginRedirect = "/api/products"

// AuthController runs the OIDC sign-in round trip and reports the signed-in
// user. The login state embeds the session id because the provider posts the
// callback cross-site, where the lax session cookie is not sent.
type AuthController struct {
	provider *identity.Provider
	store    *services.SessionStore
	cookie   middleware.SessionOptions
	clock    func() time.Time
}

// NewAuthController wires the auth endpoints. provider is nil when sign-in is
// not configured; login then answers 503.
func NewAuthController(provider *identity.Provider, store *services.SessionStore, cookie middleware.SessionOptions, clock func() time.Time) *AuthController {
	if clock == nil {
		clock = time.Now
	}
	return &AuthController{provider: provider, store: store, cookie: cookie, clock: clock}
}

// Login redirects the browser to the identity provider.
func (ac *AuthController) Login(c *gin.Context) {
	if ac.provider == nil {
		_ = c.Error(apperrors.ErrServiceUnavailable.Wrap(identity.ErrNotConfigured))
		c.Abort()
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	random, nonce := identity.NewLoginRequest()
	state := sess.ID + "." + random

	sess.Lock()
	sess.BeginLogin(state, nonce)
	sess.Unlock()

	c.Redirect(http.StatusFound, ac.provider.AuthorizeURL(state, nonce))
}

// Callback accepts the id_token, by form post or query.
func (ac *AuthController) Callback(c *gin.Context) {
	log := logger.FromGin(c)
	if ac.provider == nil {
		_ = c.Error(apperrors.ErrServiceUnavailable.Wrap(identity.ErrNotConfigured))
		c.Abort()
		return
	}
	if e := c.Request.FormValue("error"); e != "" {
		log.Warn("identity provider returned an error",
			zap.String("error", e), zap.String("description", c.Request.FormValue("error_description")))
		ac.unauthorized(c, errors.New(e))
		return
	}

	state := c.Request.FormValue("state")
	rawToken := c.Request.FormValue("id_token")
	sessionID, _, found := strings.Cut(state, ".")
	if !found || rawToken == "" {
		ac.unauthorized(c, errors.New("missing state or id_token"))
		return
	}
	sess, ok := ac.store.Get(sessionID)
	if !ok {
		ac.unauthorized(c, errors.New("login session expired"))
		return
	}

	sess.Lock()
	defer sess.Unlock()
	nonce, ok := sess.CompleteLogin(state)
	if !ok {
		ac.unauthorized(c, errors.New("unexpected login state"))
		return
	}
	id, err := ac.provider.VerifyIDToken(rawToken, nonce)
	if err != nil {
		ac.unauthorized(c, err)
		return
	}
	sess.SetIdentity(id)
	log.Info("user signed in", zap.String("session_id", sess.ID), zap.String("subject", id.Subject))

	middleware.SetSessionCookie(c, sess.ID, ac.cookie)
	c.Redirect(http.StatusSeeOther, AfterLoginRedirect)
}

// Logout ends the session's identity. The cart is kept.
func (ac *AuthController) Logout(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	sess.Lock()
	sess.SetIdentity(nil)
	sess.Unlock()
	c.JSON(http.StatusOK, models.AuthStatus{Authenticated: false})
}

func (ac *AuthController) Status(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	sess.Lock()
	id := sess.Identity(ac.clock())
	sess.Unlock()

	if id == nil {
		c.JSON(http.StatusOK, models.AuthStatus{Authenticated: false})
		return
	}
	c.JSON(http.StatusOK, models.AuthStatus{Authenticated: true, Name: id.Name})
}

// Members is the protected members view. It must sit behind RequireAuth.
func (ac *AuthController) Members(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		ac.unauthorized(c, errors.New("no identity on request"))
		return
	}
	c.JSON(http.StatusOK, models.MembersView{
		Name:    id.Name,
		Email:   id.Email,
		Message: "Welcome back, " + id.Name + ".",
	})
}

func (ac *AuthController) unauthorized(c *gin.Context, err error) {
	_ = c.Error(apperrors.ErrUnauthorized.Wrap(err))
	c.Abort()
}
