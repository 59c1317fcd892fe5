package middleware

import (
	"net/http"
	"time"

	"storefront-service/logger"
	"storefront-service/metrics"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookieName  = "storefront_session"
	SessionContextKey  = "storefront_session"
	IdentityContextKey = "identity"
)

// SessionOptions controls the session cookie.
type SessionOptions struct {
	MaxAge time.Duration
	Secure bool
}

// Session attaches the caller's storefront session, issuing a cookie for new
// sessions. It does not lock the session; handlers do.
func Session(store *services.SessionStore, opts SessionOptions, m *metrics.ServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookieName)
		sess, created := store.Resolve(c.Request.Context(), id)
		if created {
			SetSessionCookie(c, sess.ID, opts)
			if m != nil {
				m.ActiveSessions.Set(float64(store.Len()))
			}
		}
		c.Set(SessionContextKey, sess)
		c.Set(logger.SessionIDKey, sess.ID)
		c.Next()
	}
}

// SetSessionCookie (re)issues the session cookie for id.
func SetSessionCookie(c *gin.Context, id string, opts SessionOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, id, int(opts.MaxAge.Seconds()), "/", "", opts.Secure, true)
}

// GetSession returns the session attached by Session.
func GetSession(c *gin.Context) (*services.Session, bool) {
	v, ok := c.Get(SessionContextKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*services.Session)
	return sess, ok && sess != nil
}

// RequireAuth rejects requests whose session has no live identity.
func RequireAuth(clock func() time.Time) gin.HandlerFunc {
	if clock == nil {
		clock = time.Now
	}
	return func(c *gin.Context) {
		sess, ok := GetSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		sess.Lock()
		id := sess.Identity(clock())
		sess.Unlock()
		if id == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(IdentityContextKey, id)
		c.Next()
	}
}

// GetIdentity returns the identity attached by RequireAuth.
func GetIdentity(c *gin.Context) (*models.Identity, bool) {
	v, ok := c.Get(IdentityContextKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*models.Identity)
	return id, ok && id != nil
}
