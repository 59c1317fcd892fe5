package controllers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"storefront-service/identity"
	"storefront-service/middleware"
	"storefront-service/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signIDToken(t *testing.T, nonce string) string {
	t.Helper()
	claims := identity.Claims{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{testClientID},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func postCallback(h *harness, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// beginLogin follows GET /login and returns the state and nonce sent to the provider.
func beginLogin(t *testing.T, h *harness) (state, nonce string) {
	t.Helper()
	w := h.do(http.MethodGet, "/login", nil)
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc.String(), testIssuer+"/v1/authorize"))
	q := loc.Query()
	assert.Equal(t, testClientID, q.Get("client_id"))
	return q.Get("state"), q.Get("nonce")
}

func TestAuth_LoginFlow(t *testing.T) {
	h := newHarness(t, withProvider(t))

	w := h.do(http.MethodGet, "/api/auth/status", nil)
	assert.Equal(t, models.AuthStatus{}, decode[models.AuthStatus](t, w))
	w = h.do(http.MethodGet, "/api/members", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	state, nonce := beginLogin(t, h)
	assert.True(t, strings.HasPrefix(state, h.cookie.Value+"."))

	w = postCallback(h, url.Values{"state": {state}, "id_token": {signIDToken(t, nonce)}})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/api/products", w.Header().Get("Location"))
	var reissued bool
	for _, c := range w.Result().Cookies() {
		reissued = reissued || (c.Name == middleware.SessionCookieName && c.Value == h.cookie.Value)
	}
	assert.True(t, reissued)

	w = h.do(http.MethodGet, "/api/auth/status", nil)
	assert.Equal(t, models.AuthStatus{Authenticated: true, Name: "Ada Lovelace"}, decode[models.AuthStatus](t, w))

	w = h.do(http.MethodGet, "/api/members", nil)
	require.Equal(t, http.StatusOK, w.Code)
	members := decode[models.MembersView](t, w)
	assert.Equal(t, "ada@example.com", members.Email)

	// The state is single use.
	w = postCallback(h, url.Values{"state": {state}, "id_token": {signIDToken(t, nonce)}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodGet, "/api/members", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_CallbackRejections(t *testing.T) {
	h := newHarness(t, withProvider(t))

	w := postCallback(h, url.Values{"error": {"access_denied"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postCallback(h, url.Values{"state": {"unknown.state"}, "id_token": {"x"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	state, _ := beginLogin(t, h)
	w = postCallback(h, url.Values{"state": {state}, "id_token": {signIDToken(t, "other-nonce")}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodGet, "/api/auth/status", nil)
	assert.False(t, decode[models.AuthStatus](t, w).Authenticated)
}

func TestAuth_NotConfigured(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = postCallback(h, url.Values{"state": {"a.b"}, "id_token": {"x"}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
