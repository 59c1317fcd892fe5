package identity_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/url"
	"testing"
	"time"

	"storefront-service/identity"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://login.example.com/oauth2/default"
	testClientID = "storefront-client"
	testSecret   = "test-signing-secret"
)

func hmacProvider(t *testing.T) *identity.Provider {
	t.Helper()
	p, err := identity.NewProvider(identity.Config{
		Issuer:        testIssuer,
		ClientID:      testClientID,
		RedirectURI:   "http://localhost:8095/login/callback",
		SigningSecret: testSecret,
	})
	require.NoError(t, err)
	return p
}

func claims(nonce string, exp time.Time) identity.Claims {
	return identity.Claims{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "00u1",
			Audience:  jwt.ClaimStrings{testClientID},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func sign(t *testing.T, c identity.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestNewProvider_RequiresConfig(t *testing.T) {
	_, err := identity.NewProvider(identity.Config{})
	assert.ErrorIs(t, err, identity.ErrNotConfigured)

	_, err = identity.NewProvider(identity.Config{Issuer: testIssuer, ClientID: testClientID})
	assert.ErrorIs(t, err, identity.ErrNotConfigured)

	_, err = identity.NewProvider(identity.Config{Issuer: testIssuer, ClientID: testClientID, PublicKeyPEM: "garbage"})
	assert.Error(t, err)
}

func TestAuthorizeURL(t *testing.T) {
	p := hmacProvider(t)
	state, nonce := identity.NewLoginRequest()
	assert.NotEqual(t, state, nonce)

	u, err := url.Parse(p.AuthorizeURL(state, nonce))
	require.NoError(t, err)
	assert.Equal(t, "/oauth2/default/v1/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, "id_token", q.Get("response_type"))
	assert.Equal(t, "openid profile email", q.Get("scope"))
	assert.Equal(t, "http://localhost:8095/login/callback", q.Get("redirect_uri"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, nonce, q.Get("nonce"))
}

func TestVerifyIDToken_HMAC(t *testing.T) {
	p := hmacProvider(t)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	id, err := p.VerifyIDToken(sign(t, claims("n-1", exp)), "n-1")
	require.NoError(t, err)
	assert.Equal(t, "00u1", id.Subject)
	assert.Equal(t, "Ada Lovelace", id.Name)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.True(t, exp.Equal(id.ExpiresAt))
}

func TestVerifyIDToken_Rejections(t *testing.T) {
	p := hmacProvider(t)
	future := time.Now().Add(time.Hour)

	expired := sign(t, claims("n", time.Now().Add(-time.Minute)))
	_, err := p.VerifyIDToken(expired, "n")
	assert.ErrorIs(t, err, identity.ErrInvalidToken)

	wrongIssuer := claims("n", future)
	wrongIssuer.Issuer = "https://evil.example.com"
	_, err = p.VerifyIDToken(sign(t, wrongIssuer), "n")
	assert.ErrorIs(t, err, identity.ErrInvalidToken)

	wrongAudience := claims("n", future)
	wrongAudience.Audience = jwt.ClaimStrings{"someone-else"}
	_, err = p.VerifyIDToken(sign(t, wrongAudience), "n")
	assert.ErrorIs(t, err, identity.ErrInvalidToken)

	_, err = p.VerifyIDToken(sign(t, claims("n", future)), "other-nonce")
	assert.ErrorIs(t, err, identity.ErrNonceMismatch)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims("n", future)).SignedString([]byte("wrong"))
	require.NoError(t, err)
	_, err = p.VerifyIDToken(forged, "n")
	assert.ErrorIs(t, err, identity.ErrInvalidToken)

	_, err = p.VerifyIDToken("not.a.jwt", "n")
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestVerifyIDToken_RSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	p, err := identity.NewProvider(identity.Config{Issuer: testIssuer, ClientID: testClientID, PublicKeyPEM: string(pemKey)})
	require.NoError(t, err)

	c := claims("n", time.Now().Add(time.Hour))
	c.Name = ""
	c.PreferredUsername = "ada"
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, c).SignedString(key)
	require.NoError(t, err)

	id, err := p.VerifyIDToken(raw, "n")
	require.NoError(t, err)
	assert.Equal(t, "ada", id.Name)

	// an HMAC token must not be accepted by an RSA provider
	_, err = p.VerifyIDToken(sign(t, claims("n", time.Now().Add(time.Hour))), "n")
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}
