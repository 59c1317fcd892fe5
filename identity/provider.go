package identity

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"storefront-service/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var (
	ErrNotConfigured = errors.New("identity provider not configured")
	ErrInvalidToken  = errors.New("invalid or expired id_token")
	ErrNonceMismatch = errors.New("id_token nonce does not match login request")
)

// Config describes the OIDC application registered with the identity provider.
type Config struct {
	Issuer        string
	ClientID      string
	RedirectURI   string
	Scopes        []string
	SigningSecret string
	PublicKeyPEM  string
}

// Claims are the id_token claims the storefront reads.
type Claims struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Nonce             string `json:"nonce"`
	jwt.RegisteredClaims
}

// Provider builds authorization redirects and verifies the id_tokens that come
// back. Tokens are verified locally with either a shared HMAC secret or the
// provider's RSA public key.
type Provider struct {
	cfg       Config
	publicKey *rsa.PublicKey
	secret    []byte
}

func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" {
		return nil, ErrNotConfigured
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "profile", "email"}
	}
	p := &Provider{cfg: cfg}
	switch {
	case strings.TrimSpace(cfg.PublicKeyPEM) != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("parse OIDC public key: %w", err)
		}
		p.publicKey = key
	case cfg.SigningSecret != "":
		p.secret = []byte(cfg.SigningSecret)
	default:
		return nil, fmt.Errorf("%w: no signing secret or public key", ErrNotConfigured)
	}
	return p, nil
}

// NewLoginRequest returns a fresh state and nonce for one authorization round trip.
func NewLoginRequest() (state, nonce string) {
	return uuid.NewString(), uuid.NewString()
}

// AuthorizeURL is the provider URL the browser is redirected to for sign-in.
func (p *Provider) AuthorizeURL(state, nonce string) string {
	q := url.Values{}
	q.Set("client_id", p.cfg.ClientID)
	q.Set("response_type", "id_token")
	q.Set("response_mode", "form_post")
	q.Set("scope", strings.Join(p.cfg.Scopes, " "))
	q.Set("redirect_uri", p.cfg.RedirectURI)
	q.Set("state", state)
	q.Set("nonce", nonce)
	return strings.TrimSuffix(p.cfg.Issuer, "/") + "/v1/authorize?" + q.Encode()
}

// VerifyIDToken checks signature, expiry, issuer, audience and nonce and
// returns the signed-in identity.
func (p *Provider) VerifyIDToken(raw, expectedNonce string) (*models.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, p.keyFunc)
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.VerifyIssuer(p.cfg.Issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if !claims.VerifyAudience(p.cfg.ClientID, true) {
		return nil, fmt.Errorf("%w: unexpected audience", ErrInvalidToken)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return nil, ErrNonceMismatch
	}

	return &models.Identity{
		Subject:   claims.Subject,
		Name:      displayName(claims),
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (p *Provider) keyFunc(token *jwt.Token) (interface{}, error) {
	if p.publicKey != nil {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.publicKey, nil
	}
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return p.secret, nil
}

// displayName prefers the full name claim.
func displayName(c *Claims) string {
	switch {
	case c.Name != "":
		return c.Name
	case c.PreferredUsername != "":
		return c.PreferredUsername
	default:
		return c.Email
	}
}
