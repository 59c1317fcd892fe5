package services

import (
	"context"
	"sync"
	"time"

	"storefront-service/clients"
	"storefront-service/database"
	"storefront-service/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is the UI state of one browser. Handlers hold Lock for the whole
// request so a session sees one operation at a time.
type Session struct {
	ID      string
	Ledger  *CartLedger
	Listing *ProductListing

	mu       sync.Mutex
	checkout *CheckoutForm
	newForm  func() *CheckoutForm

	identity   *models.Identity
	loginState string
	loginNonce string

	lastSeen time.Time
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Checkout returns the session's checkout form, creating it on first use.
// Callers must hold the session lock.
func (s *Session) Checkout() *CheckoutForm {
	if s.checkout == nil {
		s.checkout = s.newForm()
	}
	return s.checkout
}

// DiscardCheckout drops the draft, as when the user navigates away.
// Callers must hold the session lock.
func (s *Session) DiscardCheckout() {
	if s.checkout != nil {
		s.checkout.Close()
		s.checkout = nil
	}
}

// Identity returns the signed-in user, or nil once the token has expired.
func (s *Session) Identity(now time.Time) *models.Identity {
	if s.identity == nil || (!s.identity.ExpiresAt.IsZero() && now.After(s.identity.ExpiresAt)) {
		return nil
	}
	id := *s.identity
	return &id
}

func (s *Session) SetIdentity(id *models.Identity) { s.identity = id }

// BeginLogin records the state and nonce of an authorization redirect.
func (s *Session) BeginLogin(state, nonce string) {
	s.loginState = state
	s.loginNonce = nonce
}

// CompleteLogin consumes the pending login if state matches and returns its nonce.
func (s *Session) CompleteLogin(state string) (nonce string, ok bool) {
	if s.loginState == "" || s.loginState != state {
		return "", false
	}
	nonce = s.loginNonce
	s.loginState, s.loginNonce = "", ""
	return nonce, true
}

// SessionDeps configures how sessions are built.
type SessionDeps struct {
	Catalog         clients.CatalogGateway
	DefaultCategory int64
	DefaultPageSize int
	Checkout        CheckoutDeps // Ledger is filled in per session
	Carts           *database.CartRepository
	TTL             time.Duration
	Clock           func() time.Time
	Logger          *zap.Logger
}

// SessionStore owns every live session and expires idle ones. Cart contents
// are mirrored to redis when a cart repository is configured so a cart
// outlives the process.
type SessionStore struct {
	deps SessionDeps

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionStore(deps SessionDeps) *SessionStore {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.TTL <= 0 {
		deps.TTL = 30 * time.Minute
	}
	return &SessionStore{deps: deps, sessions: make(map[string]*Session)}
}

// Resolve returns the session for id, creating one when id is unknown. An id
// that is not a UUID is replaced by a fresh one. created reports whether the
// caller must (re)issue the session cookie.
func (st *SessionStore) Resolve(ctx context.Context, id string) (sess *Session, created bool) {
	now := st.deps.Clock()

	st.mu.Lock()
	if s, ok := st.sessions[id]; ok {
		s.lastSeen = now
		st.mu.Unlock()
		return s, false
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	s := st.newSession(id, now)
	s.Lock()
	st.sessions[id] = s
	st.mu.Unlock()

	st.restoreCart(ctx, s)
	s.Unlock()
	return s, true
}

// Get returns a live session without creating one.
func (st *SessionStore) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// SaveCart mirrors the session's cart to redis. It is a no-op without a
// cart repository.
func (st *SessionStore) SaveCart(ctx context.Context, s *Session) error {
	if st.deps.Carts == nil {
		return nil
	}
	return st.deps.Carts.Save(ctx, s.ID, s.Ledger.Lines())
}

// Sweep drops sessions idle for longer than the TTL and returns how many.
func (st *SessionStore) Sweep() int {
	cutoff := st.deps.Clock().Add(-st.deps.TTL)

	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.Lock()
		s.DiscardCheckout()
		s.Unlock()
	}
	if len(expired) > 0 {
		st.deps.Logger.Debug("expired idle sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// RunSweeper sweeps every interval until ctx is done.
func (st *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

func (st *SessionStore) newSession(id string, now time.Time) *Session {
	logger := st.deps.Logger.With(zap.String("session_id", id))
	ledger := NewCartLedger(logger)
	s := &Session{
		ID:       id,
		Ledger:   ledger,
		Listing:  NewProductListing(st.deps.Catalog, st.deps.DefaultCategory, st.deps.DefaultPageSize),
		lastSeen: now,
	}
	s.newForm = func() *CheckoutForm {
		deps := st.deps.Checkout
		deps.Ledger = ledger
		deps.Logger = logger
		return NewCheckoutForm(deps)
	}
	return s
}

func (st *SessionStore) restoreCart(ctx context.Context, s *Session) {
	if st.deps.Carts == nil {
		return
	}
	snap, err := st.deps.Carts.Load(ctx, s.ID)
	if err != nil {
		st.deps.Logger.Warn("cart snapshot load failed", zap.String("session_id", s.ID), zap.Error(err))
		return
	}
	if snap == nil || len(snap.Items) == 0 {
		return
	}
	s.Ledger.Restore(snap.Items)
	st.deps.Logger.Info("cart restored", zap.String("session_id", s.ID), zap.Int("lines", len(snap.Items)))
}
