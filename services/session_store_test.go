package services_test

import (
	"context"
	"testing"
	"time"

	"storefront-service/database"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newSessionStore(t *testing.T, carts *database.CartRepository, clock *fakeClock) *services.SessionStore {
	t.Helper()
	catalog := &mockCatalog{byCategoryFn: echoPage(0)}
	return services.NewSessionStore(services.SessionDeps{
		Catalog:         catalog,
		DefaultCategory: 1,
		DefaultPageSize: 5,
		Checkout: services.CheckoutDeps{
			Reference: &mockReference{},
			Orders:    &mockOrders{},
			Clock:     clock.Now,
		},
		Carts: carts,
		TTL:   30 * time.Minute,
		Clock: clock.Now,
	})
}

func TestSessionStore_Resolve(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newSessionStore(t, nil, clock)
	ctx := context.Background()

	s, created := store.Resolve(ctx, "not-a-uuid")
	assert.True(t, created)
	_, err := uuid.Parse(s.ID)
	assert.NoError(t, err)

	again, created := store.Resolve(ctx, s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)

	known := uuid.NewString()
	s2, created := store.Resolve(ctx, known)
	assert.True(t, created)
	assert.Equal(t, known, s2.ID)
	assert.Equal(t, 2, store.Len())
}

func TestSessionStore_CheckoutLifecycle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newSessionStore(t, nil, clock)
	s, _ := store.Resolve(context.Background(), "")

	s.Lock()
	defer s.Unlock()

	form := s.Checkout()
	assert.Same(t, form, s.Checkout())

	s.Ledger.Add(line(1, "A", "4.00"))
	assert.Equal(t, "4.00", form.View().Totals.TotalPrice.StringFixed(2))

	s.DiscardCheckout()
	assert.NotSame(t, form, s.Checkout())
}

func TestSessionStore_SweepExpiresIdleSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newSessionStore(t, nil, clock)
	ctx := context.Background()

	idle, _ := store.Resolve(ctx, "")
	clock.now = clock.now.Add(20 * time.Minute)
	active, _ := store.Resolve(ctx, "")
	clock.now = clock.now.Add(15 * time.Minute)

	assert.Equal(t, 1, store.Sweep())
	_, ok := store.Get(idle.ID)
	assert.False(t, ok)
	_, ok = store.Get(active.ID)
	assert.True(t, ok)
}

func TestSessionStore_CartSurvivesRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	carts := database.NewCartRepository(client, time.Hour)
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	first := newSessionStore(t, carts, clock)
	s, _ := first.Resolve(ctx, "")
	s.Ledger.Add(line(1, "A", "2.00"))
	s.Ledger.Add(line(1, "A", "2.00"))
	require.NoError(t, first.SaveCart(ctx, s))

	second := newSessionStore(t, carts, clock)
	restored, created := second.Resolve(ctx, s.ID)
	assert.True(t, created)
	lines := restored.Ledger.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(1), lines[0].ID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "4.00", restored.Ledger.Totals().TotalPrice.StringFixed(2))
}

func TestSession_Identity(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newSessionStore(t, nil, clock)
	s, _ := store.Resolve(context.Background(), "")

	assert.Nil(t, s.Identity(clock.now))
	s.SetIdentity(&models.Identity{Subject: "u1", Name: "Ada", ExpiresAt: clock.now.Add(time.Hour)})
	require.NotNil(t, s.Identity(clock.now))
	assert.Equal(t, "Ada", s.Identity(clock.now).Name)
	assert.Nil(t, s.Identity(clock.now.Add(2*time.Hour)))

	s.BeginLogin("state-1", "nonce-1")
	_, ok := s.CompleteLogin("other")
	assert.False(t, ok)
	nonce, ok := s.CompleteLogin("state-1")
	assert.True(t, ok)
	assert.Equal(t, "nonce-1", nonce)
	_, ok = s.CompleteLogin("state-1")
	assert.False(t, ok)
}
