package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisad "staybook/internal/adapters/redis"
	"staybook/internal/domain"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redisad.Cache, *redisad.SessionStore, *redisad.Notifier) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return mr, redisad.NewCache(c), redisad.NewSessionStore(c), redisad.NewNotifier(c)
}

func TestCache_RoundTripAndTTL(t *testing.T) {
	mr, cache, _, _ := newClient(t)
	ctx := context.Background()

	var h domain.Hotel
	ok, err := cache.Get(ctx, "hotel:h1", &h)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "hotel:h1", domain.Hotel{ID: "h1", Name: "Anantara", NightlyRate: 220}, 60))
	ok, err = cache.Get(ctx, "hotel:h1", &h)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Anantara", h.Name)

	mr.FastForward(61 * time.Second)
	ok, _ = cache.Get(ctx, "hotel:h1", &h)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "hotel:h2", domain.Hotel{ID: "h2"}, 60))
	require.NoError(t, cache.Del(ctx, "hotel:h2"))
	ok, _ = cache.Get(ctx, "hotel:h2", &h)
	assert.False(t, ok)
}

func TestSessionStore(t *testing.T) {
	mr, _, sessions, _ := newClient(t)
	ctx := context.Background()

	sess := domain.Session{Token: "tok", UserID: "u1", Email: "a@b.co", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, sessions.Save(ctx, sess))

	got, err := sessions.Load(ctx, "tok")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)

	mr.FastForward(2 * time.Hour)
	got, err = sessions.Load(ctx, "tok")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, sessions.Save(ctx, sess))
	require.NoError(t, sessions.Delete(ctx, "tok"))
	got, _ = sessions.Load(ctx, "tok")
	assert.Nil(t, got)
}

func TestNotifier_PublishReachesListener(t *testing.T) {
	_, _, _, n := newClient(t)
	ctx := context.Background()

	hits := make(chan struct{}, 4)
	stop, err := n.Listen(ctx, domain.CollectionBookings, func() { hits <- struct{}{} })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, n.Publish(ctx, domain.CollectionReviews))
	require.NoError(t, n.Publish(ctx, domain.CollectionBookings))

	select {
	case <-hits:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal received")
	}
	select {
	case <-hits:
		t.Fatal("signal from another collection leaked through")
	case <-time.After(100 * time.Millisecond):
	}
}
