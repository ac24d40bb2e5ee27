package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"staybook/internal/app"
	"staybook/internal/domain"
	"staybook/internal/storage/memory"
)

// clock is a settable time source shared by the services under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(t time.Time) *clock { return &clock{t: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

var seaView = domain.Hotel{
	ID:          "h-sea",
	Name:        "Sea View Resort",
	Location:    "Lisbon, Portugal",
	NightlyRate: 150,
	Rating:      4.6,
	ReviewCount: 120,
	Amenities:   []string{"wifi", "pool"},
}

type fixture struct {
	store    *memory.Store
	hotels   *app.HotelService
	bookings *app.BookingService
	reviews  *app.ReviewService
	clock    *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := newClock(date("2024-12-01").Add(9 * time.Hour))
	store := memory.New().WithClock(c.Now)
	hotels := app.NewHotelService(store, nil, time.Minute)
	require.NoError(t, hotels.UpsertHotel(context.Background(), seaView))
	return &fixture{
		store:    store,
		hotels:   hotels,
		bookings: app.NewBookingService(store, hotels).WithClock(c.Now),
		reviews:  app.NewReviewService(store, hotels).WithClock(c.Now),
		clock:    c,
	}
}

func ada() domain.Session {
	return domain.Session{Token: "t-ada", UserID: "u-ada", Email: "ada@example.com", DisplayName: "Ada Lovelace"}
}

func bob() domain.Session {
	return domain.Session{Token: "t-bob", UserID: "u-bob", Email: "bob@example.com", DisplayName: "Bob"}
}

func reasonOf(t *testing.T, err error) domain.ReasonCode {
	t.Helper()
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Code
}
