package httpserver_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/adapters/auth"
	httpserver "staybook/internal/adapters/http_server"
	"staybook/internal/adapters/mailer"
	redisad "staybook/internal/adapters/redis"
	"staybook/internal/app"
	"staybook/internal/domain"
	"staybook/internal/storage/memory"
)

func newAPI(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rc.Close() })

	store := memory.New()
	provider, err := auth.New(store, redisad.NewSessionStore(rc), mailer.LogMailer{}, auth.Config{
		Secret:            []byte("test-secret-test-secret-test-secret"),
		SessionTTL:        time.Hour,
		AttemptsPerMinute: 20,
	})
	require.NoError(t, err)

	hotels := app.NewHotelService(store, redisad.NewCache(rc), time.Minute)
	require.NoError(t, hotels.UpsertHotel(context.Background(), domain.Hotel{
		ID: "h-sea", Name: "Sea View Resort", Location: "Lisbon", NightlyRate: 150, Rating: 4.6,
	}))

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{
		Accounts: app.NewAccountService(provider, store),
		Hotels:   hotels,
		Bookings: app.NewBookingService(store, hotels),
		Reviews:  app.NewReviewService(store, hotels),
	})
	return srv.Mux()
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type problemBody struct {
	Status int    `json:"status"`
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func signUp(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"firstName": "Ada", "lastName": "Lovelace", "email": email,
		"password": "secret1", "confirmPassword": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Session domain.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Session.Token)
	return out.Session.Token
}

// future returns a calendar date days from today.
func future(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format(time.DateOnly)
}

func TestBookingFlow(t *testing.T) {
	h := newAPI(t)
	tok := signUp(t, h, "ada@example.com")

	rec := do(t, h, http.MethodPost, "/v1/bookings", tok, map[string]any{
		"hotelId": "h-sea", "checkIn": future(30), "checkOut": future(33), "guests": 2, "rooms": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[domain.Booking](t, rec)
	assert.Equal(t, domain.StatusConfirmed, b.Status)
	assert.InDelta(t, 531, b.TotalCost, 1e-9)
	assert.Equal(t, "/v1/bookings/"+b.ID, rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/v1/bookings", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Booking](t, rec), 1)

	other := signUp(t, h, "bob@example.com")
	rec = do(t, h, http.MethodPost, "/v1/bookings/"+b.ID+"/cancel", other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/bookings/"+b.ID+"/cancel", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.StatusCancelled, decode[domain.Booking](t, rec).Status)

	rec = do(t, h, http.MethodPost, "/v1/bookings/"+b.ID+"/cancel", tok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/bookings/missing/cancel", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBooking_ValidationProblems(t *testing.T) {
	h := newAPI(t)
	tok := signUp(t, h, "ada@example.com")

	cases := []struct {
		name string
		body map[string]any
		want string
	}{
		{"reversed", map[string]any{"hotelId": "h-sea", "checkIn": future(5), "checkOut": future(3), "guests": 1, "rooms": 1}, "InvalidDateRange"},
		{"no guests", map[string]any{"hotelId": "h-sea", "checkIn": future(3), "checkOut": future(5), "guests": 0, "rooms": 1}, "InvalidGuestCount"},
		{"no rooms", map[string]any{"hotelId": "h-sea", "checkIn": future(3), "checkOut": future(5), "guests": 1, "rooms": 0}, "InvalidRoomCount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/bookings", tok, tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tc.want, decode[problemBody](t, rec).Code)
		})
	}

	rec := do(t, h, http.MethodPost, "/v1/bookings", tok, `{"hotelId":"h-sea","checkIn":"2030-01-01","checkOut":"2030-01-03","guests":1,"rooms":1,"pets":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/bookings", tok, map[string]any{"hotelId": "h-sea", "checkIn": "soon", "checkOut": future(3), "guests": 1, "rooms": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/bookings", tok, map[string]any{"checkIn": future(3), "checkOut": future(5), "guests": 1, "rooms": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[problemBody](t, rec).Detail, "hotelId")
}

func TestAuthRequired(t *testing.T) {
	h := newAPI(t)
	for _, path := range []string{"/v1/bookings", "/v1/me", "/v1/auth/session"} {
		rec := do(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		rec = do(t, h, http.MethodGet, path, "not-a-jwt", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	tok := signUp(t, h, "ada@example.com")
	rec := do(t, h, http.MethodPost, "/v1/auth/signout", tok, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodGet, "/v1/auth/session", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignInErrors(t *testing.T) {
	h := newAPI(t)
	signUp(t, h, "ada@example.com")

	rec := do(t, h, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"firstName": "Ada", "lastName": "L", "email": "ada@example.com", "password": "secret1", "confirmPassword": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/auth/signup", "", map[string]string{
		"firstName": "Ada", "lastName": "L", "email": "x@example.com", "password": "secret1", "confirmPassword": "secret2",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "PasswordMismatch", decode[problemBody](t, rec).Code)

	rec = do(t, h, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": "ada@example.com", "password": "nope12"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, domain.AuthWrongPassword, decode[problemBody](t, rec).Code)

	rec = do(t, h, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/auth/signin", "", map[string]string{"email": "nobody", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/v1/auth/reset-password", "", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestQuote(t *testing.T) {
	h := newAPI(t)

	rec := do(t, h, http.MethodPost, "/v1/quotes", "", map[string]any{"hotelId": "h-sea", "checkIn": "2024-12-15", "checkOut": "2024-12-18", "rooms": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decode[domain.PriceQuote](t, rec)
	assert.True(t, q.Valid)
	assert.InDelta(t, 531, q.Total, 1e-9)

	rec = do(t, h, http.MethodPost, "/v1/quotes", "", map[string]any{"hotelId": "h-sea", "checkIn": "2024-12-18", "checkOut": "2024-12-15"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.PriceQuote{}, decode[domain.PriceQuote](t, rec))

	rec = do(t, h, http.MethodPost, "/v1/quotes", "", map[string]any{"hotelId": "nope", "checkIn": "2024-12-15", "checkOut": "2024-12-18"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHotelsAndReviews(t *testing.T) {
	h := newAPI(t)

	rec := do(t, h, http.MethodGet, "/v1/hotels/h-sea", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/v1/hotels/h-sea", nil)
	req.Header.Set("If-None-Match", etag)
	nm := httptest.NewRecorder()
	h.ServeHTTP(nm, req)
	assert.Equal(t, http.StatusNotModified, nm.Code)

	rec = do(t, h, http.MethodGet, "/v1/hotels/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/hotels?q=lisbon&min_rating=4&sort=price-low", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[domain.HotelsPage](t, rec).Total)

	rec = do(t, h, http.MethodGet, "/v1/hotels?min_rating=high", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tok := signUp(t, h, "ada@example.com")
	rec = do(t, h, http.MethodPost, "/v1/hotels/h-sea/reviews", tok, map[string]any{"rating": 7, "comment": "wow"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "InvalidRating", decode[problemBody](t, rec).Code)

	rec = do(t, h, http.MethodPost, "/v1/hotels/h-sea/reviews", tok, map[string]any{"rating": 4, "comment": "Lovely terrace"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rv := decode[domain.Review](t, rec)
	assert.Equal(t, "Ada Lovelace", rv.Author)

	rec = do(t, h, http.MethodPost, "/v1/reviews/"+rv.ID+"/like", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[domain.Review](t, rec).Likes)

	rec = do(t, h, http.MethodGet, "/v1/hotels/h-sea/reviews", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Review](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/v1/hotels/h-sea/reviews/summary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[domain.ReviewSummary](t, rec)
	assert.Equal(t, 1, sum.Count)
	assert.InDelta(t, 4.0, sum.Average, 1e-9)

	rec = do(t, h, http.MethodGet, "/v1/me/reviews", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Review](t, rec), 1)
}

func TestProfile(t *testing.T) {
	h := newAPI(t)
	tok := signUp(t, h, "ada@example.com")

	rec := do(t, h, http.MethodGet, "/v1/me", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada Lovelace", decode[domain.User](t, rec).DisplayName)

	rec = do(t, h, http.MethodPatch, "/v1/me", tok, map[string]string{"displayName": "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, h, http.MethodPatch, "/v1/me", tok, map[string]string{"displayName": " Countess "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Countess", decode[domain.User](t, rec).DisplayName)
}

func TestBookingStream(t *testing.T) {
	h := newAPI(t)
	tok := signUp(t, h, "ada@example.com")
	ts := httptest.NewServer(h)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/bookings/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 8)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if line := sc.Text(); strings.HasPrefix(line, "data: ") {
				events <- strings.TrimPrefix(line, "data: ")
			}
		}
		close(events)
	}()

	next := func() []domain.Booking {
		select {
		case data, ok := <-events:
			require.True(t, ok, "stream closed")
			var bs []domain.Booking
			require.NoError(t, json.Unmarshal([]byte(data), &bs))
			return bs
		case <-ctx.Done():
			t.Fatal("no event")
			return nil
		}
	}
	assert.Empty(t, next())

	rec := do(t, h, http.MethodPost, "/v1/bookings", tok, map[string]any{
		"hotelId": "h-sea", "checkIn": future(10), "checkOut": future(12), "guests": 1, "rooms": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	for {
		if bs := next(); len(bs) == 1 {
			assert.Equal(t, domain.StatusConfirmed, bs[0].Status)
			return
		}
	}
}
