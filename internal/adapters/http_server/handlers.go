// internal/adapters/http_server/handlers.go
package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"staybook/internal/app"
	"staybook/internal/domain"
)

type Handlers struct {
	Accounts *app.AccountService
	Hotels   *app.HotelService
	Bookings *app.BookingService
	Reviews  *app.ReviewService
}

func (s *Server) MountHandlers(h *Handlers) {
	auth := RequireSession(h.Accounts)

	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		r.Use(Timeout(requestTimeout))

		r.Post("/v1/auth/signup", h.signUp)
		r.Post("/v1/auth/signin", h.signIn)
		r.Post("/v1/auth/reset-password", h.resetPassword)
		r.Post("/v1/auth/reset-password/confirm", h.confirmPasswordReset)

		r.Get("/v1/hotels", h.listHotels)
		r.Get("/v1/hotels/{id}", h.getHotel)
		r.Get("/v1/hotels/{id}/reviews", h.listReviews)
		r.Get("/v1/hotels/{id}/reviews/summary", h.reviewSummary)
		r.Post("/v1/quotes", h.quote)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/v1/auth/signout", h.signOut)
			r.Get("/v1/auth/session", h.session)

			r.Post("/v1/hotels/{id}/reviews", h.createReview)
			r.Post("/v1/reviews/{id}/like", h.likeReview)

			r.Post("/v1/bookings", h.createBooking)
			r.Get("/v1/bookings", h.listBookings)
			r.Post("/v1/bookings/{id}/cancel", h.cancelBooking)

			r.Get("/v1/me", h.getProfile)
			r.Patch("/v1/me", h.updateProfile)
			r.Get("/v1/me/reviews", h.myReviews)
		})
	})

	// Long-lived; no request timeout.
	s.mux.With(auth).Get("/v1/bookings/stream", h.streamBookings)
}

func (h *Handlers) listHotels(w http.ResponseWriter, r *http.Request) {
	q := domain.HotelsQuery{
		Q:    r.URL.Query().Get("q"),
		Sort: domain.ParseHotelSort(r.URL.Query().Get("sort")),
	}
	if mr := r.URL.Query().Get("min_rating"); mr != "" {
		v, err := strconv.ParseFloat(mr, 64)
		if err != nil || v < 0 || v > 5 {
			writeProblem(w, http.StatusBadRequest, "Invalid min_rating", "min_rating must be a number between 0 and 5")
			return
		}
		q.MinRating = v
	}
	page, err := h.Hotels.ListHotels(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	hotel, err := h.Hotels.GetHotel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, hotel)
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	out, err := h.Reviews.ListHotelReviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) reviewSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Reviews.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rv, err := h.Reviews.CreateReview(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "id"), req.Rating, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (h *Handlers) likeReview(w http.ResponseWriter, r *http.Request) {
	rv, err := h.Reviews.LikeReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) myReviews(w http.ResponseWriter, r *http.Request) {
	out, err := h.Reviews.ListUserReviews(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
