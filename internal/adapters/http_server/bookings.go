package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"staybook/internal/domain"
)

type stayRequest struct {
	HotelID  string `json:"hotelId" validate:"required"`
	CheckIn  string `json:"checkIn" validate:"required"`
	CheckOut string `json:"checkOut" validate:"required"`
}

func (s stayRequest) dates() (time.Time, time.Time, error) {
	in, err := parseDate(s.CheckIn)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("checkIn: %w", err)
	}
	out, err := parseDate(s.CheckOut)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("checkOut: %w", err)
	}
	return in, out, nil
}

type quoteRequest struct {
	stayRequest
	Rooms int `json:"rooms"`
}

type bookingRequest struct {
	stayRequest
	Guests          int    `json:"guests"`
	Rooms           int    `json:"rooms"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

// quote prices a stay without booking it. An impossible range comes back as
// the zero quote with valid=false rather than an error.
func (h *Handlers) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, out, err := req.dates()
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", err.Error())
		return
	}
	if req.Rooms == 0 {
		req.Rooms = 1
	}
	q, err := h.Bookings.Quote(r.Context(), req.HotelID, in, out, req.Rooms)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, out, err := req.dates()
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", err.Error())
		return
	}
	b, err := h.Bookings.CreateBooking(r.Context(), sessionFrom(r.Context()), domain.BookingRequest{
		HotelID:         req.HotelID,
		CheckIn:         in,
		CheckOut:        out,
		Guests:          req.Guests,
		Rooms:           req.Rooms,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/bookings/"+b.ID)
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	out, err := h.Bookings.ListBookings(r.Context(), sessionFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Bookings.CancelBooking(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// streamBookings pushes the caller's booking list as server-sent events until
// the client goes away. Only the latest list is kept if the client lags.
func (h *Handlers) streamBookings(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming Unsupported", "")
		return
	}
	ctx := r.Context()
	sess := sessionFrom(ctx)

	updates := make(chan []domain.Booking, 1)
	cancel, err := h.Bookings.SubscribeBookings(ctx, sess.UserID, func(bs []domain.Booking) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- bs:
		default:
		}
	})
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case bs := <-updates:
			data, err := json.Marshal(bs)
			if err != nil {
				log.Error().Err(err).Msg("encode booking event failed")
				return
			}
			if _, err := fmt.Fprintf(w, "event: bookings\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
