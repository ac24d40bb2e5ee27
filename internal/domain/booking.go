package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// validTransitions defines the state machine for booking status transitions.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

func (s BookingStatus) String() string { return string(s) }

// ParseBookingStatus converts a string to a BookingStatus, returning an error if invalid.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

// BookingRequest is the guest's input for a new stay.
type BookingRequest struct {
	HotelID         string    `json:"hotelId"`
	CheckIn         time.Time `json:"checkIn"`
	CheckOut        time.Time `json:"checkOut"`
	Guests          int       `json:"guests"`
	Rooms           int       `json:"rooms"`
	SpecialRequests string    `json:"specialRequests,omitempty"`
}

// Booking is a persisted stay. It is never deleted, only cancelled.
type Booking struct {
	ID              string        `json:"id"`
	Reference       string        `json:"reference"`
	HotelID         string        `json:"hotelId"`
	HotelName       string        `json:"hotelName"`
	UserID          string        `json:"userId"`
	CheckIn         time.Time     `json:"checkIn"`
	CheckOut        time.Time     `json:"checkOut"`
	Nights          int           `json:"nights"`
	Guests          int           `json:"guests"`
	Rooms           int           `json:"rooms"`
	SpecialRequests string        `json:"specialRequests,omitempty"`
	NightlyRate     float64       `json:"nightlyRate"`
	Subtotal        float64       `json:"subtotal"`
	ServiceFee      float64       `json:"serviceFee"`
	Tax             float64       `json:"tax"`
	TotalCost       float64       `json:"totalCost"`
	Status          BookingStatus `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	CancelledAt     *time.Time    `json:"cancelledAt,omitempty"`
	CompletedAt     *time.Time    `json:"completedAt,omitempty"`
}

const referenceChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// generateReference creates a booking reference in the format "BK-XXXXXX".
func generateReference() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking reference: %w", err)
		}
		result[i] = referenceChars[n.Int64()]
	}
	return "BK-" + string(result), nil
}

// NewBooking builds a confirmed booking from an already validated request and its quote.
func NewBooking(id string, hotel Hotel, userID string, req BookingRequest, q PriceQuote, now time.Time) (*Booking, error) {
	if !q.Valid {
		return nil, NewValidationError(InvalidDateRange, "check-out date must be after check-in date")
	}
	ref, err := generateReference()
	if err != nil {
		return nil, err
	}
	return &Booking{
		ID:              id,
		Reference:       ref,
		HotelID:         hotel.ID,
		HotelName:       hotel.Name,
		UserID:          userID,
		CheckIn:         req.CheckIn.UTC(),
		CheckOut:        req.CheckOut.UTC(),
		Nights:          q.Nights,
		Guests:          req.Guests,
		Rooms:           req.Rooms,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		NightlyRate:     hotel.NightlyRate,
		Subtotal:        q.Subtotal,
		ServiceFee:      q.ServiceFee,
		Tax:             q.Tax,
		TotalCost:       q.Total,
		Status:          StatusConfirmed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Cancellable reports whether the guest may still cancel at now.
func (b *Booking) Cancellable(now time.Time) bool {
	return b.Status.CanTransitionTo(StatusCancelled) && now.Before(b.CheckIn)
}

// Cancel transitions a confirmed, not yet started booking to cancelled.
func (b *Booking) Cancel(now time.Time) error {
	if !b.Cancellable(now) {
		return ErrNotCancellable
	}
	b.Status = StatusCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now
	return nil
}

// CompletionDue reports whether the stay is over and the booking still confirmed.
func (b *Booking) CompletionDue(now time.Time) bool {
	return b.Status.CanTransitionTo(StatusCompleted) && now.After(b.CheckOut)
}

// Complete transitions a confirmed booking whose check-out has passed to completed.
func (b *Booking) Complete(now time.Time) error {
	if !b.Status.CanTransitionTo(StatusCompleted) {
		return fmt.Errorf("cannot complete booking in status %s", b.Status)
	}
	if !now.After(b.CheckOut) {
		return fmt.Errorf("booking %s has not checked out yet", b.ID)
	}
	b.Status = StatusCompleted
	b.CompletedAt = &now
	b.UpdatedAt = now
	return nil
}
