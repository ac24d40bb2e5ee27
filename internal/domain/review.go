package domain

import (
	"strings"
	"time"
)

type Review struct {
	ID        string    `json:"id"`
	HotelID   string    `json:"hotelId"`
	UserID    string    `json:"userId"`
	Author    string    `json:"author"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ValidateReview checks a review before it reaches the store.
func ValidateReview(rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return NewValidationError(InvalidRating, "rating must be between 1 and 5 stars")
	}
	if strings.TrimSpace(comment) == "" {
		return NewValidationError(EmptyComment, "please write a review before submitting")
	}
	return nil
}

// ReviewSummary aggregates the star ratings of one hotel.
type ReviewSummary struct {
	HotelID   string      `json:"hotelId"`
	Count     int         `json:"count"`
	Average   float64     `json:"average"`
	Breakdown map[int]int `json:"breakdown"`
}

// Summarize computes count, average and per-star counts (1..5 always present).
func Summarize(hotelID string, rs []Review) ReviewSummary {
	out := ReviewSummary{HotelID: hotelID, Breakdown: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}}
	sum := 0
	for _, r := range rs {
		if r.Rating < 1 || r.Rating > 5 {
			continue
		}
		out.Breakdown[r.Rating]++
		out.Count++
		sum += r.Rating
	}
	if out.Count > 0 {
		out.Average = float64(sum) / float64(out.Count)
	}
	return out
}
