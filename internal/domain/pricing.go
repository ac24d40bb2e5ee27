package domain

import (
	"math"
	"time"
)

const (
	ServiceFeeRate = 0.10
	TaxRate        = 0.08
)

// PriceQuote is the price breakdown of a stay. A quote with Valid == false is
// the sentinel for an empty or inverted date range and carries zero amounts.
type PriceQuote struct {
	Nights     int     `json:"nights"`
	Subtotal   float64 `json:"subtotal"`
	ServiceFee float64 `json:"serviceFee"`
	Tax        float64 `json:"tax"`
	Total      float64 `json:"total"`
	Valid      bool    `json:"valid"`
}

// Nights counts started days between check-in and check-out.
func Nights(checkIn, checkOut time.Time) int {
	d := checkOut.Sub(checkIn)
	return int(math.Ceil(d.Hours() / 24))
}

// Quote prices rooms × nights at the nightly rate plus service fee and tax.
func Quote(nightlyRate float64, checkIn, checkOut time.Time, rooms int) PriceQuote {
	nights := Nights(checkIn, checkOut)
	if nights <= 0 || rooms <= 0 || nightlyRate <= 0 {
		return PriceQuote{}
	}
	subtotal := nightlyRate * float64(nights) * float64(rooms)
	fee := subtotal * ServiceFeeRate
	tax := subtotal * TaxRate
	return PriceQuote{
		Nights:     nights,
		Subtotal:   subtotal,
		ServiceFee: fee,
		Tax:        tax,
		Total:      subtotal + fee + tax,
		Valid:      true,
	}
}
