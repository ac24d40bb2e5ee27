package domain

import "time"

// Hotel is a catalog entry. The booking flow only reads it.
type Hotel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	NightlyRate float64   `json:"nightlyRate"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
	Amenities   []string  `json:"amenities"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Check reports catalog entries that could never be priced or displayed.
func (h Hotel) Check() error {
	switch {
	case h.ID == "":
		return NewValidationError(InvalidHotel, "hotel id is required")
	case h.Name == "":
		return NewValidationError(InvalidHotel, "hotel name is required")
	case h.NightlyRate <= 0:
		return NewValidationError(InvalidHotel, "nightly rate must be positive")
	case h.Rating < 0 || h.Rating > 5:
		return NewValidationError(InvalidHotel, "rating must be between 0 and 5")
	case h.ReviewCount < 0:
		return NewValidationError(InvalidHotel, "review count cannot be negative")
	}
	return nil
}

// HotelSort selects the ordering of a hotel listing.
type HotelSort string

const (
	SortDefault   HotelSort = "default"
	SortPriceLow  HotelSort = "price-low"
	SortPriceHigh HotelSort = "price-high"
	SortRating    HotelSort = "rating"
)

// ParseHotelSort maps unknown or empty values to SortDefault.
func ParseHotelSort(s string) HotelSort {
	switch HotelSort(s) {
	case SortPriceLow, SortPriceHigh, SortRating:
		return HotelSort(s)
	}
	return SortDefault
}

type HotelsQuery struct {
	Q         string
	MinRating float64
	Sort      HotelSort
}

type HotelsPage struct {
	Items []Hotel `json:"items"`
	Total int     `json:"total"`
}
