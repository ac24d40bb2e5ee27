package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Collection names. Every collection is flat; ownership lives in a field
// (bookings.userId, reviews.hotelId / reviews.userId).
const (
	CollectionHotels      = "hotels"
	CollectionBookings    = "bookings"
	CollectionReviews     = "reviews"
	CollectionUsers       = "users"
	CollectionCredentials = "credentials"
)

// Document is one stored record. Body holds the JSON of a fixed schema type.
type Document struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Body      json.RawMessage `json:"body"`
}

// Filter is an equality match on a top-level body field.
type Filter struct {
	Field string
	Value string
}

type DocQuery struct {
	Where []Filter
	// Newest first when true, oldest first otherwise. Ties break on id.
	Desc  bool
	Limit int
}

// Patch holds top-level body fields to overwrite.
type Patch map[string]any

// CancelFunc stops a subscription. It is safe to call more than once.
type CancelFunc func()

// NewDocument encodes v as the body of a document with the given id and time.
func NewDocument(id string, createdAt time.Time, v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("encode %T: %w", v, err)
	}
	return Document{ID: id, CreatedAt: createdAt, UpdatedAt: createdAt, Body: b}, nil
}

// Decode unmarshals the body into dst, rejecting fields the schema does not know.
func (d Document) Decode(dst any) error {
	dec := json.NewDecoder(bytes.NewReader(d.Body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return NewValidationError(MalformedDocument, fmt.Sprintf("document %s: %v", d.ID, err))
	}
	return nil
}
