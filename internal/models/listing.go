package models

import "time"

// ListingStatus is the sale state of a property listing.
type ListingStatus string

const (
	ListingActive  ListingStatus = "active"
	ListingPending ListingStatus = "pending"
	ListingSold    ListingStatus = "sold"
)

// Listing is a property shown on the public site.
type Listing struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Address     string        `json:"address"`
	Price       int64         `json:"price"`
	Bedrooms    int           `json:"bedrooms,omitempty"`
	Bathrooms   float64       `json:"bathrooms,omitempty"`
	SquareFeet  int           `json:"squareFeet,omitempty"`
	Description string        `json:"description,omitempty"`
	ImageURL    string        `json:"imageUrl,omitempty"`
	Images      []string      `json:"images,omitempty"`
	Status      ListingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// RecordID returns the collection identity.
func (l Listing) RecordID() string { return l.ID }
