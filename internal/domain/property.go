package domain

import (
	"time"
)

// Property status constants.
const (
	PropertyStatusDraft     = "draft"
	PropertyStatusAvailable = "available"
	PropertyStatusPending   = "pending"
	PropertyStatusSold      = "sold"
	PropertyStatusRented    = "rented"
	PropertyStatusArchived  = "archived"
)

// Listing type constants.
const (
	ListingTypeSale = "sale"
	ListingTypeRent = "rent"
)

// ValidPropertyStatuses returns the set of valid property statuses.
func ValidPropertyStatuses() []string {
	return []string{
		PropertyStatusDraft,
		PropertyStatusAvailable,
		PropertyStatusPending,
		PropertyStatusSold,
		PropertyStatusRented,
		PropertyStatusArchived,
	}
}

// IsValidPropertyStatus checks whether the given status is valid.
func IsValidPropertyStatus(status string) bool {
	for _, s := range ValidPropertyStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// Property represents a real-estate listing owned by an agent.
type Property struct {
	ID          string   `json:"id"`
	AgentID     string   `json:"agent_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	ListingType string   `json:"listing_type"`
	Status      string   `json:"status"`
	Address     string   `json:"address"`
	City        string   `json:"city"`
	PostalCode  string   `json:"postal_code,omitempty"`
	Bedrooms    int      `json:"bedrooms"`
	Bathrooms   int      `json:"bathrooms"`
	AreaSqm     float64  `json:"area_sqm"`
	Amenities   []string `json:"amenities,omitempty"`

	// Linked media, populated when the aggregate is fetched.
	Images []PropertyImage `json:"property_images"`
	Videos []PropertyVideo `json:"property_videos"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
