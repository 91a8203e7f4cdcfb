package domain

import (
	"math"
	"time"
)

// DefaultPackSize is used when a pharmacy does not report a pack size.
const DefaultPackSize = "1 Unit"

// PriceOffer is one product listing returned by a pharmacy.
type PriceOffer struct {
	// PharmacyID identifies the source that produced the offer.
	PharmacyID string `json:"pharmacy_id"`

	// PharmacyName is the display name of the source.
	PharmacyName string `json:"pharmacy_name"`

	ProductName string `json:"product_name"`

	// Price is the payable price in rupees.
	Price float64 `json:"price"`

	// OriginalPrice is the MRP when the pharmacy reports one.
	OriginalPrice *float64 `json:"original_price,omitempty"`

	// DiscountPercent is derived from OriginalPrice and Price.
	DiscountPercent *float64 `json:"discount_percent,omitempty"`

	PackSize     string `json:"pack_size"`
	InStock      bool   `json:"in_stock"`
	DeliveryDays *int   `json:"delivery_days,omitempty"`
	URL          string `json:"product_url,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// Validate reports whether the offer satisfies the offer invariants.
func (o PriceOffer) Validate() error {
	if o.PharmacyID == "" {
		return NewValidationError("pharmacy_id", "must not be empty")
	}
	if o.Price < 0 || math.IsNaN(o.Price) || math.IsInf(o.Price, 0) {
		return NewValidationError("price", "must be a non-negative number")
	}
	return nil
}

// DiscountPercent returns the percentage saved against the MRP, rounded to
// one decimal place. It returns nil when the MRP is unknown or not above
// the price.
func DiscountPercent(mrp, price float64) *float64 {
	if mrp <= 0 || price >= mrp {
		return nil
	}
	d := math.Round((mrp-price)/mrp*1000) / 10
	return &d
}
