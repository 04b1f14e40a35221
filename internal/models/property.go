package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Media kinds a property can carry.
const (
	MediaImage     = "image"
	MediaBrochure  = "brochure"
	MediaFloorPlan = "floor_plan"
)

// Property is a single catalog record for an off-plan development.
// The catalog is read-only from this service's perspective; records are
// maintained by the listings pipeline.
type Property struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	Name                    string    `gorm:"uniqueIndex;not null" json:"name"`
	Location                string    `json:"location"`
	Country                 string    `json:"country"`
	PropertyType            string    `json:"property_type"`
	Bedrooms                string    `json:"bedrooms"` // often a range, e.g. "1-3"
	Price                   string    `json:"price"`    // display price, e.g. "AED 1,500,000"
	PriceNumeric            float64   `json:"price_numeric"`
	Description             string    `json:"description"`
	Amenities               string    `json:"amenities"`
	HeroImageLink           string    `json:"hero_image_link"`
	CompressedHeroImageLink string    `json:"compressed_hero_image_link"`
	BrochureLink            string    `json:"brochure_link"`
	FloorPlanLink           string    `json:"floor_plan_link"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// SummaryText renders the property as the text block that gets embedded
// into the vector index.
func (p *Property) SummaryText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Property: %s\n", p.Name)
	fmt.Fprintf(&b, "Location: %s\n", p.Location)
	fmt.Fprintf(&b, "Country: %s\n", p.Country)
	fmt.Fprintf(&b, "Type: %s\n", p.PropertyType)
	fmt.Fprintf(&b, "Bedrooms: %s\n", p.Bedrooms)
	fmt.Fprintf(&b, "Price: %s\n", p.Price)
	fmt.Fprintf(&b, "Description: %s", p.Description)
	if p.Amenities != "" {
		fmt.Fprintf(&b, "\nAmenities: %s", p.Amenities)
	}
	return b.String()
}

// MediaURL returns the URL for the requested media kind. The second return
// is false when the record has no usable link for that kind.
func (p *Property) MediaURL(kind string) (string, bool) {
	var url string
	switch kind {
	case MediaImage:
		// Prefer the compressed hero image for WhatsApp delivery
		url = p.CompressedHeroImageLink
		if url == "" {
			url = p.HeroImageLink
		}
	case MediaBrochure:
		url = p.BrochureLink
	case MediaFloorPlan:
		url = p.FloorPlanLink
	}
	if url == "" || strings.EqualFold(url, "Not available") {
		return "", false
	}
	return url, true
}

// PriceValue returns the numeric price, falling back to digit extraction
// from the display string when the numeric column was never populated.
func (p *Property) PriceValue() float64 {
	if p.PriceNumeric > 0 {
		return p.PriceNumeric
	}
	var digits strings.Builder
	for _, r := range p.Price {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return 0
	}
	return v
}
