package domain

import (
	"strings"
	"time"
)

// PlaceholderImage is shown for products without images.
const PlaceholderImage = "/static/images/product-placeholder.svg"

// DefaultCurrency applies when a product declares none.
const DefaultCurrency = "USD"

// Specs is the free-form attribute bag stored with each product.
type Specs map[string]any

// Price returns the raw price value and whether one is set. A JSON null
// counts as unset.
func (s Specs) Price() (any, bool) {
	v, ok := s["price"]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Currency returns the upper-cased ISO 4217 code, DefaultCurrency when absent.
func (s Specs) Currency() string {
	if c, ok := s["currency"].(string); ok {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			return c
		}
	}
	return DefaultCurrency
}

// Model returns the phone-model category token, if any.
func (s Specs) Model() string {
	m, _ := s["model"].(string)
	return strings.TrimSpace(m)
}

// Product is a catalog entry as read by the pricing page. The catalog never
// writes products.
type Product struct {
	ID        string     `json:"id"`
	Title     *string    `json:"title,omitempty"`
	Specs     Specs      `json:"specs,omitempty"`
	Images    []string   `json:"images,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// DisplayTitle returns the title, or "Untitled" when none is set.
func (p *Product) DisplayTitle() string {
	if p.Title == nil || strings.TrimSpace(*p.Title) == "" {
		return "Untitled"
	}
	return *p.Title
}

// PrimaryImage returns the first image URL. PlaceholderImage stands in when
// there are no images or the first one is blank; later images are not
// consulted.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return PlaceholderImage
	}
	if img := strings.TrimSpace(p.Images[0]); img != "" {
		return img
	}
	return PlaceholderImage
}
