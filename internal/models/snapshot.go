package models

import (
	"errors"
	"time"
)

// ScrapedProduct is the freshly fetched view of a product, produced by the
// scraper. It is never persisted directly; the runner merges it into the
// stored Product after the ledger update.
type ScrapedProduct struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Currency      string    `json:"currency,omitempty"`
	CurrentPrice  float64   `json:"current_price"`
	OriginalPrice float64   `json:"original_price"`
	DiscountRate  float64   `json:"discount_rate"` // percentage, 0–100
	InStock       bool      `json:"in_stock"`
	Image         string    `json:"image,omitempty"`
	Category      string    `json:"category,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// Validate checks that the scraped fields are valid.
func (s *ScrapedProduct) Validate() error {
	if s.URL == "" {
		return errors.New("scraped URL must not be empty")
	}
	if s.CurrentPrice < 0 {
		return errors.New("scraped price must not be negative")
	}
	if s.OriginalPrice < 0 {
		return errors.New("scraped original price must not be negative")
	}
	if s.DiscountRate < 0 || s.DiscountRate > 100 {
		return errors.New("scraped discount rate must be between 0 and 100")
	}
	return nil
}
