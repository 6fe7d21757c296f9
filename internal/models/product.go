// Package models defines the core domain entities for the pricewatch application.
// These models represent tracked products, their append-only price ledgers, the
// watchers subscribed to them, and the results produced by a processing run.
// All persisted models include built-in validation to ensure data integrity
// throughout the application.
//
// Terminology:
//   - Product: one tracked catalog item, identified by its source URL.
//   - Price point: a single observed price, recorded at run processing time.
//   - Watcher: an email address subscribed to notifications for a product.
package models

import (
	"errors"
	"strings"
	"time"
)

// Watcher is an email subscription to one product. Watchers are added and
// removed by flows outside the processing core; the core only resolves them
// from the store after a successful upsert.
type Watcher struct {
	Email string `json:"email"`
}

// Validate checks that the watcher has a plausible email address.
func (w *Watcher) Validate() error {
	if w.Email == "" {
		return errors.New("watcher email must not be empty")
	}
	if !strings.Contains(w.Email, "@") {
		return errors.New("watcher email must contain '@'")
	}
	return nil
}

// PricePoint is one observed price in a product's ledger. The timestamp is
// the processing time of the run that recorded it.
type PricePoint struct {
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Validate checks that the price point fields are valid.
func (p *PricePoint) Validate() error {
	if p.Price < 0 {
		return errors.New("price must not be negative")
	}
	if p.RecordedAt.After(time.Now()) {
		return errors.New("recorded at must not be in the future")
	}
	return nil
}

// Product represents a tracked catalog item. The source URL is the identity
// key; PriceHistory is append-only and chronological; LowestPrice,
// HighestPrice, and AveragePrice are recomputed from the full history on
// every update.
type Product struct {
	URL           string       `json:"url"` // identity key
	Title         string       `json:"title"`
	Currency      string       `json:"currency,omitempty"`
	CurrentPrice  float64      `json:"current_price"`
	OriginalPrice float64      `json:"original_price"`
	DiscountRate  float64      `json:"discount_rate"` // percentage, 0–100
	InStock       bool         `json:"in_stock"`
	Image         string       `json:"image,omitempty"`
	Category      string       `json:"category,omitempty"`
	PriceHistory  []PricePoint `json:"price_history"`
	LowestPrice   float64      `json:"lowest_price"`
	HighestPrice  float64      `json:"highest_price"`
	AveragePrice  float64      `json:"average_price"`
	Watchers      []Watcher    `json:"watchers,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Validate checks that all product fields are valid.
func (p *Product) Validate() error {
	if p.URL == "" {
		return errors.New("product URL must not be empty")
	}
	if p.Title == "" {
		return errors.New("product title must not be empty")
	}
	if p.CurrentPrice < 0 {
		return errors.New("current price must not be negative")
	}
	if p.OriginalPrice < 0 {
		return errors.New("original price must not be negative")
	}
	if p.DiscountRate < 0 || p.DiscountRate > 100 {
		return errors.New("discount rate must be between 0 and 100")
	}
	if p.LowestPrice < 0 || p.HighestPrice < 0 || p.AveragePrice < 0 {
		return errors.New("derived stats must not be negative")
	}
	if p.LowestPrice > p.HighestPrice {
		return errors.New("lowest price must not exceed highest price")
	}
	for i := range p.PriceHistory {
		if err := p.PriceHistory[i].Validate(); err != nil {
			return err
		}
	}
	for i := range p.Watchers {
		if err := p.Watchers[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// WatcherEmails returns the email addresses of all watchers, in stored order.
func (p *Product) WatcherEmails() []string {
	emails := make([]string, 0, len(p.Watchers))
	for _, w := range p.Watchers {
		emails = append(emails, w.Email)
	}
	return emails
}

// ProductInfo is the minimal view of a product handed to the notification
// renderer.
type ProductInfo struct {
	Title string
	URL   string
}
