// Package notify decides which single notification event a product's state
// transition warrants.
//
// Classification compares the pre-update and post-update views of a product
// and picks exactly one event by explicit precedence, first match wins:
//
//  1. back in stock: out-of-stock → in-stock, regardless of price movement
//  2. lowest price: the new price strictly undercuts every recorded price
//  3. price drop: the fetched discount meets the configured threshold
//  4. none
//
// A product with no prior history never qualifies for the lowest-price event:
// its first observation establishes the baseline rather than beating one.
package notify

import "github.com/alexkarev/pricewatch/internal/models"

// Snapshot is a point-in-time view of a product's price and stock state.
// The previous snapshot comes from the stored record, the next one from the
// freshly scraped page.
type Snapshot struct {
	Price        float64
	DiscountRate float64 // percentage, 0–100
	InStock      bool
}

// Classify returns the single event for the transition from prev to next.
// priorLowest is the lowest recorded price before this run's ledger update;
// hasHistory reports whether any price point existed before this run.
// dropThreshold is the minimum discount percentage for a price-drop event.
// Pure and total: exactly one branch fires for any input.
func Classify(prev, next Snapshot, priorLowest float64, hasHistory bool, dropThreshold float64) models.NotifyEvent {
	if !prev.InStock && next.InStock {
		return models.EventBackInStock
	}
	if hasHistory && next.Price < priorLowest {
		return models.EventLowestPrice
	}
	if next.DiscountRate >= dropThreshold {
		return models.EventPriceDrop
	}
	return models.EventNone
}
