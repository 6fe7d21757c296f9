// Package ledger implements the append-only price history update.
//
// Update appends one observed price to a product's history and recomputes the
// derived statistics (lowest, highest, average) from the full post-append
// history. The stats are never patched incrementally, so they cannot drift
// from the recorded points.
//
// Policy: a new point is appended even when the observed price equals the
// most recent recorded price. Consecutive duplicates are kept; they leave
// lowest and highest unchanged and may shift the average slightly.
package ledger

import (
	"time"

	"github.com/alexkarev/pricewatch/internal/models"
)

// Stats holds the aggregate statistics derived from a price history.
type Stats struct {
	Lowest  float64
	Highest float64
	Average float64
}

// Update returns a new history with the observed price appended at time at,
// plus the stats recomputed over the full new history. The input slice is
// not mutated.
func Update(history []models.PricePoint, observed float64, at time.Time) ([]models.PricePoint, Stats) {
	updated := make([]models.PricePoint, 0, len(history)+1)
	updated = append(updated, history...)
	updated = append(updated, models.PricePoint{Price: observed, RecordedAt: at})
	return updated, Compute(updated)
}

// Compute derives the stats over an entire history. An empty history yields
// zero stats.
func Compute(history []models.PricePoint) Stats {
	if len(history) == 0 {
		return Stats{}
	}

	stats := Stats{
		Lowest:  history[0].Price,
		Highest: history[0].Price,
	}
	var sum float64
	for _, point := range history {
		if point.Price < stats.Lowest {
			stats.Lowest = point.Price
		}
		if point.Price > stats.Highest {
			stats.Highest = point.Price
		}
		sum += point.Price
	}
	stats.Average = sum / float64(len(history))
	return stats
}
