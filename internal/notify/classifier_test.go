package notify

import (
	"testing"

	"github.com/alexkarev/pricewatch/internal/models"
)

const threshold = 10.0

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		prev        Snapshot
		next        Snapshot
		priorLowest float64
		hasHistory  bool
		want        models.NotifyEvent
	}{
		{
			name:        "back in stock",
			prev:        Snapshot{Price: 100, InStock: false},
			next:        Snapshot{Price: 100, InStock: true},
			priorLowest: 100,
			hasHistory:  true,
			want:        models.EventBackInStock,
		},
		{
			name:        "back in stock wins over new lowest price",
			prev:        Snapshot{Price: 100, InStock: false},
			next:        Snapshot{Price: 50, DiscountRate: 50, InStock: true},
			priorLowest: 90,
			hasHistory:  true,
			want:        models.EventBackInStock,
		},
		{
			name:        "new lowest price",
			prev:        Snapshot{Price: 110, InStock: true},
			next:        Snapshot{Price: 90, InStock: true},
			priorLowest: 110,
			hasHistory:  true,
			want:        models.EventLowestPrice,
		},
		{
			name:        "lowest price wins over price drop",
			prev:        Snapshot{Price: 110, InStock: true},
			next:        Snapshot{Price: 90, DiscountRate: 25, InStock: true},
			priorLowest: 110,
			hasHistory:  true,
			want:        models.EventLowestPrice,
		},
		{
			name:        "price equal to prior lowest is not a new lowest",
			prev:        Snapshot{Price: 90, InStock: true},
			next:        Snapshot{Price: 90, InStock: true},
			priorLowest: 90,
			hasHistory:  true,
			want:        models.EventNone,
		},
		{
			name:        "discount at threshold fires price drop",
			prev:        Snapshot{Price: 100, InStock: true},
			next:        Snapshot{Price: 95, DiscountRate: 10, InStock: true},
			priorLowest: 80,
			hasHistory:  true,
			want:        models.EventPriceDrop,
		},
		{
			name:        "discount below threshold",
			prev:        Snapshot{Price: 100, InStock: true},
			next:        Snapshot{Price: 95, DiscountRate: 9.5, InStock: true},
			priorLowest: 80,
			hasHistory:  true,
			want:        models.EventNone,
		},
		{
			name:        "no history never yields lowest price",
			prev:        Snapshot{InStock: true},
			next:        Snapshot{Price: 100, InStock: true},
			priorLowest: 0,
			hasHistory:  false,
			want:        models.EventNone,
		},
		{
			name:        "no history still yields back in stock",
			prev:        Snapshot{InStock: false},
			next:        Snapshot{Price: 100, InStock: true},
			priorLowest: 0,
			hasHistory:  false,
			want:        models.EventBackInStock,
		},
		{
			name:        "going out of stock is not an event",
			prev:        Snapshot{Price: 100, InStock: true},
			next:        Snapshot{Price: 100, InStock: false},
			priorLowest: 90,
			hasHistory:  true,
			want:        models.EventNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.prev, tt.next, tt.priorLowest, tt.hasHistory, threshold)
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Classify is pure: identical inputs always yield identical events.
func TestClassify_Deterministic(t *testing.T) {
	prev := Snapshot{Price: 110, DiscountRate: 5, InStock: false}
	next := Snapshot{Price: 90, DiscountRate: 20, InStock: true}

	first := Classify(prev, next, 100, true, threshold)
	for i := 0; i < 100; i++ {
		if got := Classify(prev, next, 100, true, threshold); got != first {
			t.Fatalf("Classify returned %v on call %d, expected %v", got, i, first)
		}
	}
}
