package models

import (
	"errors"
	"testing"
	"time"
)

func validProduct(t *testing.T) *Product {
	t.Helper()
	now := time.Now()
	return &Product{
		URL:           "https://shop.example.com/item/42",
		Title:         "Mechanical Keyboard",
		Currency:      "$",
		CurrentPrice:  99.99,
		OriginalPrice: 129.99,
		DiscountRate:  23,
		InStock:       true,
		PriceHistory: []PricePoint{
			{Price: 129.99, RecordedAt: now.Add(-48 * time.Hour)},
			{Price: 99.99, RecordedAt: now},
		},
		LowestPrice:  99.99,
		HighestPrice: 129.99,
		AveragePrice: 114.99,
		Watchers:     []Watcher{{Email: "alice@example.com"}},
		CreatedAt:    now.Add(-48 * time.Hour),
		UpdatedAt:    now,
	}
}

func TestProductValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Product)
		wantErr bool
	}{
		{"valid product", func(p *Product) {}, false},
		{"empty URL", func(p *Product) { p.URL = "" }, true},
		{"empty title", func(p *Product) { p.Title = "" }, true},
		{"negative current price", func(p *Product) { p.CurrentPrice = -1 }, true},
		{"negative original price", func(p *Product) { p.OriginalPrice = -0.01 }, true},
		{"discount above 100", func(p *Product) { p.DiscountRate = 101 }, true},
		{"negative discount", func(p *Product) { p.DiscountRate = -5 }, true},
		{"lowest above highest", func(p *Product) { p.LowestPrice = 200 }, true},
		{"negative history point", func(p *Product) { p.PriceHistory[0].Price = -10 }, true},
		{"watcher without at sign", func(p *Product) { p.Watchers[0].Email = "alice" }, true},
		{"no watchers", func(p *Product) { p.Watchers = nil }, false},
		{"no history", func(p *Product) {
			p.PriceHistory = nil
			p.LowestPrice, p.HighestPrice, p.AveragePrice = 0, 0, 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct(t)
			tt.mutate(p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScrapedProductValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScrapedProduct)
		wantErr bool
	}{
		{"valid snapshot", func(s *ScrapedProduct) {}, false},
		{"empty URL", func(s *ScrapedProduct) { s.URL = "" }, true},
		{"negative price", func(s *ScrapedProduct) { s.CurrentPrice = -1 }, true},
		{"discount above 100", func(s *ScrapedProduct) { s.DiscountRate = 120 }, true},
		{"empty title allowed", func(s *ScrapedProduct) { s.Title = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &ScrapedProduct{
				URL:           "https://shop.example.com/item/42",
				Title:         "Mechanical Keyboard",
				CurrentPrice:  99.99,
				OriginalPrice: 129.99,
				DiscountRate:  23,
				InStock:       true,
				FetchedAt:     time.Now(),
			}
			tt.mutate(s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWatcherEmails(t *testing.T) {
	p := validProduct(t)
	p.Watchers = []Watcher{{Email: "a@example.com"}, {Email: "b@example.com"}}

	emails := p.WatcherEmails()
	if len(emails) != 2 || emails[0] != "a@example.com" || emails[1] != "b@example.com" {
		t.Errorf("Unexpected emails: %v", emails)
	}

	p.Watchers = nil
	if got := p.WatcherEmails(); len(got) != 0 {
		t.Errorf("Expected no emails, got %v", got)
	}
}

func TestNotifyEventString(t *testing.T) {
	tests := []struct {
		event NotifyEvent
		want  string
	}{
		{EventNone, "none"},
		{EventPriceDrop, "price_drop"},
		{EventLowestPrice, "lowest_price"},
		{EventBackInStock, "back_in_stock"},
		{NotifyEvent(99), "none"},
	}

	for _, tt := range tests {
		if got := tt.event.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestProcessResultConstructors(t *testing.T) {
	p := validProduct(t)

	updated := Updated(p, EventPriceDrop)
	if !updated.OK() || updated.URL != p.URL || updated.Event != EventPriceDrop {
		t.Errorf("Unexpected updated result: %+v", updated)
	}

	skipped := Skip(p.URL)
	if skipped.OK() || !skipped.Skipped || skipped.Product != nil {
		t.Errorf("Unexpected skipped result: %+v", skipped)
	}

	failed := Failed(p.URL, StageFetch, errors.New("connection refused"))
	if failed.OK() || failed.Stage != StageFetch || failed.Err == nil {
		t.Errorf("Unexpected failed result: %+v", failed)
	}
}
