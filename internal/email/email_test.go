package email

import (
	"strings"
	"testing"

	"github.com/alexkarev/pricewatch/internal/models"
)

func TestRender(t *testing.T) {
	info := models.ProductInfo{
		Title: "Wireless Headphones",
		URL:   "https://shop.example/p/1",
	}

	tests := []struct {
		event       models.NotifyEvent
		wantSubject string
		wantInBody  string
	}{
		{models.EventBackInStock, "back in stock", "restocked"},
		{models.EventLowestPrice, "Lowest price", "lowest price ever"},
		{models.EventPriceDrop, "Discount", "on sale"},
		{models.EventNone, "tracking started", "Welcome"},
	}

	var r Renderer
	for _, tt := range tests {
		t.Run(tt.event.String(), func(t *testing.T) {
			subject, body := r.Render(info, tt.event)
			if !strings.Contains(subject, tt.wantSubject) {
				t.Errorf("Subject %q does not contain %q", subject, tt.wantSubject)
			}
			if !strings.Contains(body, tt.wantInBody) {
				t.Errorf("Body does not contain %q", tt.wantInBody)
			}
			if !strings.Contains(body, info.URL) {
				t.Errorf("Body does not link the product URL")
			}
		})
	}
}

func TestRender_LongTitleShortened(t *testing.T) {
	info := models.ProductInfo{
		Title: strings.Repeat("very long title ", 10),
		URL:   "https://shop.example/p/1",
	}

	subject, _ := Renderer{}.Render(info, models.EventPriceDrop)
	if len(subject) > 80 {
		t.Errorf("Subject too long (%d): %q", len(subject), subject)
	}
	if !strings.Contains(subject, "...") {
		t.Errorf("Expected ellipsis in shortened subject, got %q", subject)
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(ClientConfig{Port: 587, From: "a@example.com"}); err == nil {
		t.Error("Expected error without host")
	}
	if _, err := NewClient(ClientConfig{Host: "smtp.example.com", Port: 587}); err == nil {
		t.Error("Expected error without from address")
	}
	if _, err := NewClient(ClientConfig{Host: "smtp.example.com", Port: 587, From: "a@example.com"}); err != nil {
		t.Errorf("Expected valid config to succeed, got %v", err)
	}
}
