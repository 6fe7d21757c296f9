// Package scraper fetches a product page and extracts its current price,
// title, and stock status.
//
// Extraction tries a list of selectors per field, so the same client works
// across the storefront layouts the tracker supports. A page from which no
// price can be extracted is reported as "nothing to update" (nil snapshot),
// not as an error.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/alexkarev/pricewatch/internal/models"
)

// Client fetches and parses product pages.
type Client struct {
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
	userAgent      string
}

// ClientConfig holds optional client tuning.
type ClientConfig struct {
	MaxRetries     int
	RetryDelayBase time.Duration
	UserAgent      string
}

// NewClient creates a scraper client with the given request timeout.
func NewClient(timeout time.Duration, cfg ClientConfig) *Client {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) pricewatch/1.0"
	}
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
		userAgent:      cfg.UserAgent,
	}
}

// Selectors tried in order per field.
var (
	titleSelectors = []string{"#productTitle", "h1.product-title", "h1[itemprop=name]", "h1"}
	priceSelectors = []string{
		".priceToPay span.a-offscreen",
		".a-price.a-text-price span.a-offscreen",
		"#priceblock_ourprice",
		"[itemprop=price]",
		".product-price",
		".price",
	}
	originalPriceSelectors = []string{
		"#priceblock_listprice",
		".a-price.a-text-price span.a-offscreen",
		".list-price",
		".original-price",
	}
	availabilitySelectors = []string{"#availability span", ".availability", ".stock-status"}
	discountSelectors     = []string{".savingsPercentage", ".discount", ".sale-badge"}
	imageSelectors        = []string{"#landingImage", "#imgBlkFront", "img.product-image"}
)

// Fetch retrieves the product page at url and extracts a snapshot. Returns
// (nil, nil) when the page yields no price, which the pipeline treats as
// nothing to update.
func (c *Client) Fetch(ctx context.Context, url string) (*models.ScrapedProduct, error) {
	resp, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}

	price, currency, ok := extractPrice(doc, priceSelectors)
	if !ok {
		return nil, nil
	}

	snapshot := &models.ScrapedProduct{
		URL:          url,
		Title:        extractText(doc, titleSelectors),
		Currency:     currency,
		CurrentPrice: price,
		InStock:      extractInStock(doc),
		Image:        extractAttr(doc, imageSelectors, "src"),
		FetchedAt:    time.Now(),
	}

	if original, _, ok := extractPrice(doc, originalPriceSelectors); ok && original > 0 {
		snapshot.OriginalPrice = original
	} else {
		snapshot.OriginalPrice = price
	}

	snapshot.DiscountRate = extractDiscount(doc)
	if snapshot.DiscountRate == 0 && snapshot.OriginalPrice > snapshot.CurrentPrice {
		snapshot.DiscountRate = (1 - snapshot.CurrentPrice/snapshot.OriginalPrice) * 100
	}

	return snapshot, nil
}

// doRequest performs the HTTP GET with retry on transport errors and 5xx.
func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

var (
	priceRe    = regexp.MustCompile(`(\d{1,3}(?:[.,]\d{3})+|\d+)(?:[.,](\d{1,2}))?`)
	currencyRe = regexp.MustCompile(`[$€£¥₹]|USD|EUR|GBP|RUB`)
	percentRe  = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*%`)
)

// ParsePrice extracts a numeric price and currency symbol from raw text like
// "$1,299.99" or "89,90 €". Returns ok=false when no digits are present.
func ParsePrice(text string) (price float64, currency string, ok bool) {
	currency = currencyRe.FindString(text)

	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0, currency, false
	}

	whole := strings.NewReplacer(".", "", ",", "", " ", "").Replace(m[1])
	value, err := strconv.ParseFloat(whole, 64)
	if err != nil {
		return 0, currency, false
	}
	if m[2] != "" {
		frac, err := strconv.ParseFloat("0."+m[2], 64)
		if err == nil {
			value += frac
		}
	}
	return value, currency, true
}

func extractPrice(doc *goquery.Document, selectors []string) (float64, string, bool) {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text == "" {
			if content, exists := doc.Find(sel).First().Attr("content"); exists {
				text = content
			}
		}
		if text == "" {
			continue
		}
		if price, currency, ok := ParsePrice(text); ok {
			return price, currency, true
		}
	}
	return 0, "", false
}

func extractText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func extractAttr(doc *goquery.Document, selectors []string, attr string) string {
	for _, sel := range selectors {
		if value, exists := doc.Find(sel).First().Attr(attr); exists && value != "" {
			return value
		}
	}
	return ""
}

func extractInStock(doc *goquery.Document) bool {
	text := strings.ToLower(extractText(doc, availabilitySelectors))
	if text == "" {
		return true // no availability block means orderable on every layout we track
	}
	for _, marker := range []string{"unavailable", "out of stock", "sold out"} {
		if strings.Contains(text, marker) {
			return false
		}
	}
	return true
}

func extractDiscount(doc *goquery.Document) float64 {
	text := extractText(doc, discountSelectors)
	m := percentRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || value < 0 || value > 100 {
		return 0
	}
	return value
}
