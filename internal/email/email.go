// Package email renders watcher notifications and delivers them over SMTP.
//
// Content is rendered once per (product, event) pair and sent to the full
// watcher list in a single message. Delivery retries on transient SMTP
// failures before reporting an error to the pipeline.
package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/alexkarev/pricewatch/internal/logger"
	"github.com/alexkarev/pricewatch/internal/models"
)

// Renderer produces the subject and HTML body for a notification.
type Renderer struct{}

// Render returns the subject and body for the given product and event. The
// welcome variant is used by the subscribe flow, not by the processing run.
func (Renderer) Render(info models.ProductInfo, event models.NotifyEvent) (subject, body string) {
	switch event {
	case models.EventBackInStock:
		subject = fmt.Sprintf("%s is now back in stock!", shorten(info.Title, 40))
		body = fmt.Sprintf(`<div>
<h4>Hey, %s is now restocked! Grab yours before they run out again!</h4>
<p>See the product <a href="%s" target="_blank">here</a>.</p>
</div>`, info.Title, info.URL)
	case models.EventLowestPrice:
		subject = fmt.Sprintf("Lowest price alert for %s", shorten(info.Title, 40))
		body = fmt.Sprintf(`<div>
<h4>Hey, %s has reached its lowest price ever!</h4>
<p>Grab the product <a href="%s" target="_blank">here</a> now.</p>
</div>`, info.Title, info.URL)
	case models.EventPriceDrop:
		subject = fmt.Sprintf("Discount alert for %s", shorten(info.Title, 40))
		body = fmt.Sprintf(`<div>
<h4>Hey, %s is now on sale!</h4>
<p>Grab it right away from <a href="%s" target="_blank">here</a>.</p>
</div>`, info.Title, info.URL)
	default:
		subject = fmt.Sprintf("Price tracking started for %s", shorten(info.Title, 40))
		body = fmt.Sprintf(`<div>
<h4>Welcome to pricewatch!</h4>
<p>You are now tracking <a href="%s" target="_blank">%s</a>. You will be
notified when it drops in price, hits a new low, or comes back in stock.</p>
</div>`, info.URL, info.Title)
	}
	return subject, body
}

// shorten truncates a title for use in a subject line.
func shorten(title string, max int) string {
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}
	return string(runes[:max]) + "..."
}

// Client delivers notifications over SMTP.
type Client struct {
	dialer         *gomail.Dialer
	from           string
	maxRetries     int
	retryDelayBase time.Duration
}

// ClientConfig holds SMTP connection settings.
type ClientConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	From           string
	MaxRetries     int
	RetryDelayBase time.Duration
}

// NewClient creates an SMTP client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}

	return &Client{
		dialer:         gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:           cfg.From,
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}, nil
}

// Send delivers the rendered content to all given addresses in one message.
func (c *Client) Send(ctx context.Context, subject, body string, to []string) error {
	if len(to) == 0 {
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", c.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := c.dialer.DialAndSend(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send email after %d retries: %w", c.maxRetries, lastErr)
}

// Discard is a Sender that drops messages, used when SMTP is disabled.
type Discard struct{}

// Send logs the suppressed notification and reports success.
func (Discard) Send(ctx context.Context, subject, body string, to []string) error {
	logger.Debug("Email disabled, dropping %q to %d recipients", subject, len(to))
	return nil
}
