// Package telegram sends operator alerts via the Telegram Bot API.
//
// These are not watcher notifications: they tell the operator when scheduled
// runs start failing and when they recover, so a broken scraper or store does
// not fail silently between deployments.
package telegram

import (
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client posts operator alerts to a single chat.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a Telegram client for the given bot token and chat.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendRunFailure alerts the operator that a scheduled run failed.
func (c *Client) SendRunFailure(err error) error {
	return c.send(formatRunFailure(err))
}

// SendRunRecovery alerts the operator that runs are succeeding again after
// the given number of consecutive failures.
func (c *Client) SendRunRecovery(failures int) error {
	return c.send(formatRunRecovery(failures))
}

func (c *Client) send(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send alert after %d retries: %w", c.maxRetries, lastErr)
}

func formatRunFailure(err error) string {
	return fmt.Sprintf("pricewatch: scheduled run failed at %s\n%v",
		time.Now().Format("2006-01-02 15:04:05"), err)
}

func formatRunRecovery(failures int) string {
	runs := "run"
	if failures != 1 {
		runs = "runs"
	}
	return fmt.Sprintf("pricewatch: recovered after %d failed %s", failures, runs)
}
