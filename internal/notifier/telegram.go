package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tradesim/internal/pkg/circuit"
	"tradesim/internal/pkg/text"
)

const (
	defaultTelegramBaseURL = "https://api.telegram.org"
	defaultTelegramRetries = 3
	// Bot API rejects longer messages.
	telegramMaxRunes = 4096
)

// Telegram posts Markdown messages through the Bot API.
type Telegram struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Client   *http.Client
	Retries  int
	// Backoff returns the pause after a failed attempt (0-based).
	Backoff func(attempt int) time.Duration

	breaker *circuit.CircuitBreaker
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  defaultTelegramBaseURL,
		Client:   &http.Client{Timeout: 15 * time.Second},
		Retries:  defaultTelegramRetries,
		Backoff:  func(attempt int) time.Duration { return time.Duration(attempt+1) * time.Second },
	}
}

// WithBreaker guards every send with cb.
func (t *Telegram) WithBreaker(cb *circuit.CircuitBreaker) *Telegram {
	t.breaker = cb
	return t
}

// SendText sends msg, retrying transport errors and non-2xx replies.
func (t *Telegram) SendText(ctx context.Context, msg string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram bot_token and chat_id are required")
	}
	if t.breaker == nil {
		return t.send(ctx, msg)
	}
	return t.breaker.Do(func() error { return t.send(ctx, msg) })
}

func (t *Telegram) send(ctx context.Context, msg string) error {
	base := strings.TrimRight(t.BaseURL, "/")
	if base == "" {
		base = defaultTelegramBaseURL
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken)
	body, err := json.Marshal(map[string]any{
		"chat_id":    t.ChatID,
		"text":       text.Truncate(msg, telegramMaxRunes),
		"parse_mode": "Markdown",
	})
	if err != nil {
		return err
	}
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	retries := t.Retries
	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for i := 0; i < retries; i++ {
		if i > 0 && !t.pause(ctx, i-1) {
			return ctx.Err()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return lastErr
}

func (t *Telegram) pause(ctx context.Context, attempt int) bool {
	if t.Backoff == nil {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(t.Backoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
