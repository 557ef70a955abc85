package config

import (
	"fmt"
	"strings"

	"tradesim/internal/pkg/symbol"
	"tradesim/internal/scheduler"
)

func validate(c *Config) error {
	switch strings.ToLower(strings.TrimSpace(c.App.LogLevel)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be one of debug|info|warn|error, got %q", c.App.LogLevel)
	}
	if strings.TrimSpace(c.App.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	if !symbol.IsValid(c.Market.Symbol) {
		return fmt.Errorf("market.symbol must look like BASE/QUOTE, got %q", c.Market.Symbol)
	}
	if _, err := scheduler.ParseInterval(c.Market.Interval); err != nil {
		return fmt.Errorf("market.interval: %w", err)
	}
	if err := c.Journal.validate("journal"); err != nil {
		return err
	}
	if err := c.TickLog.validate("ticklog"); err != nil {
		return err
	}
	if err := c.Notify.validate(); err != nil {
		return err
	}
	if err := c.Chart.validate(); err != nil {
		return err
	}
	if err := c.HTTP.validate(); err != nil {
		return err
	}
	// market, ledger, bot and history ranges are checked by the session itself
	sc, err := c.SessionConfig()
	if err != nil {
		return err
	}
	return sc.Validate()
}

func (s StoreConfig) validate(section string) error {
	if s.Enabled && strings.TrimSpace(s.Path) == "" {
		return fmt.Errorf("%s.path cannot be empty when %s is enabled", section, section)
	}
	return nil
}

func (n NotifyConfig) validate() error {
	tg := n.Telegram
	if !tg.Enabled {
		return nil
	}
	if strings.TrimSpace(tg.BotToken) == "" {
		return fmt.Errorf("notify.telegram.bot_token is required when telegram is enabled")
	}
	if strings.TrimSpace(tg.ChatID) == "" {
		return fmt.Errorf("notify.telegram.chat_id is required when telegram is enabled")
	}
	return nil
}

func (c ChartConfig) validate() error {
	if c.SMAPeriod < 2 {
		return fmt.Errorf("chart.sma_period must be >= 2")
	}
	return nil
}

func (h HTTPConfig) validate() error {
	if h.RateLimit <= 0 {
		return fmt.Errorf("http.rate_limit must be > 0")
	}
	if h.Burst <= 0 {
		return fmt.Errorf("http.burst must be > 0")
	}
	return nil
}
