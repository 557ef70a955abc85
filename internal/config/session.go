package config

import (
	"fmt"

	"tradesim/internal/bot"
	"tradesim/internal/pkg/symbol"
	"tradesim/internal/scheduler"
	"tradesim/internal/session"

	"github.com/shopspring/decimal"
)

// SessionConfig maps the file settings onto a session configuration.
func (c *Config) SessionConfig() (session.Config, error) {
	interval, err := scheduler.ParseInterval(c.Market.Interval)
	if err != nil {
		return session.Config{}, fmt.Errorf("market.interval: %w", err)
	}
	return session.Config{
		Symbol:          symbol.Normalize(c.Market.Symbol),
		InitialPrice:    decimal.NewFromFloat(c.Market.InitialPrice),
		Volatility:      c.Market.Volatility,
		Interval:        interval,
		SeedPoints:      c.Market.SeedPoints,
		Window:          c.Market.Window,
		Seed:            c.Market.Seed,
		StartingCash:    decimal.NewFromFloat(c.Ledger.StartingCash),
		FeeRate:         decimal.NewFromFloat(c.Ledger.FeeRate),
		Bot:             c.Bot.engineConfig(),
		BotEnabled:      c.Bot.Enabled,
		HistoryCapacity: c.History.Capacity,
		DisplayLimit:    c.History.DisplayLimit,
	}, nil
}

func (b BotConfig) engineConfig() bot.Config {
	return bot.Config{
		TakeProfitPct:   decimal.NewFromFloat(b.TakeProfitPct),
		StopLossPct:     decimal.NewFromFloat(b.StopLossPct),
		DipWindow:       b.DipWindow,
		DipThresholdPct: decimal.NewFromFloat(b.DipThresholdPct),
		EntryGate:       b.EntryGate,
		EntryFraction:   decimal.NewFromFloat(b.EntryFraction),
	}
}

// BotUpdate is the part of the config that may change while running.
func (c *Config) BotUpdate() session.BotUpdate {
	tp := decimal.NewFromFloat(c.Bot.TakeProfitPct)
	sl := decimal.NewFromFloat(c.Bot.StopLossPct)
	return session.BotUpdate{TakeProfitPct: &tp, StopLossPct: &sl}
}
