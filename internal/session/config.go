package session

import (
	"fmt"
	"strings"
	"time"

	"tradesim/internal/bot"
	"tradesim/internal/history"
	"tradesim/internal/ledger"
	"tradesim/internal/market"

	"github.com/shopspring/decimal"
)

const DefaultSymbol = "BTC/USD"

// Config is everything a session needs to start; it is derived from the
// application config by the composition root.
type Config struct {
	Symbol          string
	InitialPrice    decimal.Decimal
	Volatility      float64
	Interval        time.Duration
	SeedPoints      int
	Window          int
	Seed            uint64
	StartingCash    decimal.Decimal
	FeeRate         decimal.Decimal
	Bot             bot.Config
	BotEnabled      bool
	HistoryCapacity int
	DisplayLimit    int
}

func DefaultConfig() Config {
	return Config{
		Symbol:          DefaultSymbol,
		InitialPrice:    decimal.NewFromInt(market.DefaultInitialPrice),
		Volatility:      market.DefaultVolatility,
		Interval:        time.Second,
		SeedPoints:      market.DefaultSeedPoints,
		Window:          market.DefaultWindow,
		Seed:            1,
		StartingCash:    decimal.NewFromInt(10000),
		FeeRate:         ledger.DefaultFeeRate,
		Bot:             bot.DefaultConfig(),
		HistoryCapacity: history.DefaultCapacity,
		DisplayLimit:    history.DefaultDisplayLimit,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if !c.InitialPrice.IsPositive() {
		return fmt.Errorf("initial_price must be > 0, got %s", c.InitialPrice)
	}
	if c.Volatility <= 0 || c.Volatility >= 1 {
		return fmt.Errorf("volatility must be in (0, 1), got %v", c.Volatility)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be > 0, got %s", c.Interval)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be > 0, got %d", c.Window)
	}
	if c.SeedPoints < 0 || c.SeedPoints > c.Window {
		return fmt.Errorf("seed_points must be in [0, %d], got %d", c.Window, c.SeedPoints)
	}
	if c.StartingCash.IsNegative() {
		return fmt.Errorf("starting_cash must be >= 0, got %s", c.StartingCash)
	}
	if c.FeeRate.IsNegative() || c.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("fee_rate must be in [0, 1), got %s", c.FeeRate)
	}
	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("history capacity must be > 0, got %d", c.HistoryCapacity)
	}
	if c.DisplayLimit <= 0 || c.DisplayLimit > c.HistoryCapacity {
		return fmt.Errorf("display_limit must be in [1, %d], got %d", c.HistoryCapacity, c.DisplayLimit)
	}
	return c.Bot.Validate()
}
