package config

import "strings"

// Config is the tradesim application configuration.
type Config struct {
	App     AppConfig     `toml:"app"`
	Market  MarketConfig  `toml:"market"`
	Ledger  LedgerConfig  `toml:"ledger"`
	Bot     BotConfig     `toml:"bot"`
	History HistoryConfig `toml:"history"`
	Chart   ChartConfig   `toml:"chart"`
	Journal StoreConfig   `toml:"journal"`
	TickLog StoreConfig   `toml:"ticklog"`
	Notify  NotifyConfig  `toml:"notify"`
	HTTP    HTTPConfig    `toml:"http"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
}

// MarketConfig drives the synthetic price walk. Interval accepts "500ms",
// "1s", "1m" and so on.
type MarketConfig struct {
	Symbol       string  `toml:"symbol"`
	InitialPrice float64 `toml:"initial_price"`
	Volatility   float64 `toml:"volatility"`
	Interval     string  `toml:"interval"`
	SeedPoints   int     `toml:"seed_points"`
	Window       int     `toml:"window"`
	Seed         uint64  `toml:"seed"`
}

type LedgerConfig struct {
	StartingCash float64 `toml:"starting_cash"`
	FeeRate      float64 `toml:"fee_rate"`
}

type BotConfig struct {
	Enabled         bool    `toml:"enabled"`
	TakeProfitPct   float64 `toml:"take_profit_pct"`
	StopLossPct     float64 `toml:"stop_loss_pct"`
	DipWindow       int     `toml:"dip_window"`
	DipThresholdPct float64 `toml:"dip_threshold_pct"`
	EntryGate       float64 `toml:"entry_gate"`
	EntryFraction   float64 `toml:"entry_fraction"`
}

type HistoryConfig struct {
	Capacity     int `toml:"capacity"`
	DisplayLimit int `toml:"display_limit"`
}

type ChartConfig struct {
	Enabled    bool `toml:"enabled"`
	SMAPeriod  int  `toml:"sma_period"`
	PNGEnabled bool `toml:"png_enabled"`
}

// StoreConfig is shared by the write-only sqlite outputs.
type StoreConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// HTTPConfig limits mutating routes to RateLimit requests per second.
type HTTPConfig struct {
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// keySet tracks field paths explicitly set in the config files.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes how one field gets its default.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
