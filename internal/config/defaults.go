package config

import (
	"strings"
)

const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":9991"
	defaultSymbol          = "BTC/USD"
	defaultInitialPrice    = 42500
	defaultVolatility      = 0.002
	defaultInterval        = "1s"
	defaultSeedPoints      = 60
	defaultWindow          = 100
	defaultSeed            = 1
	defaultStartingCash    = 10000
	defaultFeeRate         = 0.001
	defaultTakeProfitPct   = 1.5
	defaultStopLossPct     = 2.0
	defaultDipWindow       = 5
	defaultDipThresholdPct = 0.1
	defaultEntryGate       = 0.7
	defaultEntryFraction   = 0.5
	defaultHistoryCapacity = 50
	defaultDisplayLimit    = 10
	defaultSMAPeriod       = 10
	defaultJournalPath     = "data/journal.db"
	defaultTickLogPath     = "data/ticks.db"
	defaultRateLimit       = 5
	defaultRateBurst       = 10
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(nil)
	return &cfg
}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Ledger.applyDefaults(keys)
	c.Bot.applyDefaults(keys)
	c.History.applyDefaults(keys)
	c.Chart.applyDefaults(keys)
	c.Journal.applyDefaults(keys, "journal", defaultJournalPath)
	c.TickLog.applyDefaults(keys, "ticklog", defaultTickLogPath)
	c.HTTP.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("market.symbol", &m.Symbol, defaultSymbol),
		stringFieldDefault("market.interval", &m.Interval, defaultInterval),
		floatFieldDefault("market.initial_price", &m.InitialPrice, defaultInitialPrice),
		floatFieldDefault("market.volatility", &m.Volatility, defaultVolatility),
		intFieldDefault("market.window", &m.Window, defaultWindow),
		fieldDefault{
			key:   "market.seed_points",
			need:  func() bool { return m.SeedPoints == 0 },
			apply: func() { m.SeedPoints = defaultSeedPoints },
		},
		fieldDefault{
			key:   "market.seed",
			need:  func() bool { return m.Seed == 0 },
			apply: func() { m.Seed = defaultSeed },
		},
	)
}

func (l *LedgerConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("ledger.starting_cash", &l.StartingCash, defaultStartingCash),
		fieldDefault{
			key:   "ledger.fee_rate",
			need:  func() bool { return l.FeeRate == 0 },
			apply: func() { l.FeeRate = defaultFeeRate },
		},
	)
}

func (b *BotConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("bot.take_profit_pct", &b.TakeProfitPct, defaultTakeProfitPct),
		floatFieldDefault("bot.stop_loss_pct", &b.StopLossPct, defaultStopLossPct),
		intFieldDefault("bot.dip_window", &b.DipWindow, defaultDipWindow),
		floatFieldDefault("bot.dip_threshold_pct", &b.DipThresholdPct, defaultDipThresholdPct),
		fieldDefault{
			key:   "bot.entry_gate",
			need:  func() bool { return b.EntryGate == 0 },
			apply: func() { b.EntryGate = defaultEntryGate },
		},
		floatFieldDefault("bot.entry_fraction", &b.EntryFraction, defaultEntryFraction),
	)
}

func (h *HistoryConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("history.capacity", &h.Capacity, defaultHistoryCapacity),
		intFieldDefault("history.display_limit", &h.DisplayLimit, defaultDisplayLimit),
	)
}

func (c *ChartConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		boolFieldDefault("chart.enabled", &c.Enabled, true),
		intFieldDefault("chart.sma_period", &c.SMAPeriod, defaultSMAPeriod),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet, section, path string) {
	applyFieldDefaults(keys,
		stringFieldDefault(section+".path", &s.Path, path),
	)
}

func (h *HTTPConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("http.rate_limit", &h.RateLimit, defaultRateLimit),
		intFieldDefault("http.burst", &h.Burst, defaultRateBurst),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

// floatFieldDefault fills non-positive values; an explicit bad value is left
// for validate to reject.
func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && *target <= 0 },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return target != nil && *target <= 0 },
		apply: func() { *target = def },
	}
}
