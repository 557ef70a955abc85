package bot

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Config holds the user-adjustable thresholds and the entry heuristic's knobs.
type Config struct {
	TakeProfitPct decimal.Decimal
	StopLossPct   decimal.Decimal
	// DipWindow is how many recent prices the entry scan compares.
	DipWindow int
	// DipThresholdPct: a window change strictly below the negated value is a dip.
	DipThresholdPct decimal.Decimal
	// EntryGate: a dip only triggers a buy when a uniform draw exceeds it.
	EntryGate float64
	// EntryFraction of cash spent on a dip buy.
	EntryFraction decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		TakeProfitPct:   decimal.RequireFromString("1.5"),
		StopLossPct:     decimal.RequireFromString("2.0"),
		DipWindow:       5,
		DipThresholdPct: decimal.RequireFromString("0.1"),
		EntryGate:       0.7,
		EntryFraction:   decimal.RequireFromString("0.5"),
	}
}

func (c Config) Validate() error {
	if !c.TakeProfitPct.IsPositive() {
		return fmt.Errorf("take_profit_pct must be > 0, got %s", c.TakeProfitPct)
	}
	if !c.StopLossPct.IsPositive() {
		return fmt.Errorf("stop_loss_pct must be > 0, got %s", c.StopLossPct)
	}
	if c.DipWindow < 2 {
		return fmt.Errorf("dip_window must be >= 2, got %d", c.DipWindow)
	}
	if c.DipThresholdPct.IsNegative() {
		return fmt.Errorf("dip_threshold_pct must be >= 0, got %s", c.DipThresholdPct)
	}
	if c.EntryGate < 0 || c.EntryGate >= 1 {
		return fmt.Errorf("entry_gate must be in [0, 1), got %v", c.EntryGate)
	}
	if !c.EntryFraction.IsPositive() || c.EntryFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("entry_fraction must be in (0, 1], got %s", c.EntryFraction)
	}
	return nil
}
