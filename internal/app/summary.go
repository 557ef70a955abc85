package app

import (
	"fmt"
	"strings"

	"tradesim/internal/config"
	"tradesim/internal/session"
)

type StartupSummary struct {
	SessionID string
	Market    MarketSummary
	Bot       BotSummary
	Outputs   []string
	HTTPAddr  string
}

type MarketSummary struct {
	Symbol       string
	InitialPrice string
	Volatility   float64
	Interval     string
	Window       int
	SeedPoints   int
	Seed         uint64
	StartingCash string
	FeeRate      string
}

type BotSummary struct {
	Enabled       bool
	TakeProfitPct string
	StopLossPct   string
	DipWindow     int
	EntryGate     float64
}

func newStartupSummary(cfg *config.Config, sc session.Config, sessionID string) *StartupSummary {
	s := &StartupSummary{
		SessionID: sessionID,
		HTTPAddr:  cfg.App.HTTPAddr,
		Market: MarketSummary{
			Symbol:       sc.Symbol,
			InitialPrice: sc.InitialPrice.String(),
			Volatility:   sc.Volatility,
			Interval:     sc.Interval.String(),
			Window:       sc.Window,
			SeedPoints:   sc.SeedPoints,
			Seed:         sc.Seed,
			StartingCash: sc.StartingCash.String(),
			FeeRate:      sc.FeeRate.String(),
		},
		Bot: BotSummary{
			Enabled:       sc.BotEnabled,
			TakeProfitPct: sc.Bot.TakeProfitPct.String(),
			StopLossPct:   sc.Bot.StopLossPct.String(),
			DipWindow:     sc.Bot.DipWindow,
			EntryGate:     sc.Bot.EntryGate,
		},
	}
	s.Outputs = append(s.Outputs, "websocket /ws", "log")
	if cfg.Chart.Enabled {
		out := fmt.Sprintf("chart /chart (sma %d)", cfg.Chart.SMAPeriod)
		if cfg.Chart.PNGEnabled {
			out += " + /chart.png"
		}
		s.Outputs = append(s.Outputs, out)
	}
	if cfg.Journal.Enabled {
		s.Outputs = append(s.Outputs, "journal "+cfg.Journal.Path)
	}
	if cfg.TickLog.Enabled {
		s.Outputs = append(s.Outputs, "ticklog "+cfg.TickLog.Path)
	}
	if cfg.Notify.Telegram.Enabled {
		s.Outputs = append(s.Outputs, "telegram")
	}
	return s
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	line := strings.Repeat("=", 80)
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "%*s\n", 40+len("STARTUP SUMMARY")/2, "STARTUP SUMMARY")
	fmt.Fprintln(&b, line)

	fmt.Fprintln(&b, "[MARKET]")
	fmt.Fprintf(&b, "  Session:   %s\n", s.SessionID)
	fmt.Fprintf(&b, "  Symbol:    %s @ %s\n", s.Market.Symbol, s.Market.InitialPrice)
	fmt.Fprintf(&b, "  Walk:      volatility=%g interval=%s seed=%d\n", s.Market.Volatility, s.Market.Interval, s.Market.Seed)
	fmt.Fprintf(&b, "  Window:    %d points (%d seeded)\n", s.Market.Window, s.Market.SeedPoints)
	fmt.Fprintf(&b, "  Account:   cash=%s fee=%s\n", s.Market.StartingCash, s.Market.FeeRate)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[BOT]")
	fmt.Fprintf(&b, "  Enabled:   %v\n", s.Bot.Enabled)
	fmt.Fprintf(&b, "  Exits:     take_profit=%s%% stop_loss=%s%%\n", s.Bot.TakeProfitPct, s.Bot.StopLossPct)
	fmt.Fprintf(&b, "  Entry:     dip_window=%d gate=%g\n", s.Bot.DipWindow, s.Bot.EntryGate)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "[OUTPUTS]")
	fmt.Fprintf(&b, "  HTTP:      %s\n", s.HTTPAddr)
	fmt.Fprintf(&b, "  Sinks:     %s\n", formatList(s.Outputs))
	fmt.Fprintln(&b, line)
	return b.String()
}

func (s *StartupSummary) Print() {
	fmt.Print(s.String())
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
