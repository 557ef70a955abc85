package session

import (
	"time"

	"tradesim/internal/bot"
	"tradesim/internal/ledger"

	"github.com/shopspring/decimal"
)

// Snapshot is the display payload published after every event.
type Snapshot struct {
	Symbol         string          `json:"symbol"`
	Tick           uint64          `json:"tick"`
	Time           time.Time       `json:"time"`
	Price          decimal.Decimal `json:"price"`
	CashBalance    decimal.Decimal `json:"cash_balance"`
	AssetHoldings  decimal.Decimal `json:"asset_holdings"`
	PositionValue  decimal.Decimal `json:"position_value"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	TotalProfit    decimal.Decimal `json:"total_profit"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	Bot            BotView         `json:"bot"`
	Trades         []ledger.Trade  `json:"trades"`
	TradeCount     int             `json:"trade_count"`
	WinRatePct     int             `json:"win_rate_pct"`
}

type BotView struct {
	Active        bool            `json:"active" yaml:"active"`
	State         bot.State       `json:"state" yaml:"state"`
	Status        string          `json:"status" yaml:"status"`
	TakeProfitPct decimal.Decimal `json:"take_profit_pct" yaml:"take_profit_pct"`
	StopLossPct   decimal.Decimal `json:"stop_loss_pct" yaml:"stop_loss_pct"`
}

func (s *Session) botView() BotView {
	cfg := s.bot.Config()
	return BotView{
		Active:        s.bot.Active(),
		State:         s.bot.State(),
		Status:        s.bot.Status(),
		TakeProfitPct: cfg.TakeProfitPct,
		StopLossPct:   cfg.StopLossPct,
	}
}

// Snapshot reports the state as of the last processed event. Total profit
// is measured against the configured starting cash.
func (s *Session) Snapshot() Snapshot {
	portfolio := s.ledger.PortfolioValue(s.price)
	trades := s.history.Query(s.cfg.DisplayLimit)
	if trades == nil {
		trades = []ledger.Trade{}
	}
	return Snapshot{
		Symbol:         s.cfg.Symbol,
		Tick:           s.tick,
		Time:           s.now,
		Price:          s.price,
		CashBalance:    s.ledger.Cash(),
		AssetHoldings:  s.ledger.Holdings(),
		PositionValue:  s.ledger.PositionValue(s.price),
		PortfolioValue: portfolio,
		TotalProfit:    portfolio.Sub(s.cfg.StartingCash),
		EntryPrice:     s.ledger.EntryPrice(),
		Bot:            s.botView(),
		Trades:         trades,
		TradeCount:     s.history.Len(),
		WinRatePct:     s.history.WinRate(),
	}
}
