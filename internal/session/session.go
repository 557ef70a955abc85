// Package session owns the whole simulated desk state: price, series,
// ledger, bot and trade history. A Session is not safe for concurrent use;
// the desk serialises every call through its event loop.
package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"tradesim/internal/bot"
	"tradesim/internal/history"
	"tradesim/internal/ledger"
	"tradesim/internal/market"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidThreshold = errors.New("threshold must be a positive percentage")

type Session struct {
	cfg     Config
	id      uuid.UUID
	pcg     *rand.PCG
	gen     *market.Generator
	series  *market.Series
	price   decimal.Decimal
	ledger  *ledger.Ledger
	bot     *bot.Engine
	history *history.Log
	tick    uint64
	now     time.Time
}

// TickResult describes one price step.
type TickResult struct {
	Tick  uint64
	Point market.Point
	Bot   bot.Outcome
	// Trade is the bot fill of this tick, if any.
	Trade *ledger.Trade
}

// New starts a session at start, seeding the series with cfg.SeedPoints
// points that end one interval before start. The current price is the last
// seeded one.
func New(cfg Config, start time.Time) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	id := uuid.New()
	led, err := ledger.New(id, cfg.StartingCash)
	if err != nil {
		return nil, err
	}
	pcg := rand.NewPCG(cfg.Seed, cfg.Seed)
	rng := rand.New(pcg)
	engine, err := bot.NewEngine(cfg.Bot, rng)
	if err != nil {
		return nil, err
	}
	if cfg.BotEnabled {
		engine.SetActive(true)
	}
	s := &Session{
		cfg:     cfg,
		id:      id,
		pcg:     pcg,
		gen:     market.NewGenerator(rng, cfg.Volatility),
		series:  market.NewSeries(cfg.Window),
		ledger:  led,
		bot:     engine,
		history: history.New(cfg.HistoryCapacity),
		now:     start,
	}
	s.price = s.gen.Seed(s.series, cfg.InitialPrice, cfg.SeedPoints, start, cfg.Interval)
	return s, nil
}

func (s *Session) ID() uuid.UUID          { return s.id }
func (s *Session) Config() Config         { return s.cfg }
func (s *Session) Price() decimal.Decimal { return s.price }
func (s *Session) TickCount() uint64      { return s.tick }
func (s *Session) Series() []market.Point { return s.series.Points() }

// Trades returns up to limit fills, newest first.
func (s *Session) Trades(limit int) []ledger.Trade {
	return s.history.Query(limit)
}

// Tick advances the price once, appends it to the series and lets the bot
// act on it. It performs no I/O.
func (s *Session) Tick(now time.Time) TickResult {
	s.tick++
	s.now = now
	s.price = s.gen.Next(s.price)
	point := market.Point{Time: now, Price: s.price}
	s.series.Append(point)

	out := s.bot.Step(bot.Input{
		Price:      s.price,
		Cash:       s.ledger.Cash(),
		Holdings:   s.ledger.Holdings(),
		EntryPrice: s.ledger.EntryPrice(),
		Recent:     s.series.TailPrices(s.bot.Window()),
	}, tickExecutor{s: s, now: now})
	return TickResult{Tick: s.tick, Point: point, Bot: out, Trade: out.Trade}
}

// tickExecutor fills bot orders at the price of the tick being evaluated.
type tickExecutor struct {
	s   *Session
	now time.Time
}

func (e tickExecutor) Execute(side ledger.Side, qty decimal.Decimal, note string) (ledger.Trade, error) {
	return e.s.execute(side, qty, note, e.now)
}

func (s *Session) execute(side ledger.Side, qty decimal.Decimal, note string, at time.Time) (ledger.Trade, error) {
	trade, err := s.ledger.Execute(ledger.Order{
		Side:     side,
		Quantity: qty,
		Price:    s.price,
		FeeRate:  s.cfg.FeeRate,
		Note:     note,
		Time:     at,
	})
	if err != nil {
		return ledger.Trade{}, err
	}
	s.history.Record(trade)
	return trade, nil
}

// ManualTrade fills a user order at the current price. Errors wrap the
// ledger sentinels and leave the session unchanged.
func (s *Session) ManualTrade(side ledger.Side, qty decimal.Decimal, at time.Time) (ledger.Trade, error) {
	return s.execute(side, qty, ledger.NoteManual, at)
}

// SizeOrder converts a fraction of the available balance into a quantity at
// the current price.
func (s *Session) SizeOrder(side ledger.Side, pct decimal.Decimal) (decimal.Decimal, error) {
	return s.ledger.SizeOrder(side, pct, s.price)
}

func (s *Session) SetBotActive(active bool) {
	s.bot.SetActive(active)
}

func (s *Session) SetThresholds(takeProfitPct, stopLossPct decimal.Decimal) error {
	return s.ApplyBotUpdate(BotUpdate{TakeProfitPct: &takeProfitPct, StopLossPct: &stopLossPct})
}

// BotUpdate is a partial change to the bot; nil fields are left alone.
type BotUpdate struct {
	Active        *bool
	TakeProfitPct *decimal.Decimal
	StopLossPct   *decimal.Decimal
}

// ApplyBotUpdate validates every field before applying any of them.
func (s *Session) ApplyBotUpdate(u BotUpdate) error {
	cfg := s.bot.Config()
	if u.TakeProfitPct != nil {
		if !u.TakeProfitPct.IsPositive() {
			return fmt.Errorf("take profit %s: %w", u.TakeProfitPct, ErrInvalidThreshold)
		}
		cfg.TakeProfitPct = *u.TakeProfitPct
	}
	if u.StopLossPct != nil {
		if !u.StopLossPct.IsPositive() {
			return fmt.Errorf("stop loss %s: %w", u.StopLossPct, ErrInvalidThreshold)
		}
		cfg.StopLossPct = *u.StopLossPct
	}
	if err := s.bot.SetConfig(cfg); err != nil {
		return err
	}
	if u.Active != nil && *u.Active != s.bot.Active() {
		s.bot.SetActive(*u.Active)
	}
	return nil
}
