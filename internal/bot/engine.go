// Package bot implements the rule-based auto trader: take-profit / stop-loss
// exits on an open position, and a noise-gated dip-buy entry when flat.
package bot

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"tradesim/internal/ledger"
	"tradesim/internal/logger"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateHolding  State = "holding"
)

// Reason names the rule that issued an order.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonTakeProfit Reason = "take_profit"
	ReasonStopLoss   Reason = "stop_loss"
	ReasonDip        Reason = "dip"
)

const (
	NoteTakeProfit = "Take Profit Triggered"
	NoteStopLoss   = "Stop Loss Triggered"
	NoteDip        = "Dip Detected"

	StatusIdle      = "Idle"
	StatusActive    = "Active"
	StatusStopped   = "Stopped"
	StatusScanning  = "Scanning market..."
	StatusBoughtDip = "Bought the dip"
	statusRejected  = "Order rejected: "
)

var decHundred = decimal.NewFromInt(100)

// Executor fills bot orders at the current price.
type Executor interface {
	Execute(side ledger.Side, qty decimal.Decimal, note string) (ledger.Trade, error)
}

// Input is what the engine sees on one tick.
type Input struct {
	Price      decimal.Decimal
	Cash       decimal.Decimal
	Holdings   decimal.Decimal
	EntryPrice decimal.Decimal
	// Recent holds up to DipWindow latest prices, oldest first.
	Recent []decimal.Decimal
}

// Outcome reports what a tick evaluation did. Trade is set only on a fill;
// Err only when an issued order was rejected.
type Outcome struct {
	State  State
	Status string
	Reason Reason
	PnLPct decimal.Decimal
	Trade  *ledger.Trade
	Err    error
}

type Engine struct {
	cfg    Config
	rng    *rand.Rand
	active bool
	state  State
	status string
}

func NewEngine(cfg Config, rng *rand.Rand) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("bot engine requires a random source")
	}
	return &Engine{cfg: cfg, rng: rng, state: StateIdle, status: StatusIdle}, nil
}

func (e *Engine) Config() Config { return e.cfg }
func (e *Engine) Active() bool   { return e.active }
func (e *Engine) State() State   { return e.state }
func (e *Engine) Status() string { return e.status }
func (e *Engine) Window() int    { return e.cfg.DipWindow }

func (e *Engine) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	return nil
}

// SetActive toggles the bot. The change is evaluated on the next Step.
func (e *Engine) SetActive(active bool) {
	e.active = active
	if active {
		e.state = StateScanning
		e.status = StatusActive
		return
	}
	e.state = StateIdle
	e.status = StatusStopped
}

// Restore reinstates exported runtime fields.
func (e *Engine) Restore(active bool, state State, status string) {
	e.active = active
	switch state {
	case StateIdle, StateScanning, StateHolding:
		e.state = state
	default:
		e.state = StateIdle
	}
	e.status = status
}

// Step runs one evaluation and issues at most one order through exec.
func (e *Engine) Step(in Input, exec Executor) Outcome {
	if !e.active {
		return e.finish(Outcome{State: StateIdle, Status: StatusIdle})
	}
	if in.Holdings.GreaterThan(ledger.DustThreshold) {
		return e.finish(e.evaluateExit(in, exec))
	}
	return e.finish(e.scanEntry(in, exec))
}

func (e *Engine) finish(out Outcome) Outcome {
	e.state = out.State
	e.status = out.Status
	return out
}

func (e *Engine) evaluateExit(in Input, exec Executor) Outcome {
	entry := in.EntryPrice
	if !entry.IsPositive() {
		return Outcome{State: StateHolding, Status: "Holding (entry price unknown)"}
	}
	pnl := in.Price.Sub(entry).Div(entry).Mul(decHundred)
	switch {
	case pnl.GreaterThanOrEqual(e.cfg.TakeProfitPct):
		out := e.submit(exec, ledger.SideSell, in.Holdings, NoteTakeProfit, ReasonTakeProfit,
			fmt.Sprintf("Sold at +%s%%", pnl.StringFixed(2)), StateScanning, StateHolding)
		out.PnLPct = pnl
		return out
	case pnl.LessThanOrEqual(e.cfg.StopLossPct.Neg()):
		out := e.submit(exec, ledger.SideSell, in.Holdings, NoteStopLoss, ReasonStopLoss,
			fmt.Sprintf("Stopped at %s%%", pnl.StringFixed(2)), StateScanning, StateHolding)
		out.PnLPct = pnl
		return out
	default:
		return Outcome{
			State:  StateHolding,
			Status: fmt.Sprintf("Holding (P&L: %s%%)", signedPct(pnl)),
			PnLPct: pnl,
		}
	}
}

func (e *Engine) scanEntry(in Input, exec Executor) Outcome {
	scanning := Outcome{State: StateScanning, Status: StatusScanning}
	window := in.Recent
	if len(window) < e.cfg.DipWindow {
		return scanning
	}
	window = window[len(window)-e.cfg.DipWindow:]
	first, last := window[0], window[len(window)-1]
	if !first.IsPositive() || !in.Price.IsPositive() {
		return scanning
	}
	change := last.Sub(first).Div(first).Mul(decHundred)
	if !change.LessThan(e.cfg.DipThresholdPct.Neg()) {
		return scanning
	}
	// the gate draw only happens once the dip condition holds
	if e.rng.Float64() <= e.cfg.EntryGate {
		return scanning
	}
	qty := in.Cash.Mul(e.cfg.EntryFraction).Div(in.Price)
	return e.submit(exec, ledger.SideBuy, qty, NoteDip, ReasonDip, StatusBoughtDip, StateHolding, StateScanning)
}

func (e *Engine) submit(exec Executor, side ledger.Side, qty decimal.Decimal, note string, reason Reason, status string, filled, rejected State) Outcome {
	if exec == nil {
		return Outcome{State: rejected, Status: statusRejected + "no executor", Reason: reason, Err: errors.New("bot executor missing")}
	}
	trade, err := exec.Execute(side, qty, note)
	if err != nil {
		logger.Warnf("bot %s order rejected (%s %s): %v", reason, side, qty.StringFixed(8), err)
		return Outcome{State: rejected, Status: statusRejected + rejectionText(err), Reason: reason, Err: err}
	}
	return Outcome{State: filled, Status: status, Reason: reason, Trade: &trade}
}

func rejectionText(err error) string {
	for _, known := range []error{ledger.ErrInsufficientFunds, ledger.ErrInsufficientHoldings, ledger.ErrInvalidAmount, ledger.ErrInvalidPrice} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}

func signedPct(v decimal.Decimal) string {
	if v.IsPositive() {
		return "+" + v.StringFixed(2)
	}
	return v.StringFixed(2)
}
