// Package ledger keeps the single paper account: USD cash, BTC holdings and
// the price of the most recent buy.
package ledger

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger applies fee-adjusted market fills. Cash and holdings never go
// negative; a rejected order leaves every field untouched.
type Ledger struct {
	session    uuid.UUID
	cash       decimal.Decimal
	holdings   decimal.Decimal
	entryPrice decimal.Decimal
	seq        uint64
}

func New(session uuid.UUID, startingCash decimal.Decimal) (*Ledger, error) {
	if startingCash.IsNegative() {
		return nil, fmt.Errorf("starting cash must be >= 0, got %s", startingCash)
	}
	return &Ledger{session: session, cash: startingCash}, nil
}

// Balances is the exportable state of a ledger.
type Balances struct {
	Cash       decimal.Decimal
	Holdings   decimal.Decimal
	EntryPrice decimal.Decimal
	TradeSeq   uint64
}

func Restore(session uuid.UUID, b Balances) (*Ledger, error) {
	if b.Cash.IsNegative() {
		return nil, fmt.Errorf("restore ledger: cash %s is negative", b.Cash)
	}
	if b.Holdings.IsNegative() {
		return nil, fmt.Errorf("restore ledger: holdings %s is negative", b.Holdings)
	}
	if b.EntryPrice.IsNegative() {
		return nil, fmt.Errorf("restore ledger: entry price %s is negative", b.EntryPrice)
	}
	return &Ledger{
		session:    session,
		cash:       b.Cash,
		holdings:   b.Holdings,
		entryPrice: b.EntryPrice,
		seq:        b.TradeSeq,
	}, nil
}

func (l *Ledger) Balances() Balances {
	return Balances{Cash: l.cash, Holdings: l.holdings, EntryPrice: l.entryPrice, TradeSeq: l.seq}
}

func (l *Ledger) Cash() decimal.Decimal       { return l.cash }
func (l *Ledger) Holdings() decimal.Decimal   { return l.holdings }
func (l *Ledger) EntryPrice() decimal.Decimal { return l.entryPrice }

// HasPosition reports holdings above the dust threshold.
func (l *Ledger) HasPosition() bool {
	return l.holdings.GreaterThan(DustThreshold)
}

func (l *Ledger) PositionValue(price decimal.Decimal) decimal.Decimal {
	return l.holdings.Mul(price)
}

func (l *Ledger) PortfolioValue(price decimal.Decimal) decimal.Decimal {
	return l.cash.Add(l.PositionValue(price))
}

// Execute fills o in full or not at all. Any buy, manual or automated, moves
// the entry price to the fill price.
func (l *Ledger) Execute(o Order) (Trade, error) {
	if !o.Quantity.IsPositive() {
		return Trade{}, fmt.Errorf("%s %s: %w", o.Side, o.Quantity, ErrInvalidAmount)
	}
	if !o.Price.IsPositive() {
		return Trade{}, fmt.Errorf("%s at %s: %w", o.Side, o.Price, ErrInvalidPrice)
	}
	feeRate := o.FeeRate
	if feeRate.IsNegative() {
		feeRate = decimal.Zero
	}
	notional := o.Quantity.Mul(o.Price)
	fee := notional.Mul(feeRate)

	switch o.Side {
	case SideBuy:
		cost := notional.Add(fee)
		if l.cash.LessThan(cost) {
			return Trade{}, fmt.Errorf("buy %s needs %s, have %s: %w", o.Quantity, cost.StringFixed(2), l.cash.StringFixed(2), ErrInsufficientFunds)
		}
		l.cash = l.cash.Sub(cost)
		l.holdings = l.holdings.Add(o.Quantity)
		l.entryPrice = o.Price
	case SideSell:
		if l.holdings.LessThan(o.Quantity) {
			return Trade{}, fmt.Errorf("sell %s, have %s: %w", o.Quantity, l.holdings, ErrInsufficientHoldings)
		}
		l.cash = l.cash.Add(notional.Sub(fee))
		l.holdings = l.holdings.Sub(o.Quantity)
		if l.holdings.LessThan(DustThreshold) {
			l.holdings = decimal.Zero
		}
	default:
		return Trade{}, fmt.Errorf("unknown trade side %q", o.Side)
	}

	l.seq++
	note := o.Note
	if note == "" {
		note = NoteManual
	}
	return Trade{
		ID:       l.tradeID(l.seq),
		Time:     o.Time,
		Side:     o.Side,
		Price:    o.Price,
		Quantity: o.Quantity,
		Notional: notional,
		Fee:      fee,
		Status:   StatusFilled,
		Note:     note,
	}, nil
}

// Trade ids derive from the session id and fill sequence so a restored
// session replays to identical ids.
func (l *Ledger) tradeID(seq uint64) string {
	return uuid.NewSHA1(l.session, []byte(strconv.FormatUint(seq, 10))).String()
}
