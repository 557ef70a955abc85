package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func ParseSide(raw string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(raw))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("unknown trade side %q", raw)
	}
}

const (
	StatusFilled = "Filled"
	NoteManual   = "Manual Trade"
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidPrice         = errors.New("invalid price")
	ErrInsufficientFunds    = errors.New("insufficient USD balance")
	ErrInsufficientHoldings = errors.New("insufficient BTC balance")
)

var (
	// DustThreshold is the holding size below which a position counts as closed.
	DustThreshold  = decimal.New(1, -8)
	DefaultFeeRate = decimal.New(1, -3)
)

// Order is a market order filled immediately at Price.
type Order struct {
	Side     Side
	Quantity decimal.Decimal
	Price    decimal.Decimal
	FeeRate  decimal.Decimal
	Note     string
	Time     time.Time
}

// Trade is the immutable record of a fill.
type Trade struct {
	ID       string          `json:"id" yaml:"id"`
	Time     time.Time       `json:"time" yaml:"time"`
	Side     Side            `json:"side" yaml:"side"`
	Price    decimal.Decimal `json:"price" yaml:"price"`
	Quantity decimal.Decimal `json:"quantity" yaml:"quantity"`
	Notional decimal.Decimal `json:"notional" yaml:"notional"`
	Fee      decimal.Decimal `json:"fee" yaml:"fee"`
	Status   string          `json:"status" yaml:"status"`
	Note     string          `json:"note" yaml:"note"`
}

func (t Trade) IsSell() bool { return t.Side == SideSell }
