package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const sizingPlaces = 5

var (
	decHundred = decimal.NewFromInt(100)
	decOne     = decimal.NewFromInt(1)
	// buyCushion leaves room for the fee when sizing a buy from cash.
	buyCushion = decimal.RequireFromString("0.99")
)

// SizeOrder converts a fraction (0 < pct <= 1) of the available balance into
// an order quantity: cash/price*pct*0.99 for buys, holdings*pct for sells.
// The result is truncated to 5 places and never exceeds what is held; a 100%
// sell returns the holdings untouched.
func (l *Ledger) SizeOrder(side Side, pct, price decimal.Decimal) (decimal.Decimal, error) {
	if !pct.IsPositive() || pct.GreaterThan(decOne) {
		return decimal.Zero, fmt.Errorf("percent %s outside (0, 1]: %w", pct, ErrInvalidAmount)
	}
	switch side {
	case SideBuy:
		if !price.IsPositive() {
			return decimal.Zero, fmt.Errorf("size buy at %s: %w", price, ErrInvalidPrice)
		}
		maxBuy := l.cash.Div(price)
		return maxBuy.Mul(pct).Mul(buyCushion).Truncate(sizingPlaces), nil
	case SideSell:
		// a full sell closes the position exactly; truncating it would leave
		// a remainder above the dust threshold
		if pct.Equal(decOne) {
			return l.holdings, nil
		}
		qty := l.holdings.Mul(pct).Truncate(sizingPlaces)
		if qty.GreaterThan(l.holdings) {
			qty = l.holdings
		}
		return qty, nil
	default:
		return decimal.Zero, fmt.Errorf("unknown trade side %q", side)
	}
}

// PercentOf returns part/whole*100, or zero when whole is zero.
func PercentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decHundred)
}
