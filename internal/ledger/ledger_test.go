package ledger

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newLedger(t *testing.T, cash string) *Ledger {
	t.Helper()
	l, err := New(uuid.New(), d(cash))
	require.NoError(t, err)
	return l
}

func TestManualBuyScenario(t *testing.T) {
	l := newLedger(t, "10000")
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	trade, err := l.Execute(Order{Side: SideBuy, Quantity: d("0.1"), Price: d("42500"), FeeRate: DefaultFeeRate, Time: at})
	require.NoError(t, err)

	assert.True(t, trade.Notional.Equal(d("4250")), trade.Notional.String())
	assert.True(t, trade.Fee.Equal(d("4.25")), trade.Fee.String())
	assert.True(t, l.Cash().Equal(d("5745.75")), l.Cash().String())
	assert.True(t, l.Holdings().Equal(d("0.1")))
	assert.True(t, l.EntryPrice().Equal(d("42500")))
	assert.Equal(t, SideBuy, trade.Side)
	assert.Equal(t, StatusFilled, trade.Status)
	assert.Equal(t, NoteManual, trade.Note)
	assert.Equal(t, at, trade.Time)
	assert.NotEmpty(t, trade.ID)
}

func TestSellAfterRise(t *testing.T) {
	l := newLedger(t, "10000")
	_, err := l.Execute(Order{Side: SideBuy, Quantity: d("0.1"), Price: d("42500"), FeeRate: DefaultFeeRate})
	require.NoError(t, err)

	before := l.Cash()
	_, err = l.Execute(Order{Side: SideSell, Quantity: l.Holdings(), Price: d("43500"), FeeRate: DefaultFeeRate, Note: "Take Profit Triggered"})
	require.NoError(t, err)

	gain := d("0.1").Mul(d("43500")).Mul(d("0.999"))
	assert.True(t, l.Cash().Equal(before.Add(gain)), l.Cash().String())
	assert.True(t, l.Holdings().IsZero())
	assert.False(t, l.HasPosition())
}

func TestNonPositiveQuantityIsRejectedWithoutEffect(t *testing.T) {
	for _, qty := range []string{"0", "-0.5"} {
		t.Run(qty, func(t *testing.T) {
			l := newLedger(t, "10000")
			before := l.Balances()
			trade, err := l.Execute(Order{Side: SideBuy, Quantity: d(qty), Price: d("42500"), FeeRate: DefaultFeeRate})
			require.ErrorIs(t, err, ErrInvalidAmount)
			assert.Empty(t, trade.ID)
			assert.Equal(t, before, l.Balances())
		})
	}
}

func TestInsufficientBalances(t *testing.T) {
	l := newLedger(t, "100")
	_, err := l.Execute(Order{Side: SideBuy, Quantity: d("1"), Price: d("100"), FeeRate: DefaultFeeRate})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, l.Cash().Equal(d("100")))
	assert.True(t, l.Holdings().IsZero())

	_, err = l.Execute(Order{Side: SideSell, Quantity: d("0.01"), Price: d("100"), FeeRate: DefaultFeeRate})
	require.ErrorIs(t, err, ErrInsufficientHoldings)
	assert.True(t, l.Cash().Equal(d("100")))
}

func TestBuyExactlyAffordable(t *testing.T) {
	l := newLedger(t, "100.1")
	_, err := l.Execute(Order{Side: SideBuy, Quantity: d("1"), Price: d("100"), FeeRate: DefaultFeeRate})
	require.NoError(t, err)
	assert.True(t, l.Cash().IsZero())
}

func TestDustIsClearedAfterSell(t *testing.T) {
	l, err := Restore(uuid.New(), Balances{Cash: d("0"), Holdings: d("0.1")})
	require.NoError(t, err)
	_, err = l.Execute(Order{Side: SideSell, Quantity: d("0.099999995"), Price: d("100"), FeeRate: DefaultFeeRate})
	require.NoError(t, err)
	assert.True(t, l.Holdings().IsZero(), l.Holdings().String())
}

func TestInvalidPrice(t *testing.T) {
	l := newLedger(t, "100")
	_, err := l.Execute(Order{Side: SideBuy, Quantity: d("1"), Price: d("0")})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestBalancesNeverNegative(t *testing.T) {
	l := newLedger(t, "10000")
	rng := rand.New(rand.NewPCG(11, 13))
	price := d("42500")
	for i := 0; i < 2000; i++ {
		side := SideBuy
		if rng.IntN(2) == 1 {
			side = SideSell
		}
		qty := decimal.NewFromFloat(rng.Float64() * 0.2).Round(6)
		cashBefore, holdBefore := l.Cash(), l.Holdings()
		_, err := l.Execute(Order{Side: side, Quantity: qty, Price: price, FeeRate: DefaultFeeRate})
		if err != nil {
			assert.True(t, errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInsufficientHoldings) || errors.Is(err, ErrInvalidAmount))
			require.True(t, l.Cash().Equal(cashBefore))
			require.True(t, l.Holdings().Equal(holdBefore))
		} else if side == SideBuy {
			require.True(t, l.Cash().Equal(cashBefore.Sub(qty.Mul(price).Mul(d("1.001")))))
			require.True(t, l.Holdings().Equal(holdBefore.Add(qty)))
		}
		require.False(t, l.Cash().IsNegative())
		require.False(t, l.Holdings().IsNegative())
		price = price.Mul(decimal.NewFromFloat(1 + (rng.Float64()-0.5)*0.004)).Round(8)
	}
}

func TestTradeIDsAreDeterministicPerSession(t *testing.T) {
	session := uuid.New()
	a, _ := New(session, d("1000"))
	b, _ := New(session, d("1000"))
	ta, err := a.Execute(Order{Side: SideBuy, Quantity: d("1"), Price: d("10")})
	require.NoError(t, err)
	tb, err := b.Execute(Order{Side: SideBuy, Quantity: d("1"), Price: d("10")})
	require.NoError(t, err)
	assert.Equal(t, ta.ID, tb.ID)

	tc, err := a.Execute(Order{Side: SideBuy, Quantity: d("1"), Price: d("10")})
	require.NoError(t, err)
	assert.NotEqual(t, ta.ID, tc.ID)
}

func TestRestoreRejectsNegative(t *testing.T) {
	_, err := Restore(uuid.New(), Balances{Cash: d("-1")})
	assert.Error(t, err)
	_, err = Restore(uuid.New(), Balances{Holdings: d("-1")})
	assert.Error(t, err)
}

func TestSizeOrder(t *testing.T) {
	l := newLedger(t, "10000")
	qty, err := l.SizeOrder(SideBuy, d("0.5"), d("42500"))
	require.NoError(t, err)
	// 10000/42500*0.5*0.99 = 0.116470588...
	assert.True(t, qty.Equal(d("0.11647")), qty.String())
	_, err = l.Execute(Order{Side: SideBuy, Quantity: qty, Price: d("42500"), FeeRate: DefaultFeeRate})
	require.NoError(t, err)

	sell, err := l.SizeOrder(SideSell, d("1"), d("42500"))
	require.NoError(t, err)
	assert.True(t, sell.Equal(l.Holdings()))

	_, err = l.SizeOrder(SideBuy, d("0"), d("42500"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = l.SizeOrder(SideSell, d("1.5"), d("42500"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSizeFullSellClosesFractionalPosition(t *testing.T) {
	l := newLedger(t, "10000")
	price := d("42500")
	// a dip buy spends half the cash, leaving more than 5 places of holdings
	dipQty := l.Cash().Mul(d("0.5")).Div(price)
	_, err := l.Execute(Order{Side: SideBuy, Quantity: dipQty, Price: price, FeeRate: DefaultFeeRate})
	require.NoError(t, err)
	require.True(t, l.Holdings().Exponent() < -sizingPlaces, l.Holdings().String())

	half, err := l.SizeOrder(SideSell, d("0.5"), price)
	require.NoError(t, err)
	assert.True(t, half.Equal(d("0.05882")), half.String())

	all, err := l.SizeOrder(SideSell, d("1"), price)
	require.NoError(t, err)
	assert.True(t, all.Equal(l.Holdings()), "sized %s, held %s", all, l.Holdings())

	_, err = l.Execute(Order{Side: SideSell, Quantity: all, Price: price, FeeRate: DefaultFeeRate})
	require.NoError(t, err)
	assert.True(t, l.Holdings().IsZero(), l.Holdings().String())
	assert.False(t, l.HasPosition())
}

func TestSizeFullSellOfRestoredHoldings(t *testing.T) {
	l, err := Restore(uuid.New(), Balances{Cash: d("100"), Holdings: d("0.123456789")})
	require.NoError(t, err)

	qty, err := l.SizeOrder(SideSell, d("1"), d("42500"))
	require.NoError(t, err)
	assert.Equal(t, "0.123456789", qty.String())

	qty, err = l.SizeOrder(SideSell, d("0.75"), d("42500"))
	require.NoError(t, err)
	assert.Equal(t, "0.09259", qty.String())
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide(" BUY ")
	require.NoError(t, err)
	assert.Equal(t, SideBuy, s)
	_, err = ParseSide("hold")
	assert.Error(t, err)
}
