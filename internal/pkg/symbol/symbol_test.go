package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := map[string]Symbol{
		"BTC/USD":   {Base: "BTC", Quote: "USD"},
		" btc/usd ": {Base: "BTC", Quote: "USD"},
		"eth-usdt":  {Base: "ETH", Quote: "USDT"},
		"BTCUSDT":   {Base: "BTC", Quote: "USDT"},
		"SOLUSD":    {Base: "SOL", Quote: "USD"},
		"BTC/":      {},
		"":          {},
		"XYZ":       {},
	}
	for in, want := range cases {
		assert.Equal(t, want, Parse(in), in)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "BTC/USD", Normalize("btcusd"))
	assert.Equal(t, "", Normalize("???"))
	assert.True(t, IsValid("btc/usd"))
	assert.False(t, IsValid("usd"))
}
