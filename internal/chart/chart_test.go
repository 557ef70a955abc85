package chart

import (
	"context"
	"testing"
	"time"

	"tradesim/internal/market"

	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(prices ...float64) []market.Point {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]market.Point, len(prices))
	for i, p := range prices {
		out[i] = market.Point{Time: start.Add(time.Duration(i) * time.Second), Price: decimal.NewFromFloat(p)}
	}
	return out
}

func TestBuildHTMLTrendColour(t *testing.T) {
	up, err := BuildHTML("BTC/USD", series(100, 101, 102), 0)
	require.NoError(t, err)
	assert.Contains(t, string(up), colorUp)
	assert.NotContains(t, string(up), colorDown)
	assert.Contains(t, string(up), "12:00:02")

	down, err := BuildHTML("BTC/USD", series(102, 101, 100), 0)
	require.NoError(t, err)
	assert.Contains(t, string(down), colorDown)
	assert.NotContains(t, string(down), colorUp)

	flat, err := BuildHTML("BTC/USD", series(100, 99, 100), 0)
	require.NoError(t, err)
	assert.Contains(t, string(flat), colorUp)
}

func TestBuildHTMLSMAOverlay(t *testing.T) {
	html, err := BuildHTML("BTC/USD", series(1, 2, 3, 4, 5, 6), 3)
	require.NoError(t, err)
	assert.Contains(t, string(html), "SMA(3)")

	short, err := BuildHTML("BTC/USD", series(1, 2), 3)
	require.NoError(t, err)
	assert.NotContains(t, string(short), "SMA(3)")
}

func TestBuildHTMLNoData(t *testing.T) {
	_, err := BuildHTML("BTC/USD", nil, 5)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSMALine(t *testing.T) {
	got := smaLine([]float64{1, 2, 3, 4, 5, 6}, 3)
	require.Len(t, got, 6)
	assert.Equal(t, opts.LineData{Value: nil}, got[0])
	assert.Equal(t, opts.LineData{Value: nil}, got[1])
	assert.Equal(t, opts.LineData{Value: 2.0}, got[2])
	assert.Equal(t, opts.LineData{Value: 5.0}, got[5])
}

func TestRendererKeepsLastPage(t *testing.T) {
	r := NewRenderer(Options{Symbol: "BTC/USD", SMAPeriod: 3})
	assert.Nil(t, r.HTML())
	_, ok := r.Trend()
	assert.False(t, ok)

	r.Render(series(100, 99, 98))
	require.NotNil(t, r.HTML())
	up, ok := r.Trend()
	assert.True(t, ok)
	assert.False(t, up)

	r.Render(nil)
	assert.NotNil(t, r.HTML())

	_, err := r.PNG(context.Background())
	assert.ErrorIs(t, err, ErrPNGDisabled)
	assert.False(t, r.PNGEnabled())
}

func TestPNGWithoutRender(t *testing.T) {
	r := NewRenderer(Options{Symbol: "BTC/USD", PNGEnabled: true})
	_, err := r.PNG(context.Background())
	assert.ErrorIs(t, err, ErrNoData)
}
