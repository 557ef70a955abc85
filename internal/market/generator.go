package market

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultVolatility   = 0.002
	DefaultInitialPrice = 42500
	// PricePlaces bounds decimal growth from repeated multiplication.
	PricePlaces = 8
)

var decOne = decimal.NewFromInt(1)

// Generator advances the simulated price with a bounded multiplicative random
// walk: next = current * (1 + u*volatility), u uniform in [-1, 1).
type Generator struct {
	rng        *rand.Rand
	volatility float64
}

func NewGenerator(rng *rand.Rand, volatility float64) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 1))
	}
	if volatility <= 0 || math.IsNaN(volatility) || math.IsInf(volatility, 0) {
		volatility = DefaultVolatility
	}
	return &Generator{rng: rng, volatility: volatility}
}

func (g *Generator) Volatility() float64 {
	return g.volatility
}

// Next returns the price that follows current. The result is not clamped.
func (g *Generator) Next(current decimal.Decimal) decimal.Decimal {
	return g.step(current, g.volatility)
}

func (g *Generator) step(current decimal.Decimal, amplitude float64) decimal.Decimal {
	u := g.rng.Float64()*2 - 1
	factor := decimal.NewFromFloat(u * amplitude)
	return current.Mul(decOne.Add(factor)).Round(PricePlaces)
}

// Seed fills series with n synthetic points spaced step apart and ending one
// step before end, walking from start. Seed steps move at most half the
// volatility, a calmer history than live ticks. It returns the last generated
// price, or start when n <= 0.
func (g *Generator) Seed(series *Series, start decimal.Decimal, n int, end time.Time, step time.Duration) decimal.Decimal {
	price := start
	if series == nil || n <= 0 {
		return price
	}
	if step <= 0 {
		step = time.Second
	}
	for i := n; i > 0; i-- {
		price = g.step(price, g.volatility/2)
		series.Append(Point{Time: end.Add(-time.Duration(i) * step), Price: price})
	}
	return price
}
