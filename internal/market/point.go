package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Point is one sample of the simulated price feed.
type Point struct {
	Time  time.Time       `json:"time" yaml:"time"`
	Price decimal.Decimal `json:"price" yaml:"price"`
}

// Label formats the point the way the chart axis shows it.
func (p Point) Label() string {
	return p.Time.Format("15:04:05")
}
