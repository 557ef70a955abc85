package market

import "github.com/shopspring/decimal"

const (
	DefaultWindow     = 100
	DefaultSeedPoints = 60
)

// Series is the bounded chart window of recent prices, oldest first. Appending
// past capacity drops the oldest point.
type Series struct {
	points   []Point
	capacity int
}

func NewSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = DefaultWindow
	}
	return &Series{points: make([]Point, 0, capacity), capacity: capacity}
}

// NewSeriesFrom rebuilds a window from exported points, keeping the newest
// capacity entries.
func NewSeriesFrom(capacity int, points []Point) *Series {
	s := NewSeries(capacity)
	for _, p := range points {
		s.Append(p)
	}
	return s
}

func (s *Series) Append(p Point) {
	if len(s.points) >= s.capacity {
		copy(s.points, s.points[1:])
		s.points = s.points[:len(s.points)-1]
	}
	s.points = append(s.points, p)
}

func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

func (s *Series) Capacity() int {
	return s.capacity
}

func (s *Series) Last() (Point, bool) {
	if s == nil || len(s.points) == 0 {
		return Point{}, false
	}
	return s.points[len(s.points)-1], true
}

// Points returns a copy of the window.
func (s *Series) Points() []Point {
	if s == nil {
		return nil
	}
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// TailPrices returns up to n most recent prices, oldest first.
func (s *Series) TailPrices(n int) []decimal.Decimal {
	if s == nil || n <= 0 {
		return nil
	}
	start := len(s.points) - n
	if start < 0 {
		start = 0
	}
	out := make([]decimal.Decimal, 0, len(s.points)-start)
	for _, p := range s.points[start:] {
		out = append(out, p.Price)
	}
	return out
}

// Trend reports whether the window closes at or above where it opens.
func Trend(points []Point) (up bool, ok bool) {
	if len(points) == 0 {
		return false, false
	}
	return points[len(points)-1].Price.GreaterThanOrEqual(points[0].Price), true
}
