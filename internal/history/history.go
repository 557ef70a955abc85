// Package history keeps the bounded, newest-first log of filled trades.
package history

import (
	"math"
	"strings"

	"tradesim/internal/ledger"
)

const (
	DefaultCapacity     = 50
	DefaultDisplayLimit = 10
	profitMarker        = "Profit"
)

type Log struct {
	trades   []ledger.Trade
	capacity int
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{trades: make([]ledger.Trade, 0, capacity), capacity: capacity}
}

// NewFrom rebuilds a log from newest-first trades, truncating to capacity.
func NewFrom(capacity int, trades []ledger.Trade) *Log {
	l := New(capacity)
	n := len(trades)
	if n > l.capacity {
		n = l.capacity
	}
	l.trades = append(l.trades, trades[:n]...)
	return l
}

// Record puts t at the head and drops the oldest entry past capacity.
func (l *Log) Record(t ledger.Trade) {
	if len(l.trades) < l.capacity {
		l.trades = append(l.trades, ledger.Trade{})
	}
	copy(l.trades[1:], l.trades)
	l.trades[0] = t
}

// Query returns up to limit trades, newest first. limit <= 0 returns all.
func (l *Log) Query(limit int) []ledger.Trade {
	if l == nil {
		return nil
	}
	n := len(l.trades)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ledger.Trade, n)
	copy(out, l.trades[:n])
	return out
}

func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.trades)
}

func (l *Log) Capacity() int {
	return l.capacity
}

// WinRate is the share of sells whose note mentions a profit exit, as a
// whole percent rounded half up. Zero when there are no sells.
func (l *Log) WinRate() int {
	if l == nil {
		return 0
	}
	var sells, wins int
	for _, t := range l.trades {
		if !t.IsSell() {
			continue
		}
		sells++
		if strings.Contains(t.Note, profitMarker) {
			wins++
		}
	}
	if sells == 0 {
		return 0
	}
	return int(math.Floor(float64(wins)/float64(sells)*100 + 0.5))
}
