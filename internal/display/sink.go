// Package display pushes desk snapshots to whoever is watching: websocket
// clients and the log.
package display

import (
	"tradesim/internal/logger"
	"tradesim/internal/session"
)

// Sink receives the display payload after every state change.
type Sink interface {
	Publish(snap session.Snapshot)
}

// Multi fans a snapshot out to several sinks.
type Multi []Sink

func (m Multi) Publish(snap session.Snapshot) {
	for _, s := range m {
		if s != nil {
			s.Publish(snap)
		}
	}
}

// LogSink writes a debug line per published snapshot.
type LogSink struct{}

func (LogSink) Publish(snap session.Snapshot) {
	logger.Debugf("tick=%d %s price=%s cash=%s holdings=%s portfolio=%s bot=%q trades=%d win=%d%%",
		snap.Tick,
		snap.Symbol,
		snap.Price.StringFixed(2),
		snap.CashBalance.StringFixed(2),
		snap.AssetHoldings.StringFixed(8),
		snap.PortfolioValue.StringFixed(2),
		snap.Bot.Status,
		snap.TradeCount,
		snap.WinRatePct,
	)
}
