package desk

import (
	"fmt"
	"time"

	"tradesim/internal/ledger"
	"tradesim/internal/market"
	"tradesim/internal/session"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	// EvtTick advances the simulation one step.
	EvtTick EventType = "TICK"
	// EvtManualTrade fills a user market order.
	EvtManualTrade EventType = "MANUAL_TRADE"
	// EvtSizeOrder converts a balance fraction into a quantity.
	EvtSizeOrder EventType = "SIZE_ORDER"
	// EvtBotUpdate toggles the bot or changes its thresholds.
	EvtBotUpdate EventType = "BOT_UPDATE"
	// EvtExport captures the session state.
	EvtExport EventType = "EXPORT"
	// EvtImport replaces the session with an exported one.
	EvtImport EventType = "IMPORT"
)

type TickPayload struct {
	At time.Time
}

type ManualTradePayload struct {
	Side     ledger.Side
	Quantity decimal.Decimal
}

type SizeOrderPayload struct {
	Side    ledger.Side
	Percent decimal.Decimal
}

// EventEnvelope is the message the desk loop consumes.
type EventEnvelope struct {
	ID        string
	Type      EventType
	Payload   any
	CreatedAt time.Time

	// ReplyCh receives the handler result when set (SendSync).
	ReplyCh chan Reply
}

type Reply struct {
	Value any
	Err   error
}

// FillSource says who issued an order.
type FillSource string

const (
	SourceManual FillSource = "manual"
	SourceBot    FillSource = "bot"
)

// Fill is handed to fill observers after every executed order.
type Fill struct {
	Trade  ledger.Trade
	Source FillSource
	Symbol string
}

// TickEvent is handed to tick observers after every price step.
type TickEvent struct {
	Tick      uint64
	Point     market.Point
	BotStatus string
	Trade     *ledger.Trade
}

// SnapshotSink receives the display payload after every state change.
type SnapshotSink interface {
	Publish(snap session.Snapshot)
}

// SeriesSink receives the chart window after every price step.
type SeriesSink interface {
	Render(points []market.Point)
}

type FillObserver interface {
	OnFill(f Fill)
}

type TickObserver interface {
	OnTick(evt TickEvent)
}

func newEventID(prefix string) string {
	if prefix == "" {
		prefix = "evt"
	}
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
