package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tradesim/internal/desk"
	"tradesim/internal/ledger"
	"tradesim/internal/logger"
	"tradesim/internal/pkg/text"
)

const (
	defaultFillQueue = 64
	maxNoteRunes     = 200
	alertTimeLayout  = "2006-01-02 15:04:05 MST"
)

// FillNotifier turns desk fills into text alerts. OnFill never blocks the
// desk loop; alerts are sent from Run and dropped when the queue is full.
type FillNotifier struct {
	sender TextNotifier
	queue  chan desk.Fill
}

func NewFillNotifier(sender TextNotifier, buffer int) *FillNotifier {
	if buffer <= 0 {
		buffer = defaultFillQueue
	}
	return &FillNotifier{sender: sender, queue: make(chan desk.Fill, buffer)}
}

func (n *FillNotifier) OnFill(f desk.Fill) {
	select {
	case n.queue <- f:
	default:
		logger.Warnf("fill notifier queue full, dropping alert for trade %s", f.Trade.ID)
	}
}

// Run sends queued alerts until ctx is done.
func (n *FillNotifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-n.queue:
			sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err := n.sender.SendText(sendCtx, FillMessage(f))
			cancel()
			if err != nil {
				logger.Warnf("fill alert for trade %s failed: %v", f.Trade.ID, err)
			}
		}
	}
}

// FillMessage renders a fill as a Markdown alert: side and source header,
// the fill figures in a code block, then trade id and time.
func FillMessage(f desk.Fill) string {
	t := f.Trade
	icon := "🟢"
	if t.Side == ledger.SideSell {
		icon = "🔴"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s %s\n\n", icon, strings.ToUpper(string(t.Side)), f.Symbol, strings.ToUpper(string(f.Source)))
	b.WriteString("```\n")
	if note := strings.TrimSpace(t.Note); note != "" {
		b.WriteString(codeSafe(text.Truncate(note, maxNoteRunes)))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "- Price: %s\n", t.Price.StringFixed(2))
	fmt.Fprintf(&b, "- Quantity: %s\n", t.Quantity.StringFixed(8))
	fmt.Fprintf(&b, "- Notional: %s\n", t.Notional.StringFixed(2))
	fmt.Fprintf(&b, "- Fee: %s\n", t.Fee.StringFixed(2))
	b.WriteString("```\n\n")
	b.WriteString("Trade " + codeSafe(t.ID))
	if !t.Time.IsZero() {
		b.WriteString("\nTime: " + t.Time.Format(alertTimeLayout))
	}
	return b.String()
}

// codeSafe keeps free text from closing the code block early.
func codeSafe(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}
