package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"tradesim/internal/desk"
	"tradesim/internal/ledger"
	"tradesim/internal/pkg/circuit"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func noBackoff(int) time.Duration { return 0 }

func TestTelegramSendText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "42")
	tg.BaseURL = srv.URL
	require.NoError(t, tg.SendText(context.Background(), "hello"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "Markdown", got["parse_mode"])
}

func TestTelegramRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "42")
	tg.BaseURL = srv.URL
	tg.Backoff = noBackoff
	err := tg.SendText(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestTelegramBreakerShortCircuits(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "42").WithBreaker(circuit.NewCircuitBreaker("telegram", 1, time.Hour))
	tg.BaseURL = srv.URL
	tg.Retries = 1
	assert.Error(t, tg.SendText(context.Background(), "a"))
	assert.ErrorIs(t, tg.SendText(context.Background(), "b"), circuit.ErrOpen)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTelegramRequiresCredentials(t *testing.T) {
	assert.Error(t, NewTelegram("", "1").SendText(context.Background(), "x"))
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) SendText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func sampleFill() desk.Fill {
	return desk.Fill{
		Source: desk.SourceBot,
		Symbol: "BTC/USD",
		Trade: ledger.Trade{
			ID:       "abc",
			Side:     ledger.SideSell,
			Price:    decimal.NewFromInt(43500),
			Quantity: decimal.RequireFromString("0.1"),
			Notional: decimal.NewFromInt(4350),
			Fee:      decimal.RequireFromString("4.35"),
			Note:     "Take Profit Triggered",
			Time:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestFillMessage(t *testing.T) {
	out := FillMessage(sampleFill())
	assert.True(t, strings.HasPrefix(out, "🔴 SELL BTC/USD BOT\n\n```\nTake Profit Triggered\n"))
	assert.Contains(t, out, "- Price: 43500.00\n")
	assert.Contains(t, out, "- Quantity: 0.10000000\n")
	assert.Contains(t, out, "- Notional: 4350.00\n")
	assert.Contains(t, out, "- Fee: 4.35\n```")
	assert.True(t, strings.HasSuffix(out, "Trade abc\nTime: 2024-03-01 12:00:00 UTC"))
}

func TestFillMessageManualBuy(t *testing.T) {
	f := sampleFill()
	f.Source = desk.SourceManual
	f.Trade.Side = ledger.SideBuy
	f.Trade.Note = "  "
	f.Trade.Time = time.Time{}

	out := FillMessage(f)
	assert.True(t, strings.HasPrefix(out, "🟢 BUY BTC/USD MANUAL\n\n```\n- Price: 43500.00\n"))
	assert.NotContains(t, out, "Time:")
}

func TestFillMessageNoteIsBoundedAndCodeSafe(t *testing.T) {
	f := sampleFill()
	f.Trade.Note = "dip ```x``` " + strings.Repeat("📉", 500)

	out := FillMessage(f)
	require.True(t, utf8.ValidString(out))
	assert.Equal(t, 2, strings.Count(out, "```"))

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	note := lines[3]
	assert.True(t, strings.HasPrefix(note, "dip '''x''' 📉"))
	assert.True(t, strings.HasSuffix(note, "..."))
	assert.Equal(t, maxNoteRunes, utf8.RuneCountInString(note))
}

func TestFillNotifierSendsQueuedFills(t *testing.T) {
	sender := new(MockNotifier)
	sent := make(chan string, 1)
	sender.On("SendText", mock.Anything, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { sent <- args.String(1) }).
		Return(nil).Once()

	n := NewFillNotifier(sender, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	n.OnFill(sampleFill())
	select {
	case text := <-sent:
		assert.Contains(t, text, "SELL BTC/USD")
	case <-time.After(3 * time.Second):
		t.Fatal("fill alert not sent")
	}
	cancel()
	assert.NoError(t, <-done)
	sender.AssertExpectations(t)
}

func TestFillNotifierDropsWhenFull(t *testing.T) {
	n := NewFillNotifier(new(MockNotifier), 1)
	n.OnFill(sampleFill())
	assert.NotPanics(t, func() { n.OnFill(sampleFill()) })
	assert.Len(t, n.queue, 1)
}
