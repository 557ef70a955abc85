package display

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tradesim/internal/session"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSink struct{ mock.Mock }

func (m *MockSink) Publish(snap session.Snapshot) { m.Called(snap) }

func snap(tick uint64, price string) session.Snapshot {
	return session.Snapshot{Symbol: "BTC/USD", Tick: tick, Price: decimal.RequireFromString(price)}
}

func TestMultiFansOut(t *testing.T) {
	a, b := new(MockSink), new(MockSink)
	s := snap(1, "100")
	a.On("Publish", s).Return().Once()
	b.On("Publish", s).Return().Once()

	Multi{a, nil, b}.Publish(s)
	a.AssertExpectations(t)
	b.AssertExpectations(t)
}

func TestLogSinkDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { LogSink{}.Publish(snap(3, "42500.5")) })
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := newHub[int]()
	sub := h.Subscribe(1)
	h.Broadcast(1)
	h.Broadcast(2)
	assert.Equal(t, 1, <-sub.ch)
	select {
	case v := <-sub.ch:
		t.Fatalf("unexpected value %d", v)
	default:
	}
	h.Unsubscribe(sub)
	h.Unsubscribe(sub)
	assert.Equal(t, 0, h.Len())
	_, ok := <-sub.ch
	assert.False(t, ok)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWSHubStreamsSnapshots(t *testing.T) {
	h := NewWSHub()
	h.Publish(snap(1, "100"))

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readMessage(t, conn)
	assert.Equal(t, "snapshot", first.Type)
	assert.Equal(t, uint64(1), first.Data.Tick)

	// the latest snapshot is written after subscribing, so this one is not lost
	h.Publish(snap(2, "101.25"))
	second := readMessage(t, conn)
	assert.Equal(t, uint64(2), second.Data.Tick)
	assert.Equal(t, "101.25", second.Data.Price.String())
	assert.Equal(t, 1, h.Subscribers())

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return h.Subscribers() == 0 }, 3*time.Second, 10*time.Millisecond)
}
