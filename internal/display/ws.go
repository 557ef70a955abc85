package display

import (
	"net/http"
	"sync/atomic"
	"time"

	"tradesim/internal/logger"
	"tradesim/internal/session"

	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer = 32
	writeWait        = 5 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
)

// Message is the frame sent to websocket clients.
type Message struct {
	Type string           `json:"type"`
	Data session.Snapshot `json:"data"`
}

// WSHub streams snapshots to websocket clients. New clients get the latest
// snapshot right away.
type WSHub struct {
	hub      *hub[Message]
	latest   atomic.Pointer[Message]
	upgrader websocket.Upgrader
}

func NewWSHub() *WSHub {
	return &WSHub{
		hub:      newHub[Message](),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

func (h *WSHub) Publish(snap session.Snapshot) {
	msg := Message{Type: "snapshot", Data: snap}
	h.latest.Store(&msg)
	h.hub.Broadcast(msg)
}

func (h *WSHub) Subscribers() int {
	return h.hub.Len()
}

func (h *WSHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debugf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(subscriberBuffer)
	defer h.hub.Unsubscribe(sub)

	closed := make(chan struct{})
	go readPump(conn, closed)

	if msg := h.latest.Load(); msg != nil {
		if err := writeJSON(conn, *msg); err != nil {
			return
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-sub.ch:
			if !ok {
				return
			}
			if err := writeJSON(conn, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// readPump drains client frames so control messages are processed, and
// signals when the peer goes away.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
