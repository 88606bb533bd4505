package web

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/alarm-clock/internal/logger"
)

const (
	// clientBuffer is how many frames a browser may lag behind before it is dropped.
	clientBuffer = 32
	// writeWait bounds a single websocket write.
	writeWait = 5 * time.Second
	// pingPeriod is how often idle connections are pinged.
	pingPeriod = 30 * time.Second
)

// ClientCounter observes websocket connections.
type ClientCounter interface {
	ClientConnected()
	ClientDisconnected()
}

// Hub fans frames out to connected browsers.
type Hub struct {
	counter ClientCounter

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub. counter may be nil.
func NewHub(counter ClientCounter) *Hub {
	return &Hub{
		counter: counter,
		clients: make(map[*client]struct{}),
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// broadcast sends f to every client. Clients whose buffer is full are
// disconnected.
func (h *Hub) broadcast(ctx context.Context, f *frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to encode frame", "type", f.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			logger.WarnKV(ctx, "Browser is lagging, disconnecting", "remote", c.conn.RemoteAddr().String())
			h.removeLocked(c)
		}
	}
}

// serve registers conn, writes the initial frames and pumps frames until the
// browser goes away or ctx is done. After Close the browser is turned away.
func (h *Hub) serve(ctx context.Context, conn *websocket.Conn, initial ...*frame) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &client{
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}

	for _, f := range initial {
		payload, err := json.Marshal(f)
		if err != nil {
			continue
		}

		c.send <- payload
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()

		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait),
		)
		_ = conn.Close()

		return
	}

	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.counter != nil {
		h.counter.ClientConnected()
		defer h.counter.ClientDisconnected()
	}

	defer func() {
		h.mu.Lock()
		h.removeLocked(c)
		h.mu.Unlock()

		_ = conn.Close()
	}()

	// Browsers only send control frames; reading drives pong and close handling.
	go func() {
		defer cancel()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				logger.DebugKV(ctx, "Websocket closed by browser", "error", err)
				return
			}
		}
	}()

	h.writeLoop(ctx, c)
}

func (h *Hub) writeLoop(ctx context.Context, c *client) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait),
			)

			return
		case payload, ok := <-c.send:
			if !ok {
				return
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.DebugKV(ctx, "Websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logger.DebugKV(ctx, "Websocket ping failed", "error", err)
				return
			}
		}
	}
}

// Close disconnects every browser and turns away new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true

	for c := range h.clients {
		h.removeLocked(c)
	}
}

// removeLocked unregisters c once. Callers hold mu.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	close(c.send)
}
