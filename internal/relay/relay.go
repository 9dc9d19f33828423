// Package relay carries messages between picker surfaces that live in
// different processes.
//
// In-page overlays keep a websocket open to the daemon. Two kinds of
// message flow through it:
//
//   - insertPrompt{content}: a surface that has no input of its own (the
//     terminal picker, the HTTP API) asks whichever overlay owns the user's
//     input to insert the content there.
//   - storageChanged{keys}: another process wrote the store; open pickers
//     may re-rank. Delivery of these is best-effort, surfaces still re-read
//     the store when they open.
//
// A surface that sends insertPrompt gets delivered{recipients} back. Zero
// recipients means no overlay took the content and the sender must fall
// back to its own clipboard.
//
// The hub never waits on a slow client. Each connection has a bounded
// outbox; a client that lets it fill up is dropped.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/sakif/snippet-picker/internal/apperror"
	"github.com/sakif/snippet-picker/internal/metrics"
	"github.com/sakif/snippet-picker/internal/store"
)

// Message types.
const (
	TypeConnected      = "connected"
	TypeInsertPrompt   = "insertPrompt"
	TypeDelivered      = "delivered"
	TypeStorageChanged = "storageChanged"
	TypePing           = "ping"
	TypePong           = "pong"
	TypeError          = "error"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingEvery  = (pongWait * 9) / 10
	outboxSize = 32
	maxMessage = 1 << 20
)

// Message is the single envelope for every frame in both directions.
type Message struct {
	Type    string   `json:"type"`
	Content string   `json:"content,omitempty"`
	Keys    []string `json:"keys,omitempty"`
	Message string   `json:"message,omitempty"`
	// Recipients is set on delivered replies.
	Recipients int `json:"recipients,omitempty"`
}

type client struct {
	id     string
	conn   *websocket.Conn
	outbox chan Message
	done   chan struct{}
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub tracks connected overlays and fans messages out to them.
type Hub struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub returns an empty hub. Overlays run inside third-party pages, so
// any Origin is accepted; the bearer token on /ws is the access check.
func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:  logger,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected overlays.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.RelayConnected()
	h.logger.Info("relay client connected", slog.String("client_id", c.id))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
	if ok {
		h.metrics.RelayDisconnected()
		h.logger.Info("relay client disconnected", slog.String("client_id", c.id))
	}
}

// =========================================================================
// FAN-OUT
// =========================================================================

// broadcast queues msg for every client except skip and returns how many
// accepted it.
func (h *Hub) broadcast(msg Message, skip *client) int {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		if c != skip {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	sent := 0
	for _, c := range targets {
		select {
		case c.outbox <- msg:
			sent++
			h.metrics.RecordRelayMessage(msg.Type, "out")
		case <-c.done:
		default:
			h.logger.Warn("relay client too slow, dropping", slog.String("client_id", c.id))
			h.unregister(c)
		}
	}
	return sent
}

// InsertPrompt asks connected overlays to insert content into the input
// they own. It returns how many overlays received the request; zero means
// nobody could act on it and the caller should fall back to the clipboard.
func (h *Hub) InsertPrompt(content string) (int, error) {
	if content == "" {
		return 0, apperror.ValidationFailed("content", "content is required")
	}
	return h.broadcast(Message{Type: TypeInsertPrompt, Content: content}, nil), nil
}

// StorageChanged tells overlays which store keys another process wrote.
func (h *Hub) StorageChanged(keys []string) int {
	if len(keys) == 0 {
		return 0
	}
	return h.broadcast(Message{Type: TypeStorageChanged, Keys: keys}, nil)
}

// Follow forwards store changes until changes closes or ctx ends.
func (h *Hub) Follow(ctx context.Context, changes <-chan store.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-changes:
			if !ok {
				return
			}
			n := h.StorageChanged(ch.Keys)
			h.logger.Debug("storage change relayed",
				slog.String("keys", strings.Join(ch.Keys, ",")),
				slog.Int("clients", n),
			)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}

// =========================================================================
// CONNECTION
// =========================================================================

// ServeHTTP upgrades the request and serves the connection until either
// side closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		id:     xid.New().String(),
		conn:   conn,
		outbox: make(chan Message, outboxSize),
		done:   make(chan struct{}),
	}
	h.register(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(c)
	}()

	c.outbox <- Message{Type: TypeConnected}
	h.readLoop(c)

	h.unregister(c)
	<-writerDone
	conn.Close()
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg := <-c.outbox:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("relay read failed", slog.String("client_id", c.id), slog.String("error", err.Error()))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var in Message
		if err := json.Unmarshal(data, &in); err != nil {
			h.reply(c, Message{Type: TypeError, Message: "invalid message format"})
			continue
		}
		h.metrics.RecordRelayMessage(inboundLabel(in.Type), "in")

		switch in.Type {
		case TypePing:
			h.reply(c, Message{Type: TypePong})
		case TypeInsertPrompt:
			// A surface without an input of its own hands the content to the
			// overlays. The sender never receives its own request.
			if in.Content == "" {
				h.reply(c, Message{Type: TypeError, Message: "content is required"})
				continue
			}
			n := h.broadcast(Message{Type: TypeInsertPrompt, Content: in.Content}, c)
			h.reply(c, Message{Type: TypeDelivered, Recipients: n})
		default:
			h.reply(c, Message{Type: TypeError, Message: "unknown message type " + in.Type})
		}
	}
}

// inboundLabel keeps client-chosen type strings out of metric labels.
func inboundLabel(msgType string) string {
	switch msgType {
	case TypePing, TypeInsertPrompt:
		return msgType
	}
	return "unknown"
}

func (h *Hub) reply(c *client, msg Message) {
	select {
	case c.outbox <- msg:
	case <-c.done:
	default:
	}
}
