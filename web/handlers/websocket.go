package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// FeedMessage is the envelope broadcast over the live feed. Type is one of
// "activity", "alert", "alert_acknowledged", "alert_resolved".
type FeedMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// feedClient is the hub's view of a connected operator. Real connections
// and test doubles both satisfy it.
type feedClient interface {
	outbox() chan []byte
	shutdown()
}

// WebSocketHub fans feed messages out to every connected operator. A client
// that cannot keep up with the feed is dropped rather than allowed to stall
// the broadcast loop.
type WebSocketHub struct {
	mu      sync.Mutex
	clients map[feedClient]struct{}

	feed   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

// NewWebSocketHub creates a hub. Call Run to start the broadcast loop.
func NewWebSocketHub() *WebSocketHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketHub{
		clients: make(map[feedClient]struct{}),
		feed:    make(chan []byte, 256),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Run delivers queued feed messages until the hub is stopped.
func (h *WebSocketHub) Run() {
	for {
		select {
		case data := <-h.feed:
			h.deliver(data)
		case <-h.ctx.Done():
			return
		}
	}
}

func (h *WebSocketHub) deliver(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.outbox() <- data:
		default:
			// Slow consumer. Cut it loose so the feed stays live for
			// everyone else.
			delete(h.clients, client)
			close(client.outbox())
			log.Printf("ws: dropped slow client (remaining: %d)", len(h.clients))
		}
	}
}

// Broadcast queues a feed message for delivery to all clients. Never
// blocks; when the queue is full the message is dropped.
func (h *WebSocketHub) Broadcast(msg FeedMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: failed to marshal feed message: %v", err)
		return
	}
	select {
	case h.feed <- data:
	default:
		log.Println("ws: feed queue full, dropping message")
	}
}

// Register attaches a client to the feed.
func (h *WebSocketHub) Register(client feedClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	log.Printf("ws: client connected (total: %d)", count)
}

// Unregister detaches a client and closes its outbox. Safe to call for a
// client the hub already dropped.
func (h *WebSocketHub) Unregister(client feedClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.outbox())
	}
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		log.Printf("ws: client disconnected (total: %d)", count)
	}
}

// Stop shuts down the broadcast loop and disconnects all clients.
func (h *WebSocketHub) Stop() {
	h.cancel()
	h.mu.Lock()
	for client := range h.clients {
		close(client.outbox())
		client.shutdown()
	}
	h.clients = make(map[feedClient]struct{})
	h.mu.Unlock()
}

// ServeHTTP upgrades the request to a websocket and attaches it to the
// feed. Origin validation restricts browsers to local operator UIs.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	client := &wsClient{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.Register(client)
	go client.writeLoop()
	go client.readLoop()
}

// wsClient is one live websocket connection.
type wsClient struct {
	hub  *WebSocketHub
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) outbox() chan []byte { return c.send }

func (c *wsClient) shutdown() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

// writeLoop pushes outbox messages to the wire until the outbox closes or a
// write fails.
func (c *wsClient) writeLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.shutdown()
	}()

	for data := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			return
		}
	}
}

// readLoop drains inbound frames to detect disconnects. The feed is
// one-way; client frames carry no meaning.
func (c *wsClient) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.shutdown()
	}()

	for {
		if _, _, err := c.conn.Read(context.Background()); err != nil {
			return
		}
	}
}

// MockClient stands in for a websocket connection in tests.
type MockClient struct {
	SendChan chan []byte
}

func (m *MockClient) outbox() chan []byte { return m.SendChan }

func (m *MockClient) shutdown() {}
