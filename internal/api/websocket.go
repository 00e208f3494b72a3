package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/longctl/longctl/internal/controller"
	"github.com/longctl/longctl/internal/ui"
)

const (
	MessageTypeStatusInit = "status_init"
	MessageTypeStatus     = "status"

	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	defaultSendBuffer      = 32
	defaultBroadcastBuffer = 128
)

// Envelope is the wire format of every websocket message
type Envelope struct {
	Type string      `json:"type"`
	Ts   time.Time   `json:"ts"`
	Data interface{} `json:"data,omitempty"`
}

// Hub fans out serialized messages to all connected websocket clients.
// Clients that cannot keep up are disconnected.
type Hub struct {
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	// closed once Run returns
	done chan struct{}

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuffer int
}

func NewHub(sendBuffer int, broadcastBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	if broadcastBuffer <= 0 {
		broadcastBuffer = defaultBroadcastBuffer
	}
	return &Hub{
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		clients:    map[*Client]struct{}{},
		sendBuffer: sendBuffer,
	}
}

// Run processes hub events until ctx is canceled, then disconnects all clients
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			ui.Debug("Websocket client %s connected (%d clients)", c.remoteAddr, n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow client")
			}
		}
	}
}

// Register adds the client to the hub, it returns false if the hub is no longer running
func (h *Hub) Register(c *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes the client from the hub, it is a no-op once the hub stopped
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.closeSend()
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.closeSend()
		ui.Debug("Websocket client %s disconnected: %s (%d clients)", c.remoteAddr, reason, n)
	}
}

// Broadcast serializes the given message and enqueues it for all clients.
// It never blocks, messages are dropped if the hub queue is full.
func (h *Hub) Broadcast(messageType string, data interface{}) error {
	msg, err := encodeMessage(messageType, data)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- msg:
	default:
		ui.Warning("Websocket broadcast queue full, dropping %s message", messageType)
	}
	return nil
}

func encodeMessage(messageType string, data interface{}) ([]byte, error) {
	return json.Marshal(Envelope{
		Type: messageType,
		Ts:   time.Now(),
		Data: data,
	})
}

// RunStatusBroadcaster forwards the given statuses to the hub
// until ctx is canceled or the subscription ends
func RunStatusBroadcaster(ctx context.Context, statuses <-chan controller.Status, hub *Hub) {
	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-statuses:
			if !ok {
				return
			}
			if err := hub.Broadcast(MessageTypeStatus, status); err != nil {
				ui.Warning("Unable to encode status of vehicle '%s': %v", status.VehicleId, err)
			}
		}
	}
}

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	closeOnce  sync.Once
	remoteAddr string
}

func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, hub.sendBuffer),
		remoteAddr: remoteAddr,
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// writePump writes queued messages to the websocket, it exits on write error
// or once the hub closes the send queue
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logClose(c.remoteAddr, err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logClose(c.remoteAddr, err)
				return
			}
		}
	}
}

// readPump discards incoming messages to detect disconnects, then unregisters the client
func (c *Client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			logClose(c.remoteAddr, err)
			c.hub.Unregister(c)
			return
		}
	}
}

func logClose(remoteAddr string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		ui.Debug("Websocket client %s closed the connection: %d %s", remoteAddr, closeErr.Code, closeErr.Text)
		return
	}
	ui.Debug("Websocket connection to %s failed: %v", remoteAddr, err)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func registerWebsocketEndpoint(rest *echo.Echo, contr controller.LongitudinalController, hub *Hub) {
	rest.GET("/ws/", func(c echo.Context) error {
		return serveWebsocket(c, contr, hub)
	})
}

// serveWebsocket upgrades the connection, queues the current status and registers the client
func serveWebsocket(c echo.Context, contr controller.LongitudinalController, hub *Hub) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		ui.Warning("Websocket upgrade failed: %v", err)
		return nil
	}

	client := NewClient(hub, conn, c.Request().RemoteAddr)
	msg, err := encodeMessage(MessageTypeStatusInit, contr.GetStatus())
	if err == nil {
		client.send <- msg
	} else {
		ui.Warning("Unable to encode initial status: %v", err)
	}
	if !hub.Register(client) {
		_ = conn.Close()
		return nil
	}

	// the request context is canceled once this handler returns,
	// the connection lifetime is managed by the hub and the pumps instead
	go client.writePump()
	go client.readPump()

	return nil
}
