package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wricardo/tictactoe-rooms/game/config"
	"github.com/wricardo/tictactoe-rooms/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outbound messages queued per client before it is dropped.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	// rooms is owned by the hub's Run goroutine.
	rooms map[string]bool
}

type subscription struct {
	connID string
	roomID string
}

type outbound struct {
	connID string
	roomID string
	data   []byte
}

// Hub owns every live client and the room subscriptions between them. All
// hub state is confined to the Run goroutine; the exported methods only
// enqueue work for it.
type Hub struct {
	service service.GameService
	logger  *slog.Logger
	opts    config.WebSocket

	// Owned by Run
	clients map[string]*Client
	rooms   map[string]map[string]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan subscription
	unsubscribe chan subscription
	send        chan outbound
	broadcast   chan outbound
	done        chan struct{}

	connected atomic.Int64
}

// NewHub creates a hub that hands inbound events to svc. Zero fields in
// opts fall back to package defaults.
func NewHub(svc service.GameService, opts config.WebSocket, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = writeWait
	}
	if opts.PongWait <= 0 {
		opts.PongWait = pongWait
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = maxMessageSize
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = sendBuffer
	}

	return &Hub{
		service:     svc,
		logger:      logger,
		opts:        opts,
		clients:     make(map[string]*Client),
		rooms:       make(map[string]map[string]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan subscription),
		unsubscribe: make(chan subscription),
		send:        make(chan outbound),
		broadcast:   make(chan outbound),
		done:        make(chan struct{}),
	}
}

// Run starts the hub's event loop. It returns when ctx is cancelled, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for _, client := range h.clients {
			h.removeClient(client)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			if h.clients[client.id] == client {
				h.removeClient(client)
			}

		case sub := <-h.subscribe:
			h.subscribeClient(sub)

		case sub := <-h.unsubscribe:
			h.unsubscribeClient(sub)

		case msg := <-h.send:
			if client, ok := h.clients[msg.connID]; ok {
				h.deliver(client, msg.data)
			}

		case msg := <-h.broadcast:
			for connID := range h.rooms[msg.roomID] {
				if client, ok := h.clients[connID]; ok {
					h.deliver(client, msg.data)
				}
			}
		}
	}
}

// Send implements service.Transport. Messages for connections this hub does
// not know are dropped.
func (h *Hub) Send(connID string, msg *service.Message) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.enqueue(h.send, outbound{connID: connID, data: data})
}

// Broadcast implements service.Transport.
func (h *Hub) Broadcast(roomID string, msg *service.Message) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.enqueue(h.broadcast, outbound{roomID: roomID, data: data})
}

// Subscribe implements service.Transport.
func (h *Hub) Subscribe(connID, roomID string) {
	select {
	case h.subscribe <- subscription{connID: connID, roomID: roomID}:
	case <-h.done:
	}
}

// Unsubscribe implements service.Transport.
func (h *Hub) Unsubscribe(connID, roomID string) {
	select {
	case h.unsubscribe <- subscription{connID: connID, roomID: roomID}:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.connected.Load())
}

// ServeWS upgrades the request and starts the client's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, h.opts.SendBuffer),
		id:    uuid.NewString(),
		rooms: make(map[string]bool),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// The request context ends when this handler returns.
	ctx := context.WithoutCancel(r.Context())

	go client.writePump()
	go client.readPump(ctx)
}

func (h *Hub) encode(msg *service.Message) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", "type", msg.Type, "error", err)
		return nil, false
	}
	return data, true
}

func (h *Hub) enqueue(ch chan<- outbound, msg outbound) {
	select {
	case ch <- msg:
	case <-h.done:
	}
}

// registerClient adds a client and announces its id to it.
func (h *Hub) registerClient(client *Client) {
	h.clients[client.id] = client
	h.connected.Add(1)

	if data, ok := h.encode(&service.Message{
		Type:    service.MessageConnected,
		Payload: service.ConnectedPayload{ConnectionID: client.id},
	}); ok {
		h.deliver(client, data)
	}

	h.logger.Debug("websocket client registered", "connection_id", client.id, "clients", len(h.clients))
}

// removeClient forgets a client and closes its send channel, which makes
// its write pump close the connection.
func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	delete(h.clients, client.id)
	h.connected.Add(-1)

	for roomID := range client.rooms {
		h.unsubscribeClient(subscription{connID: client.id, roomID: roomID})
	}
	close(client.send)

	h.logger.Debug("websocket client unregistered", "connection_id", client.id, "clients", len(h.clients))
}

func (h *Hub) subscribeClient(sub subscription) {
	client, ok := h.clients[sub.connID]
	if !ok {
		return
	}
	if h.rooms[sub.roomID] == nil {
		h.rooms[sub.roomID] = make(map[string]bool)
	}
	h.rooms[sub.roomID][sub.connID] = true
	client.rooms[sub.roomID] = true
}

func (h *Hub) unsubscribeClient(sub subscription) {
	if client, ok := h.clients[sub.connID]; ok {
		delete(client.rooms, sub.roomID)
	}
	members, ok := h.rooms[sub.roomID]
	if !ok {
		return
	}
	delete(members, sub.connID)
	if len(members) == 0 {
		delete(h.rooms, sub.roomID)
	}
}

// deliver queues data for client, dropping the client if it cannot keep up.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.logger.Warn("websocket client too slow, dropping", "connection_id", client.id)
		h.removeClient(client)
	}
}

// readPump pumps events from the WebSocket connection to the service.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.service.Disconnect(ctx, c.hub, c.id)
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	pongWait := c.hub.opts.PongWait
	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", "connection_id", c.id, "error", err)
			}
			return
		}

		var ev service.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.hub.Send(c.id, &service.Message{
				Type:    service.MessageError,
				Payload: service.ErrorPayload{Code: service.CodeInvalidEvent, Message: "message must be a JSON event"},
			})
			continue
		}
		c.hub.service.Handle(ctx, c.hub, c.id, ev)
	}
}

// writePump pumps messages from the hub to the WebSocket connection, one
// JSON message per frame.
func (c *Client) writePump() {
	opts := c.hub.opts
	ticker := time.NewTicker(opts.PingPeriod())
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
