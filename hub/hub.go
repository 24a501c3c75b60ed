// Package hub provides connection management for WebSocket observers.
package hub

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrBufferFull is returned when a connection's send buffer is full.
var ErrBufferFull = errors.New("send buffer full")

// ErrConnectionClosed is returned when queueing to a connection that has
// already been unregistered.
var ErrConnectionClosed = errors.New("connection closed")

// SendQueueSize bounds each connection's outbound queue.
const SendQueueSize = 256

// Connection represents a single WebSocket observer.
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	mu   sync.Mutex
}

// Hub tracks all connected observers. Live events reach connections
// through per-connection bus subscriptions; Broadcast exists for replay
// delivery, which bypasses the bus.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
	}
}

// NewConnection wraps a websocket and registers it.
func (h *Hub) NewConnection(ws *websocket.Conn) *Connection {
	conn := &Connection{
		ID:   uuid.New().String(),
		Conn: ws,
		Send: make(chan []byte, SendQueueSize),
	}
	h.mu.Lock()
	h.connections[conn.ID] = conn
	h.mu.Unlock()
	log.Printf("Connection registered: %s", conn.ID)
	return conn
}

// Unregister removes a connection and closes its send channel. Idempotent.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; ok {
		delete(h.connections, conn.ID)
		close(conn.Send)
		log.Printf("Connection unregistered: %s", conn.ID)
	}
}

// Broadcast queues data on every connection. A full buffer drops that
// connection rather than blocking the sender.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	var full []*Connection
	for _, conn := range h.connections {
		select {
		case conn.Send <- data:
		default:
			full = append(full, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range full {
		log.Printf("Connection %s buffer full, closing", conn.ID)
		h.Unregister(conn)
	}
}

// BroadcastJSON marshals v and broadcasts it.
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// Enqueue queues data for a single connection. Membership is checked
// under the hub lock; Unregister closes the send channel under the same
// lock, so the send here can never race the close.
func (h *Hub) Enqueue(conn *Connection, data []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return ErrConnectionClosed
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// EnqueueJSON marshals v and queues it for a single connection.
func (h *Hub) EnqueueJSON(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return h.Enqueue(conn, data)
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the underlying websocket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}
