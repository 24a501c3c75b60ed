package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/agentviz/bus"
	"github.com/xiaot623/agentviz/domain"
	"github.com/xiaot623/agentviz/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local visualization tool, no origin restriction
		return true
	},
}

// HandleWebSocket upgrades the connection and bridges it onto the bus:
// the subscriber's history snapshot is queued first, then live events,
// so a late joiner sees the full sequence with no gap or duplicate.
func (h *Handler) HandleWebSocket(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	conn := h.hub.NewConnection(ws)
	sub := h.bus.Subscribe()

	go h.writePump(conn)
	go h.bridge(conn, sub)
	go h.readPump(conn, sub)

	return nil
}

// bridge copies the subscriber's view onto the connection's send queue.
// History goes first; the snapshot was taken atomically with registration
// so the transition to live events is seamless.
func (h *Handler) bridge(conn *hub.Connection, sub *bus.Subscriber) {
	for _, event := range sub.History {
		if !h.forward(conn, sub, event) {
			return
		}
	}

	for event := range sub.Events() {
		if !h.forward(conn, sub, event) {
			return
		}
	}

	// Subscriber channel closed: the bus dropped us or the reader left.
	h.hub.Unregister(conn)
}

// forward queues one event on the connection. Returns false once the
// connection is gone or too slow; the bridge stops there.
func (h *Handler) forward(conn *hub.Connection, sub *bus.Subscriber, event domain.Event) bool {
	err := h.hub.EnqueueJSON(conn, event)
	switch {
	case err == nil:
		return true
	case errors.Is(err, hub.ErrConnectionClosed):
		// Reader already tore the connection down; just detach from the bus.
		h.bus.Unsubscribe(sub)
		return false
	case errors.Is(err, hub.ErrBufferFull):
		h.dropConnection(conn, sub)
		return false
	default:
		log.Printf("ERROR: failed to marshal event: %v", err)
		return true
	}
}

func (h *Handler) dropConnection(conn *hub.Connection, sub *bus.Subscriber) {
	log.Printf("Connection %s too slow, dropping", conn.ID)
	h.bus.Unsubscribe(sub)
	h.hub.Unregister(conn)
}

// readPump drains inbound frames. Observers send no application messages;
// reading keeps pong handling alive and detects disconnects.
func (h *Handler) readPump(conn *hub.Connection, sub *bus.Subscriber) {
	defer func() {
		h.bus.Unsubscribe(sub)
		h.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

// writePump writes queued messages to the WebSocket connection.
func (h *Handler) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
