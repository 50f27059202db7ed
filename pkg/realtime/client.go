package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rideloop/backend/internal/domain/user"
	"github.com/rideloop/backend/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// DispatchFunc processes one client intent and returns the reply envelope.
// The reply is delivered synchronously to the same session.
type DispatchFunc func(ctx context.Context, c *Client, event string, data json.RawMessage) Message

// Client represents one live WebSocket session of a principal
type Client struct {
	ID     string
	UserID uuid.UUID
	Role   user.Role

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// Dispatch handles domain intents arriving on the socket. Optional.
	Dispatch DispatchFunc
	// OnClose fires once after the session leaves the registry; last reports
	// whether it was the principal's final live session.
	OnClose func(last bool)

	logger *logger.Logger
}

type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewClient creates a session for an authenticated principal
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, role user.Role, log *logger.Logger) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: log,
	}
}

// Send queues a message for this session without blocking
func (c *Client) Send(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message",
			logger.Err(err),
			logger.String("client_id", c.ID),
		)
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("Client send buffer full",
			logger.String("client_id", c.ID),
		)
	}
}

// ReadPump pumps messages from the WebSocket connection into the dispatcher.
// It owns the unregister path: when the read loop exits for any reason the
// session leaves the registry and OnClose fires with the last-session flag.
func (c *Client) ReadPump() {
	defer func() {
		last := c.hub.Unregister(c)
		c.conn.Close()
		if c.OnClose != nil {
			c.OnClose(last)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error",
					logger.Err(err),
					logger.String("client_id", c.ID),
				)
			}
			break
		}

		c.handleMessage(raw)
	}
}

// WritePump pumps queued messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain queued messages into the same frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Error("Failed to unmarshal client message",
			logger.Err(err),
			logger.String("client_id", c.ID),
		)
		return
	}

	switch msg.Event {
	case "ping":
		c.Send(Message{Event: "pong"})
	default:
		if c.Dispatch == nil {
			c.logger.Warn("No dispatcher for client intent",
				logger.String("event", msg.Event),
				logger.String("client_id", c.ID),
			)
			return
		}
		reply := c.Dispatch(context.Background(), c, msg.Event, msg.Data)
		if reply.Event != "" {
			c.Send(reply)
		}
	}
}
