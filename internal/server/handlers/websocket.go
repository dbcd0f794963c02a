package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// WebSocketClient represents a connected WebSocket client streaming one
// chat session's events
type WebSocketClient struct {
	conn          *websocket.Conn
	send          chan []byte
	postID        string
	natsConn      *nats.Conn
	subscriptions []*nats.Subscription
	logger        *zap.Logger
}

// WebSocketConfig contains configuration for WebSocket connections
type WebSocketConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Maximum message size allowed from peer
	MaxMessageSize int64
}

// DefaultWebSocketConfig returns the default WebSocket configuration
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     (60 * time.Second * 9) / 10,
		MaxMessageSize: 64 * 1024,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, this should be more restrictive
		return true
	},
}

// ChatWebSocketHandler streams chat events (messages, typing) for one
// session over a WebSocket, bridged from the event bus
func ChatWebSocketHandler(natsConn *nats.Conn, eventsTopic string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := chi.URLParam(r, "id")
		if postID == "" {
			http.Error(w, "Missing chat ID", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("failed to upgrade to WebSocket", zap.Error(err))
			return
		}

		client := &WebSocketClient{
			conn:     conn,
			send:     make(chan []byte, 256),
			postID:   postID,
			natsConn: natsConn,
			logger:   logger,
		}

		go client.writePump()
		go client.readPump()

		if err := client.subscribeToChat(eventsTopic); err != nil {
			logger.Warn("failed to subscribe to chat subjects", zap.String("post_id", postID), zap.Error(err))
			client.closeConnection()
			return
		}

		welcome, _ := json.Marshal(map[string]interface{}{
			"type":    "welcome",
			"post_id": postID,
			"time":    time.Now(),
		})
		client.send <- welcome

		logger.Info("websocket connected", zap.String("post_id", postID))
	}
}

// subscribeToChat subscribes to all event subjects for this session
func (c *WebSocketClient) subscribeToChat(eventsTopic string) error {
	subject := fmt.Sprintf("%s.chat.*.%s", eventsTopic, c.postID)

	sub, err := c.natsConn.Subscribe(subject, func(msg *nats.Msg) {
		select {
		case c.send <- msg.Data:
		default:
			// Slow client; drop rather than block the bus callback
		}
	})
	if err != nil {
		return fmt.Errorf("error subscribing to %s: %w", subject, err)
	}

	c.subscriptions = append(c.subscriptions, sub)
	return nil
}

// writePump pushes queued events and pings to the peer
func (c *WebSocketClient) writePump() {
	config := DefaultWebSocketConfig()
	ticker := time.NewTicker(config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the peer, keeping the pong deadline fresh. Inbound
// payloads are ignored; sending goes through the HTTP API.
func (c *WebSocketClient) readPump() {
	config := DefaultWebSocketConfig()
	defer c.closeConnection()

	c.conn.SetReadLimit(config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// closeConnection drops the subscriptions and closes the socket
func (c *WebSocketClient) closeConnection() {
	for _, sub := range c.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			c.logger.Warn("error unsubscribing", zap.Error(err))
		}
	}
	c.subscriptions = nil

	c.conn.Close()
}
