package websocket

import (
	"time"

	"ai-codereview-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// instanceID tells this process's redis messages apart from its peers'
var instanceID = uuid.NewString()

// Client is one websocket connection following one run
type Client struct {
	Hub   *Hub
	Conn  *websocket.Conn
	RunID string

	// outbound frames; closed by the hub
	Send chan []byte

	logger logger.ILogger
}

func newClient(hub *Hub, conn *websocket.Conn, runID string) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		RunID:  runID,
		Send:   make(chan []byte, sendBuffer),
		logger: hub.logger,
	}
}

func (c *Client) write(kind int, data []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(kind, data)
}

// pushLoop writes one frame per event and keeps the connection alive with pings
func (c *Client) pushLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, open := <-c.Send:
			if !open {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// awaitClose blocks until the watcher goes away. Watchers never send data, so
// reading only services control frames.
func (c *Client) awaitClose() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	extend := func() error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) }
	c.Conn.SetReadLimit(maxMessageSize)
	_ = extend()
	c.Conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, _, err := c.Conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			c.logger.Warn("WebSocket", "Watcher closed unexpectedly", map[string]interface{}{
				"run_id": c.RunID,
				"error":  err.Error(),
			})
		}
		return
	}
}
