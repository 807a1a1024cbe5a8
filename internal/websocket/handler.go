package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs registers conn as a watcher of runID and blocks until it leaves.
// snapshot, when non-nil, is queued before any live event so the watcher
// starts from the run's current state.
func ServeWs(hub *Hub, conn *websocket.Conn, runID string, snapshot []byte) {
	client := newClient(hub, conn, runID)
	if snapshot != nil {
		client.Send <- snapshot
	}
	hub.register <- client

	go client.pushLoop()
	client.awaitClose()
}
