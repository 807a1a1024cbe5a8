package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/pkg/events"

	"github.com/redis/go-redis/v9"
)

// clusterChannel carries run events between instances so a watcher connected
// to one instance sees runs executed by another.
const clusterChannel = "codereview_run_events"

type Hub struct {
	// Watchers per run id
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Optional redis connection for cross-instance fan-out
	rdb *redis.Client

	logger logger.ILogger
}

type clusterMessage struct {
	Origin  string          `json:"origin"`
	RunID   string          `json:"run_id"`
	Message json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

// Run serves registrations until ctx ends
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.RunID] = append(h.clients[client.RunID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Watcher registered", map[string]interface{}{"run_id": client.RunID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.RunID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.RunID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.RunID]) == 0 {
		delete(h.clients, client.RunID)
		h.logger.Info("Hub", "Last watcher left run", map[string]interface{}{"run_id": client.RunID})
	}
}

// Watchers reports how many local connections follow runID
func (h *Hub) Watchers(runID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[runID])
}

// Publish delivers event to local watchers of its run and to other instances
func (h *Hub) Publish(ctx context.Context, event events.RunEvent) {
	data, err := json.Marshal(map[string]interface{}{
		"type": "run_event",
		"data": event.Payload(),
	})
	if err != nil {
		h.logger.Error("Hub", "Failed to encode run event", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliver(event.RunID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: instanceID, RunID: event.RunID, Message: data})
		if err := h.rdb.Publish(ctx, clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to fan out run event", map[string]interface{}{"run_id": event.RunID, "error": err.Error()})
		}
	}
}

func (h *Hub) deliver(runID string, data []byte) {
	// sends happen under the read lock so remove cannot close a channel mid-send
	var dropped []*Client
	h.mu.RLock()
	for _, client := range h.clients[runID] {
		select {
		case client.Send <- data:
		default:
			dropped = append(dropped, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range dropped {
		h.logger.Warn("Hub", "Watcher buffer full, dropping connection", map[string]interface{}{"run_id": runID})
		h.remove(client)
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Unreadable cluster message", map[string]interface{}{"error": err.Error()})
				continue
			}
			// our own events were delivered locally already
			if payload.Origin == instanceID {
				continue
			}
			h.deliver(payload.RunID, payload.Message)
		}
	}
}
