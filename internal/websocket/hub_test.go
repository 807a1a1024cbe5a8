package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func watch(hub *Hub, runID string, buffer int) *Client {
	c := &Client{Hub: hub, RunID: runID, Send: make(chan []byte, buffer), logger: hub.logger}
	hub.register <- c
	return c
}

func waitForWatchers(t *testing.T, hub *Hub, runID string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Watchers(runID) == n }, time.Second, 5*time.Millisecond)
}

func TestPublishReachesOnlyWatchersOfThatRun(t *testing.T) {
	hub := startHub(t)
	a := watch(hub, "run-a", 4)
	b := watch(hub, "run-b", 4)
	waitForWatchers(t, hub, "run-a", 1)
	waitForWatchers(t, hub, "run-b", 1)

	hub.Publish(context.Background(), events.NewRunEvent(events.StageCompleted, "run-a", "writer", nil))

	select {
	case raw := <-a.Send:
		var msg struct {
			Type string                 `json:"type"`
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "run_event", msg.Type)
		assert.Equal(t, "writer", msg.Data["stage"])
	case <-time.After(time.Second):
		t.Fatal("watcher of run-a got nothing")
	}
	assert.Empty(t, b.Send)
}

func TestSlowWatcherIsDropped(t *testing.T) {
	hub := startHub(t)
	slow := watch(hub, "run", 1)
	waitForWatchers(t, hub, "run", 1)

	hub.Publish(context.Background(), events.NewRunEvent(events.RunStarted, "run", "", nil))
	hub.Publish(context.Background(), events.NewRunEvent(events.StageCompleted, "run", "writer", nil))

	assert.Equal(t, 0, hub.Watchers("run"))
	<-slow.Send
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestUnregisterRemovesWatcher(t *testing.T) {
	hub := startHub(t)
	c := watch(hub, "run", 1)
	waitForWatchers(t, hub, "run", 1)

	hub.unregister <- c
	waitForWatchers(t, hub, "run", 0)
}
