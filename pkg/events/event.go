package events

import (
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "RUN_STARTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	RunQueued      = "RUN_QUEUED"
	RunStarted     = "RUN_STARTED"
	StageCompleted = "STAGE_COMPLETED"
	RunCompleted   = "RUN_COMPLETED"
	RunFailed      = "RUN_FAILED"
)

// RunEvent is a lifecycle notification for one orchestration run
type RunEvent struct {
	Type       string                 `json:"type"`
	RunID      string                 `json:"run_id"`
	Stage      string                 `json:"stage,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func NewRunEvent(eventType, runID, stage string, data map[string]interface{}) RunEvent {
	return RunEvent{
		Type:       eventType,
		RunID:      runID,
		Stage:      stage,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}

func (e RunEvent) EventType() string {
	return e.Type
}

func (e RunEvent) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"type":        e.Type,
		"run_id":      e.RunID,
		"occurred_at": e.OccurredAt.Format(time.RFC3339Nano),
	}
	if e.Stage != "" {
		payload["stage"] = e.Stage
	}
	if len(e.Data) > 0 {
		payload["data"] = e.Data
	}
	return payload
}

func (e RunEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// IsTerminal reports whether no further events follow for the run
func (e RunEvent) IsTerminal() bool {
	return e.Type == RunCompleted || e.Type == RunFailed
}
