package entity

import (
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one submitted orchestration and its latest known state
type Run struct {
	Id           uuid.UUID
	Status       RunStatus
	CurrentStage string
	Initial      SessionState
	State        *SessionState // latest state; final once Status is terminal
	Error        string
	Hint         string
	CreatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

func (r *Run) IsFinished() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}
