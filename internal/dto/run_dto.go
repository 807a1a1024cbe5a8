package dto

import (
	"time"

	"ai-codereview-be/internal/entity"

	"github.com/google/uuid"
)

// SubmitRunRequest starts an orchestration. At least one target file is required.
type SubmitRunRequest struct {
	Request         string   `json:"request" validate:"required"`
	TargetFile      string   `json:"target_file,omitempty"`
	TargetFiles     []string `json:"target_files,omitempty" validate:"required_without=TargetFile,dive,required"`
	ContextFiles    []string `json:"context_files,omitempty" validate:"dive,required"`
	CodingStandards []string `json:"coding_standards,omitempty"`
	MaxReviewCycles int      `json:"max_review_cycles,omitempty" validate:"gte=0,lte=20"`
}

// ToState builds the initial Session State of the run
func (r *SubmitRunRequest) ToState() entity.SessionState {
	return entity.SessionState{
		Request:         r.Request,
		TargetFile:      r.TargetFile,
		TargetFiles:     r.TargetFiles,
		ContextFiles:    r.ContextFiles,
		CodingStandards: r.CodingStandards,
		MaxReviewCycles: r.MaxReviewCycles,
	}
}

// RunListRequest filters GET /runs
type RunListRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=queued running completed failed"`
	Limit  int    `query:"limit"`
	Offset int    `query:"offset"`
}

type SubmitRunResponse struct {
	Id     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}

type RunResponse struct {
	Id           uuid.UUID            `json:"id"`
	Status       string               `json:"status"`
	CurrentStage string               `json:"current_stage,omitempty"`
	Request      string               `json:"request"`
	Error        string               `json:"error,omitempty"`
	Hint         string               `json:"hint,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	FinishedAt   *time.Time           `json:"finished_at,omitempty"`
	State        *entity.SessionState `json:"state,omitempty"`
}

// RunSummaryResponse is one row of the run history
type RunSummaryResponse struct {
	Id              uuid.UUID  `json:"id"`
	Status          string     `json:"status"`
	Request         string     `json:"request"`
	ReviewCycles    int        `json:"review_cycles"`
	ReviewSatisfied bool       `json:"review_satisfied"`
	CreatedAt       time.Time  `json:"created_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// RunQueuedMessage is the event bus payload that asks the consumer to execute a run
type RunQueuedMessage struct {
	RunId uuid.UUID `json:"run_id"`
}

func NewRunResponse(run *entity.Run) *RunResponse {
	return &RunResponse{
		Id:           run.Id,
		Status:       string(run.Status),
		CurrentStage: run.CurrentStage,
		Request:      run.Initial.Request,
		Error:        run.Error,
		Hint:         run.Hint,
		CreatedAt:    run.CreatedAt,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		State:        run.State,
	}
}

func NewRunSummaryResponse(run *entity.Run) *RunSummaryResponse {
	res := &RunSummaryResponse{
		Id:         run.Id,
		Status:     string(run.Status),
		Request:    run.Initial.Request,
		CreatedAt:  run.CreatedAt,
		FinishedAt: run.FinishedAt,
	}
	if run.State != nil {
		res.ReviewCycles = run.State.ReviewCycles
		res.ReviewSatisfied = run.State.ReviewSatisfied
	}
	return res
}
