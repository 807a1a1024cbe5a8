package mapper

import (
	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/model"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

type RunMapper struct{}

func NewRunMapper() *RunMapper {
	return &RunMapper{}
}

func (m *RunMapper) ToEntity(mdl *model.ReviewRun) (*entity.Run, error) {
	if mdl == nil {
		return nil, nil
	}
	run := &entity.Run{
		Id:           mdl.Id,
		Status:       entity.RunStatus(mdl.Status),
		CurrentStage: mdl.CurrentStage,
		CreatedAt:    mdl.CreatedAt,
		StartedAt:    mdl.StartedAt,
		FinishedAt:   mdl.FinishedAt,
	}
	if mdl.Error != nil {
		run.Error = *mdl.Error
	}
	if mdl.Hint != nil {
		run.Hint = *mdl.Hint
	}
	if err := json.Unmarshal(mdl.InitialState, &run.Initial); err != nil {
		return nil, fmt.Errorf("decode initial state of run %s: %w", mdl.Id, err)
	}
	if len(mdl.FinalState) > 0 && string(mdl.FinalState) != "null" {
		var state entity.SessionState
		if err := json.Unmarshal(mdl.FinalState, &state); err != nil {
			return nil, fmt.Errorf("decode state of run %s: %w", mdl.Id, err)
		}
		run.State = &state
	}
	return run, nil
}

func (m *RunMapper) ToModel(run *entity.Run) (*model.ReviewRun, error) {
	if run == nil {
		return nil, nil
	}
	initial, err := json.Marshal(run.Initial)
	if err != nil {
		return nil, fmt.Errorf("encode initial state: %w", err)
	}
	mdl := &model.ReviewRun{
		Id:           run.Id,
		Status:       string(run.Status),
		CurrentStage: run.CurrentStage,
		Request:      run.Initial.Request,
		InitialState: datatypes.JSON(initial),
		CreatedAt:    run.CreatedAt,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	}
	if run.State != nil {
		state, err := json.Marshal(run.State)
		if err != nil {
			return nil, fmt.Errorf("encode state: %w", err)
		}
		mdl.FinalState = datatypes.JSON(state)
		mdl.ReviewCycles = run.State.ReviewCycles
		mdl.ReviewSatisfied = run.State.ReviewSatisfied
	}
	if run.Error != "" {
		mdl.Error = &run.Error
	}
	if run.Hint != "" {
		mdl.Hint = &run.Hint
	}
	return mdl, nil
}

func (m *RunMapper) ToEntities(models []*model.ReviewRun) ([]*entity.Run, error) {
	runs := make([]*entity.Run, 0, len(models))
	for _, mdl := range models {
		run, err := m.ToEntity(mdl)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
