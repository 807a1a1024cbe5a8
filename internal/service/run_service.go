package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-codereview-be/internal/apperror"
	"ai-codereview-be/internal/dto"
	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/internal/pkg/serverutils"
	"ai-codereview-be/internal/repository/contract"
	"ai-codereview-be/internal/route"
	"ai-codereview-be/pkg/events"

	"github.com/google/uuid"
)

type IRunService interface {
	Submit(ctx context.Context, req *dto.SubmitRunRequest) (*dto.SubmitRunResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.RunResponse, error)
	GetAll(ctx context.Context, req *dto.RunListRequest) ([]*dto.RunSummaryResponse, error)
}

type runService struct {
	repo      contract.RunRepository
	publisher IPublisherService
	routes    route.Routes
	events    RunEventSink
	logger    logger.ILogger
}

func NewRunService(
	repo contract.RunRepository,
	publisher IPublisherService,
	routes route.Routes,
	events RunEventSink,
	logger logger.ILogger,
) IRunService {
	return &runService{
		repo:      repo,
		publisher: publisher,
		routes:    routes,
		events:    events,
		logger:    logger,
	}
}

// Submit validates and queues a run. Credentials for every route are checked
// up front so a run never starts only to fail on its first model call.
func (s *runService) Submit(ctx context.Context, req *dto.SubmitRunRequest) (*dto.SubmitRunResponse, error) {
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := route.ValidateAll(s.routes.All()...); err != nil {
		return nil, err
	}

	run := &entity.Run{
		Id:        uuid.New(),
		Status:    entity.RunStatusQueued,
		Initial:   req.ToState(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	payload, err := json.Marshal(dto.RunQueuedMessage{RunId: run.Id})
	if err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		return nil, fmt.Errorf("queue run %s: %w", run.Id, err)
	}

	s.events.Emit(ctx, events.NewRunEvent(events.RunQueued, run.Id.String(), "", map[string]interface{}{
		"request":      run.Initial.Request,
		"target_files": entity.ResolveTargetFiles(run.Initial),
	}))
	s.logger.Info("RunService", "Run queued", map[string]interface{}{"run_id": run.Id.String()})

	return &dto.SubmitRunResponse{Id: run.Id, Status: string(run.Status)}, nil
}

func (s *runService) Show(ctx context.Context, id uuid.UUID) (*dto.RunResponse, error) {
	run, err := s.repo.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s: %w", id, apperror.ErrNotFound)
	}
	return dto.NewRunResponse(run), nil
}

func (s *runService) GetAll(ctx context.Context, req *dto.RunListRequest) ([]*dto.RunSummaryResponse, error) {
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	runs, err := s.repo.FindAll(ctx, contract.RunQuery{
		Status: entity.RunStatus(req.Status),
		Limit:  req.Limit,
		Offset: req.Offset,
	})
	if err != nil {
		return nil, err
	}
	res := make([]*dto.RunSummaryResponse, 0, len(runs))
	for _, run := range runs {
		res = append(res, dto.NewRunSummaryResponse(run))
	}
	return res, nil
}
