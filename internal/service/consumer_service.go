package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-codereview-be/internal/apperror"
	"ai-codereview-be/internal/dto"
	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/orchestrator"
	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/internal/repository/contract"
	"ai-codereview-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// RunGraph executes one orchestration
type RunGraph interface {
	Run(ctx context.Context, initial entity.SessionState, cb *orchestrator.Callbacks) (entity.SessionState, error)
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	repo       contract.RunRepository
	graph      RunGraph
	events     RunEventSink
	runTimeout time.Duration
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	repo contract.RunRepository,
	graph RunGraph,
	events RunEventSink,
	runTimeout time.Duration,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		repo:       repo,
		graph:      graph,
		events:     events,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Consume executes queued runs one at a time until ctx ends. Runs share one
// workspace, so they are never executed concurrently.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.RunQueuedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // a malformed message will never parse
		return
	}

	run, err := cs.repo.FindById(ctx, payload.RunId)
	if err != nil {
		cs.logger.Error("Consumer", "Failed to load run", map[string]interface{}{"run_id": payload.RunId.String(), "error": err.Error()})
		msg.Nack()
		return
	}
	if run == nil || run.Status != entity.RunStatusQueued {
		msg.Ack()
		return
	}

	started := time.Now().UTC()
	run.Status = entity.RunStatusRunning
	run.StartedAt = &started
	if err := cs.repo.Save(ctx, run); err != nil {
		cs.logger.Error("Consumer", "Failed to mark run running", map[string]interface{}{"run_id": run.Id.String(), "error": err.Error()})
		msg.Nack()
		return
	}

	// Once claimed the run is never redelivered: stages write files and a
	// replay would apply them twice.
	msg.Ack()

	cs.execute(ctx, run)
}

func (cs *consumerService) execute(ctx context.Context, run *entity.Run) {
	runID := run.Id.String()
	cs.events.Emit(ctx, events.NewRunEvent(events.RunStarted, runID, "", nil))
	cs.logger.Info("Consumer", "Attempting run", map[string]interface{}{"run_id": runID})

	runCtx, span := otel.Tracer("consumer").Start(ctx, "run.execute",
		trace.WithAttributes(attribute.String("run.id", runID)),
	)
	defer span.End()

	if cs.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, cs.runTimeout)
		defer cancel()
	}

	cb := &orchestrator.Callbacks{
		OnStageStart: func(stage orchestrator.Stage, _ entity.SessionState) {
			run.CurrentStage = string(stage)
			cs.save(ctx, run)
		},
		OnStageComplete: func(stage orchestrator.Stage, state entity.SessionState) {
			run.State = &state
			cs.save(ctx, run)
			cs.events.Emit(ctx, events.NewRunEvent(events.StageCompleted, runID, string(stage), stageSummary(state)))
		},
	}

	final, err := cs.graph.Run(runCtx, run.Initial, cb)

	finished := time.Now().UTC()
	run.State = &final
	run.CurrentStage = ""
	run.FinishedAt = &finished

	span.SetAttributes(attribute.Int("run.review_cycles", final.ReviewCycles))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		run.Status = entity.RunStatusFailed
		run.Error = err.Error()
		run.Hint = apperror.Hint(err)
		cs.save(ctx, run)
		cs.events.Emit(ctx, events.NewRunEvent(events.RunFailed, runID, "", map[string]interface{}{
			"error": run.Error,
			"hint":  run.Hint,
		}))
		cs.logger.Error("Consumer", "Run failed", map[string]interface{}{"run_id": runID, "error": run.Error, "hint": run.Hint})
		return
	}

	run.Status = entity.RunStatusCompleted
	cs.save(ctx, run)
	cs.events.Emit(ctx, events.NewRunEvent(events.RunCompleted, runID, "", stageSummary(final)))
	cs.logger.Info("Consumer", "Successfully completed run", map[string]interface{}{
		"run_id":        runID,
		"review_cycles": final.ReviewCycles,
	})
}

func (cs *consumerService) save(ctx context.Context, run *entity.Run) {
	// progress writes outlive a run that timed out
	if err := cs.repo.Save(context.WithoutCancel(ctx), run); err != nil {
		cs.logger.Warn("Consumer", "Failed to persist run progress", map[string]interface{}{
			"run_id": run.Id.String(),
			"error":  err.Error(),
		})
	}
}

func stageSummary(state entity.SessionState) map[string]interface{} {
	return map[string]interface{}{
		"review_cycles":    state.ReviewCycles,
		"review_satisfied": state.ReviewSatisfied,
		"open_issues":      len(state.ReviewIssues),
		"written_files":    len(state.WrittenFiles),
	}
}
