package orchestrator

import (
	"ai-codereview-be/internal/apperror"
	"ai-codereview-be/internal/config"
	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/pkg/logger"
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// StageRunner is one unit of work. It reads state and returns the fields to
// merge; it must not modify state.
type StageRunner interface {
	Run(ctx context.Context, state entity.SessionState) (entity.Delta, error)
}

// Callbacks lets observers follow a run. Every callback receives a copy.
type Callbacks struct {
	OnStageStart    func(stage Stage, state entity.SessionState)
	OnStageComplete func(stage Stage, state entity.SessionState)
	OnFinish        func(state entity.SessionState, err error)
}

type Graph struct {
	writer       StageRunner
	reviewer     StageRunner
	budgetPolicy string
	logger       logger.ILogger
}

func NewGraph(writer, reviewer StageRunner, budgetPolicy string, logger logger.ILogger) *Graph {
	if budgetPolicy != config.BudgetPolicyAdvisory {
		budgetPolicy = config.BudgetPolicyEnforce
	}
	return &Graph{
		writer:       writer,
		reviewer:     reviewer,
		budgetPolicy: budgetPolicy,
		logger:       logger,
	}
}

// Run drives one orchestration to completion. Stages run one at a time. The
// returned state is the last consistent state, also on error.
func (g *Graph) Run(ctx context.Context, initial entity.SessionState, cb *Callbacks) (final entity.SessionState, err error) {
	if cb == nil {
		cb = &Callbacks{}
	}

	ctx, span := otel.Tracer("orchestrator").Start(ctx, "orchestrator.Run")
	defer span.End()

	state := Enter(initial)
	defer func() {
		span.SetAttributes(
			attribute.Int("review.cycles", final.ReviewCycles),
			attribute.Bool("review.satisfied", final.ReviewSatisfied),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if cb.OnFinish != nil {
			cb.OnFinish(final.Clone(), err)
		}
	}()

	g.logger.Info("Orchestrator", "Attempting orchestration run", map[string]interface{}{
		"target_files":      state.TargetFiles,
		"max_review_cycles": state.MaxReviewCycles,
		"budget_policy":     g.budgetPolicy,
	})

	for {
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("orchestration cancelled: %w", err)
		}

		stage := Next(state)
		if stage == StageTerminal {
			g.logger.Info("Orchestrator", "Successfully completed orchestration run", map[string]interface{}{
				"review_cycles": state.ReviewCycles,
			})
			return state, nil
		}

		if stage == StageWriter && budgetSpent(state) {
			if g.budgetPolicy == config.BudgetPolicyEnforce {
				return state, &apperror.CycleBudgetExceededError{
					Cycles:     state.ReviewCycles,
					MaxCycles:  state.MaxReviewCycles,
					OpenIssues: len(state.ReviewIssues),
				}
			}
			g.logger.Warn("Orchestrator", "Review cycle budget exhausted, continuing", map[string]interface{}{
				"review_cycles":     state.ReviewCycles,
				"max_review_cycles": state.MaxReviewCycles,
			})
		}

		state.Apply(entity.Delta{LastActor: entity.Ptr(entity.ActorSupervisor)})

		next, err := g.runStage(ctx, stage, state, cb)
		if err != nil {
			return state, err
		}
		state = next
	}
}

func (g *Graph) runStage(ctx context.Context, stage Stage, state entity.SessionState, cb *Callbacks) (entity.SessionState, error) {
	ctx, span := otel.Tracer("orchestrator").Start(ctx, "orchestrator."+string(stage))
	defer span.End()

	if cb.OnStageStart != nil {
		cb.OnStageStart(stage, state.Clone())
	}

	runner, actor := g.writer, entity.ActorWriter
	if stage == StageReviewer {
		runner, actor = g.reviewer, entity.ActorReviewer
	}

	delta, err := runner.Run(ctx, state.Clone())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error("Orchestrator", "Stage failed", map[string]interface{}{
			"stage": string(stage),
			"error": err.Error(),
			"hint":  apperror.Hint(err),
		})
		return state, fmt.Errorf("%s stage: %w", stage, err)
	}

	next := state.Clone()
	next.Apply(delta)
	next.Apply(entity.Delta{LastActor: entity.Ptr(actor)})
	if stage == StageReviewer {
		next.Apply(entity.Delta{ReviewCycles: entity.Ptr(next.ReviewCycles + 1)})
	}

	if cb.OnStageComplete != nil {
		cb.OnStageComplete(stage, next.Clone())
	}
	return next, nil
}
