package bootstrap

import (
	"context"

	"ai-codereview-be/internal/config"
	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/orchestrator"
	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/internal/reviewer"
	"ai-codereview-be/internal/route"
	"ai-codereview-be/internal/storage"
	"ai-codereview-be/internal/structured"
	"ai-codereview-be/internal/writer"
)

// Engine is the fully wired orchestration used by both the CLI and the REST consumer
type Engine struct {
	Routes route.Routes

	graph           *orchestrator.Graph
	maxReviewCycles int
}

// NewEngine builds routes, storage, the structured caller and both stages
// from configuration. providers may be nil to use the real backends.
func NewEngine(cfg *config.Config, providers structured.ProviderFactory, log logger.ILogger) *Engine {
	routes := route.Resolve(cfg.Models)
	caller := structured.NewCaller(cfg.Call, providers, log)

	// rule documents live with the service; targets live in the workspace
	files := storage.NewLocalFileStore(cfg.Review.WorkspaceRoot)
	rules := storage.NewLocalFileStore("")

	writerStage := writer.NewPipeline(writer.Options{
		Caller:    caller,
		Route:     routes.Writer,
		Files:     files,
		Rules:     rules,
		RulesPath: cfg.Review.WriterRulesFile,
		Logger:    log,
	})
	reviewerStage := reviewer.NewPipeline(reviewer.Options{
		Caller:      caller,
		Routes:      routes,
		Files:       files,
		Rules:       rules,
		RulesPath:   cfg.Review.ReviewerRulesFile,
		Concurrency: cfg.Review.Concurrency,
		Logger:      log,
	})

	return &Engine{
		Routes:          routes,
		graph:           orchestrator.NewGraph(writerStage, reviewerStage, cfg.Review.BudgetPolicy, log),
		maxReviewCycles: cfg.Review.MaxReviewCycles,
	}
}

// Run seeds the configured cycle budget when the caller left it unset
func (e *Engine) Run(ctx context.Context, initial entity.SessionState, cb *orchestrator.Callbacks) (entity.SessionState, error) {
	if initial.MaxReviewCycles <= 0 {
		initial.MaxReviewCycles = e.maxReviewCycles
	}
	return e.graph.Run(ctx, initial, cb)
}
