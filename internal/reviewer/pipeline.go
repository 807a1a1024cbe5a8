// Package reviewer runs the multi-model review of the target files.
//
// Two independent reviewer routes each review every target file. Both passes
// run concurrently and each pass reviews its files concurrently, bounded by
// the configured limit. A third route adjudicates the two results into one
// authoritative issue list that replaces both inputs.
package reviewer

import (
	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/internal/prompt"
	"ai-codereview-be/internal/route"
	"ai-codereview-be/internal/storage"
	"ai-codereview-be/internal/structured"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

type Pipeline struct {
	caller      structured.Caller
	routes      route.Routes
	files       storage.IFileStore
	rules       storage.IFileStore
	rulesPath   string
	concurrency int
	logger      logger.ILogger
}

type Options struct {
	Caller      structured.Caller
	Routes      route.Routes
	Files       storage.IFileStore // target files
	Rules       storage.IFileStore // rule documents
	RulesPath   string
	Concurrency int
	Logger      logger.ILogger
}

func NewPipeline(opts Options) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Rules == nil {
		opts.Rules = opts.Files
	}
	return &Pipeline{
		caller:      opts.Caller,
		routes:      opts.Routes,
		files:       opts.Files,
		rules:       opts.Rules,
		rulesPath:   opts.RulesPath,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
}

// Run reviews state's target files and returns the consolidated outcome.
// state is never modified.
func (p *Pipeline) Run(ctx context.Context, state entity.SessionState) (entity.Delta, error) {
	if err := route.ValidateAll(p.routes.Reviewers()...); err != nil {
		return entity.Delta{}, err
	}

	targets := entity.ResolveTargetFiles(state)
	files, err := p.loadTargets(ctx, targets)
	if err != nil {
		return entity.Delta{}, err
	}

	rules, err := p.rules.Read(ctx, p.rulesPath)
	if err != nil {
		return entity.Delta{}, fmt.Errorf("load reviewer rules: %w", err)
	}

	p.logger.Info("Reviewer", "Attempting multi-model review", map[string]interface{}{
		"files":  len(files),
		"openai": p.routes.OpenAIReviewer.Model,
		"gemini": p.routes.GeminiReviewer.Model,
	})

	var openaiResult, geminiResult entity.ModelReviewResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		openaiResult, err = p.reviewPass(gctx, p.routes.OpenAIReviewer, rules, files)
		return err
	})
	g.Go(func() error {
		var err error
		geminiResult, err = p.reviewPass(gctx, p.routes.GeminiReviewer, rules, files)
		return err
	})
	if err := g.Wait(); err != nil {
		return entity.Delta{}, err
	}

	consolidated, err := p.adjudicate(ctx, rules, openaiResult, geminiResult)
	if err != nil {
		return entity.Delta{}, err
	}

	report := entity.BuildReviewReport(consolidated.Issues)

	p.logger.Info("Reviewer", "Successfully completed multi-model review", map[string]interface{}{
		"openai_issues":       len(openaiResult.Issues),
		"gemini_issues":       len(geminiResult.Issues),
		"consolidated_issues": len(consolidated.Issues),
		"compliant":           report.IsCompliant,
	})

	return entity.Delta{
		ReviewReport:             &report,
		ReviewIssues:             entity.Ptr(consolidated.Issues),
		ReviewSatisfied:          entity.Ptr(report.IsCompliant),
		OpenAIReviewResult:       &openaiResult,
		GeminiReviewResult:       &geminiResult,
		ConsolidatedReviewResult: &consolidated,
	}, nil
}

func (p *Pipeline) loadTargets(ctx context.Context, targets []string) ([]prompt.FileContent, error) {
	files := make([]prompt.FileContent, 0, len(targets))
	for _, path := range targets {
		content, err := p.files.Read(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("load review target: %w", err)
		}
		files = append(files, prompt.FileContent{Path: path, Content: content})
	}
	return files, nil
}

// reviewPass reviews every file with one route. Per-file results land in
// their own slot so the merged list follows target file order.
func (p *Pipeline) reviewPass(ctx context.Context, r route.Route, rules string, files []prompt.FileContent) (entity.ModelReviewResult, error) {
	perFile := make([][]entity.ReviewIssue, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, file := range files {
		g.Go(func() error {
			var out structured.IssueList
			if err := p.caller.Call(gctx, r, prompt.Review(rules, file), &out); err != nil {
				return fmt.Errorf("review %s with %s: %w", file.Path, r.Name, err)
			}
			perFile[i] = out.Issues
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return entity.ModelReviewResult{}, err
	}

	issues := []entity.ReviewIssue{}
	for _, fileIssues := range perFile {
		issues = append(issues, fileIssues...)
	}
	return entity.ModelReviewResult{Model: r.Model, Issues: issues}, nil
}

func (p *Pipeline) adjudicate(ctx context.Context, rules string, openai, gemini entity.ModelReviewResult) (entity.ModelReviewResult, error) {
	r := p.routes.AnthropicAdjudicator

	var out structured.IssueList
	if err := p.caller.Call(ctx, r, prompt.Adjudication(rules, openai, gemini), &out); err != nil {
		return entity.ModelReviewResult{}, fmt.Errorf("adjudicate reviews with %s: %w", r.Name, err)
	}

	// The adjudicated list replaces both inputs. Fewer issues than the larger
	// input means at least one finding was dropped; keep the verdict but say so.
	floor := max(len(openai.Issues), len(gemini.Issues))
	if len(out.Issues) < floor {
		p.logger.Warn("Reviewer", "Adjudicated list is shorter than a reviewer input", map[string]interface{}{
			"openai_issues":       len(openai.Issues),
			"gemini_issues":       len(gemini.Issues),
			"consolidated_issues": len(out.Issues),
		})
	}

	return entity.ModelReviewResult{Model: r.Model, Issues: out.Issues}, nil
}
