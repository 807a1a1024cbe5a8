package writer

import (
	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/internal/prompt"
	"ai-codereview-be/internal/route"
	"ai-codereview-be/internal/storage"
	"ai-codereview-be/internal/structured"
	"context"
	"fmt"
	"strings"
)

const noFilesWritten = "No files written."

type Pipeline struct {
	caller    structured.Caller
	route     route.Route
	files     storage.IFileStore
	rules     storage.IFileStore
	rulesPath string
	logger    logger.ILogger
}

type Options struct {
	Caller    structured.Caller
	Route     route.Route
	Files     storage.IFileStore // targets, context files and written output
	Rules     storage.IFileStore // rule documents, defaults to Files
	RulesPath string
	Logger    logger.ILogger
}

func NewPipeline(opts Options) *Pipeline {
	if opts.Rules == nil {
		opts.Rules = opts.Files
	}
	return &Pipeline{
		caller:    opts.Caller,
		route:     opts.Route,
		files:     opts.Files,
		rules:     opts.Rules,
		rulesPath: opts.RulesPath,
		logger:    opts.Logger,
	}
}

// Run writes every target file in order. A failure stops the pass; files
// already persisted stay on disk.
func (p *Pipeline) Run(ctx context.Context, state entity.SessionState) (entity.Delta, error) {
	if err := p.route.Validate(); err != nil {
		return entity.Delta{}, err
	}

	rules, err := p.rules.Read(ctx, p.rulesPath)
	if err != nil {
		return entity.Delta{}, fmt.Errorf("load writer rules: %w", err)
	}

	contextFiles := make([]prompt.FileContent, 0, len(state.ContextFiles))
	for _, path := range state.ContextFiles {
		content, err := p.files.Read(ctx, path)
		if err != nil {
			return entity.Delta{}, fmt.Errorf("load context file: %w", err)
		}
		contextFiles = append(contextFiles, prompt.FileContent{Path: path, Content: content})
	}

	feedback := prompt.FormatReviewFeedback(state.ReviewIssues)
	targets := entity.ResolveTargetFiles(state)

	written := make([]entity.WrittenFile, 0, len(targets))
	notes := make([]string, 0, len(targets))
	for _, target := range targets {
		wf, err := p.writeOne(ctx, prompt.WriterInput{
			Rules:    rules,
			Task:     state.Request,
			Target:   prompt.FileContent{Path: target},
			Context:  contextFiles,
			Feedback: feedback,
		})
		if err != nil {
			return entity.Delta{}, err
		}
		written = append(written, wf)
		notes = append(notes, fmt.Sprintf("Wrote %s (%s)", wf.FilePath, wf.Action))
	}

	writerNotes := noFilesWritten
	if len(notes) > 0 {
		writerNotes = strings.Join(notes, "; ")
	}

	return entity.Delta{
		WrittenFiles: entity.Ptr(written),
		WriterNotes:  entity.Ptr(writerNotes),
	}, nil
}

func (p *Pipeline) writeOne(ctx context.Context, in prompt.WriterInput) (entity.WrittenFile, error) {
	existing, err := p.files.ReadOptional(ctx, in.Target.Path)
	if err != nil {
		return entity.WrittenFile{}, fmt.Errorf("load writer target: %w", err)
	}
	in.Target.Content = existing

	var out structured.WriterOutput
	if err := p.caller.Call(ctx, p.route, prompt.Writer(in), &out); err != nil {
		return entity.WrittenFile{}, fmt.Errorf("write %s with %s: %w", in.Target.Path, p.route.Name, err)
	}

	p.logger.Info("Writer", "Attempting to write file", map[string]interface{}{
		"target": in.Target.Path,
		"path":   out.FilePath,
	})
	if err := p.files.Write(ctx, out.FilePath, out.Content); err != nil {
		return entity.WrittenFile{}, err
	}
	p.logger.Info("Writer", "Successfully wrote file", map[string]interface{}{
		"path":  out.FilePath,
		"bytes": len(out.Content),
	})

	return entity.WrittenFile{
		FilePath: out.FilePath,
		Content:  out.Content,
		Action:   entity.NormalizeAction(out.Action),
	}, nil
}
