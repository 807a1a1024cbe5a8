package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"ai-codereview-be/internal/apperror"
	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/orchestrator"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type runOptions struct {
	request      string
	targets      []string
	contextFiles []string
	standards    []string
	maxCycles    int
	stateFile    string
	output       string
	sample       bool
}

// sampleState is a smoke-test invocation: already satisfied, so the run
// terminates without calling any model.
func sampleState() entity.SessionState {
	return entity.SessionState{
		Request:         "Create or review target file",
		TargetFile:      "example.py",
		TargetFiles:     []string{"README.md"},
		ReviewSatisfied: true,
		CodingStandards: []string{
			"Follow PEP 8",
			"Add type hints",
			"Prefer pure functions when possible",
		},
	}
}

func newRunCmd(deps Deps) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one orchestration and print the final session state",
		Example: `  review run --request "Add docstrings" --target app.py
  review run --state-file state.json --output final.json
  review run --sample`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrchestration(cmd, deps, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.request, "request", "r", "", "what the writer should do")
	f.StringSliceVarP(&opts.targets, "target", "t", nil, "target file (repeatable)")
	f.StringSliceVar(&opts.contextFiles, "context", nil, "read-only context file for the writer (repeatable)")
	f.StringSliceVar(&opts.standards, "standard", nil, "coding standard carried on the session state (repeatable)")
	f.IntVar(&opts.maxCycles, "max-cycles", 0, "review cycle budget (default from MAX_REVIEW_CYCLES)")
	f.StringVar(&opts.stateFile, "state-file", "", "initial session state as JSON; flags override its fields")
	f.StringVarP(&opts.output, "output", "o", "", "also write the final state JSON to this file")
	f.BoolVar(&opts.sample, "sample", false, "run the built-in sample state")
	return cmd
}

func (o *runOptions) initialState() (entity.SessionState, error) {
	var state entity.SessionState
	switch {
	case o.sample:
		state = sampleState()
	case o.stateFile != "":
		raw, err := os.ReadFile(o.stateFile)
		if err != nil {
			return state, fmt.Errorf("read state file: %w", err)
		}
		if err := json.Unmarshal(raw, &state); err != nil {
			return state, fmt.Errorf("parse state file %s: %w", o.stateFile, err)
		}
	}

	if o.request != "" {
		state.Request = o.request
	}
	if len(o.targets) > 0 {
		state.TargetFiles = o.targets
	}
	if len(o.contextFiles) > 0 {
		state.ContextFiles = o.contextFiles
	}
	if len(o.standards) > 0 {
		state.CodingStandards = o.standards
	}
	if o.maxCycles > 0 {
		state.MaxReviewCycles = o.maxCycles
	}

	if state.Request == "" {
		return state, errors.New("a request is required (--request, --state-file or --sample)")
	}
	if len(entity.ResolveTargetFiles(state)) == 0 {
		return state, errors.New("at least one target file is required (--target)")
	}
	return state, nil
}

func runOrchestration(cmd *cobra.Command, deps Deps, opts *runOptions) error {
	initial, err := opts.initialState()
	if err != nil {
		return err
	}

	cfg := loadConfig(cmd, deps)
	log := deps.NewLogger(cfg)
	defer log.Sync()

	progress := cmd.ErrOrStderr()
	stageColor := color.New(color.FgCyan, color.Bold)
	okColor := color.New(color.FgGreen)
	warnColor := color.New(color.FgYellow)

	cb := &orchestrator.Callbacks{
		OnStageStart: func(stage orchestrator.Stage, state entity.SessionState) {
			stageColor.Fprintf(progress, "==> %s", stage)
			fmt.Fprintf(progress, " (cycle %d/%d)\n", state.ReviewCycles+1, state.MaxReviewCycles)
		},
		OnStageComplete: func(stage orchestrator.Stage, state entity.SessionState) {
			switch stage {
			case orchestrator.StageWriter:
				okColor.Fprintf(progress, "    %s\n", state.WriterNotes)
			case orchestrator.StageReviewer:
				if state.ReviewSatisfied {
					okColor.Fprintln(progress, "    reviewers satisfied")
				} else {
					warnColor.Fprintf(progress, "    %d open issue(s)\n", len(state.ReviewIssues))
				}
			}
		},
	}

	final, runErr := deps.NewRunner(cfg, log).Run(cmd.Context(), initial, cb)

	if err := writeState(cmd.OutOrStdout(), final); err != nil {
		return err
	}
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		if err := writeState(f, final); err != nil {
			return err
		}
	}

	if runErr != nil {
		color.New(color.FgRed, color.Bold).Fprintf(progress, "run failed: %v\n", runErr)
		if hint := apperror.Hint(runErr); hint != "" {
			fmt.Fprintf(progress, "hint: %s\n", hint)
		}
		return runErr
	}
	return nil
}

func writeState(w io.Writer, state entity.SessionState) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(state)
}
