package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ai-codereview-be/internal/apperror"
	"ai-codereview-be/internal/config"
	"ai-codereview-be/internal/entity"
	"ai-codereview-be/internal/orchestrator"
	"ai-codereview-be/internal/pkg/logger"
	"ai-codereview-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	got   entity.SessionState
	final entity.SessionState
	err   error
}

func (r *stubRunner) Run(ctx context.Context, initial entity.SessionState, cb *orchestrator.Callbacks) (entity.SessionState, error) {
	r.got = initial
	cb.OnStageStart(orchestrator.StageWriter, initial)
	cb.OnStageComplete(orchestrator.StageWriter, r.final)
	return r.final, r.err
}

func testDeps(r *stubRunner) Deps {
	return Deps{
		LoadConfig: func(...string) *config.Config {
			return config.FromResolver(config.NewResolver(config.MapSource{}))
		},
		NewRunner: func(*config.Config, logger.ILogger) Runner { return r },
		NewLogger: func(*config.Config) logger.ILogger { return logger.NewNopLogger() },
	}
}

func execute(t *testing.T, deps Deps, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd(deps)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRunPrintsFinalState(t *testing.T) {
	r := &stubRunner{final: entity.SessionState{Request: "add docstrings", ReviewSatisfied: true, ReviewCycles: 1, WriterNotes: "Wrote a.py (modify)"}}
	out := filepath.Join(t.TempDir(), "final.json")

	stdout, stderr, err := execute(t, testDeps(r), "run", "-r", "add docstrings", "-t", "a.py", "-t", "b.py", "--context", "lib.py", "--max-cycles", "3", "-o", out)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.py", "b.py"}, r.got.TargetFiles)
	assert.Equal(t, []string{"lib.py"}, r.got.ContextFiles)
	assert.Equal(t, 3, r.got.MaxReviewCycles)

	var printed entity.SessionState
	require.NoError(t, json.Unmarshal([]byte(stdout), &printed))
	assert.True(t, printed.ReviewSatisfied)
	assert.Contains(t, stderr, "writer")

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.JSONEq(t, stdout, string(raw))
}

func TestRunFlagsOverrideStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"request":"from file","target_file":"x.py","max_review_cycles":4}`), 0o644))
	r := &stubRunner{}

	_, _, err := execute(t, testDeps(r), "run", "--state-file", path, "-r", "from flag")
	require.NoError(t, err)
	assert.Equal(t, "from flag", r.got.Request)
	assert.Equal(t, "x.py", r.got.TargetFile)
	assert.Equal(t, 4, r.got.MaxReviewCycles)
}

func TestRunSample(t *testing.T) {
	r := &stubRunner{}
	_, _, err := execute(t, testDeps(r), "run", "--sample")
	require.NoError(t, err)
	assert.True(t, r.got.ReviewSatisfied)
	assert.Equal(t, []string{"README.md"}, entity.ResolveTargetFiles(r.got))
}

func TestRunRequiresRequestAndTarget(t *testing.T) {
	r := &stubRunner{}
	_, _, err := execute(t, testDeps(r), "run", "-t", "a.py")
	assert.ErrorContains(t, err, "request is required")

	_, _, err = execute(t, testDeps(r), "run", "-r", "x")
	assert.ErrorContains(t, err, "target file is required")
}

func TestRunFailureStillPrintsStateAndHint(t *testing.T) {
	r := &stubRunner{
		final: entity.SessionState{Request: "r", ReviewCycles: 2},
		err:   &apperror.CycleBudgetExceededError{Cycles: 2, MaxCycles: 2, OpenIssues: 3},
	}
	stdout, stderr, err := execute(t, testDeps(r), "run", "-r", "r", "-t", "a.py")

	assert.ErrorIs(t, err, apperror.ErrCycleBudgetExceeded)
	assert.Contains(t, stdout, `"review_cycles": 2`)
	assert.Contains(t, stderr, "hint:")
}

func TestWatchWithoutNatsFails(t *testing.T) {
	_, _, err := execute(t, testDeps(&stubRunner{}), "watch", "some-run")
	assert.ErrorContains(t, err, "NATS")
}

func TestFormatEvent(t *testing.T) {
	e := events.RunEvent{Type: events.StageCompleted, RunID: "r", Stage: "reviewer", Data: map[string]interface{}{"open_issues": 2}, OccurredAt: time.Now()}
	line := formatEvent(e)
	assert.Contains(t, line, "reviewer")
	assert.Contains(t, line, "open_issues")
}
