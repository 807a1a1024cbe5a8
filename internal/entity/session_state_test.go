package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTargetFiles(t *testing.T) {
	tests := []struct {
		name  string
		state SessionState
		want  []string
	}{
		{
			name:  "singular only",
			state: SessionState{TargetFile: "a.py"},
			want:  []string{"a.py"},
		},
		{
			name:  "plural wins over singular",
			state: SessionState{TargetFile: "a.py", TargetFiles: []string{"b.py", "c.py"}},
			want:  []string{"b.py", "c.py"},
		},
		{
			name:  "empty plural falls back to singular",
			state: SessionState{TargetFile: "a.py", TargetFiles: []string{}},
			want:  []string{"a.py"},
		},
		{
			name:  "neither",
			state: SessionState{},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveTargetFiles(tt.state)
			assert.Equal(t, tt.want, got)
			assert.NotNil(t, got)
		})
	}
}

func TestApplyReplacesWholeFields(t *testing.T) {
	state := SessionState{
		ReviewIssues: []ReviewIssue{{FilePath: "a.go", Issue: "x", Violation: "r1", SuggestedFix: "y"}},
		WriterNotes:  "old",
		ReviewCycles: 1,
	}

	state.Apply(Delta{
		ReviewIssues: Ptr([]ReviewIssue{}),
		WriterNotes:  Ptr("new"),
	})

	assert.Empty(t, state.ReviewIssues)
	assert.Equal(t, "new", state.WriterNotes)
	assert.Equal(t, 1, state.ReviewCycles, "unset slots must be left alone")
}

func TestApplyDoesNotAliasDelta(t *testing.T) {
	files := []string{"a.go"}
	var state SessionState
	state.Apply(Delta{TargetFiles: &files})

	files[0] = "mutated.go"
	assert.Equal(t, []string{"a.go"}, state.TargetFiles)
}

func TestMergeLastWriteWins(t *testing.T) {
	merged := Merge(
		Delta{LastActor: Ptr(ActorWriter), WriterNotes: Ptr("first")},
		Delta{LastActor: Ptr(ActorReviewer)},
	)

	require.NotNil(t, merged.LastActor)
	assert.Equal(t, ActorReviewer, *merged.LastActor)
	require.NotNil(t, merged.WriterNotes)
	assert.Equal(t, "first", *merged.WriterNotes)
}

func TestCloneIsIndependent(t *testing.T) {
	original := SessionState{
		TargetFiles:  []string{"a.go"},
		ReviewReport: &ReviewReport{Violations: []ReviewViolation{{RuleID: "CONS-1"}}},
		OpenAIReviewResult: &ModelReviewResult{
			Model:  "m",
			Issues: []ReviewIssue{{FilePath: "a.go"}},
		},
	}

	clone := original.Clone()
	clone.TargetFiles[0] = "b.go"
	clone.ReviewReport.Violations[0].RuleID = "changed"
	clone.OpenAIReviewResult.Issues[0].FilePath = "changed"

	assert.Equal(t, "a.go", original.TargetFiles[0])
	assert.Equal(t, "CONS-1", original.ReviewReport.Violations[0].RuleID)
	assert.Equal(t, "a.go", original.OpenAIReviewResult.Issues[0].FilePath)
}

func TestSessionStateJSONFieldNames(t *testing.T) {
	state := SessionState{Request: "r", TargetFiles: []string{"x.py"}, LastActor: ActorEntry}
	raw, err := json.Marshal(state)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "entry", decoded["last_actor"])
	assert.Contains(t, decoded, "target_files")
	assert.Contains(t, decoded, "review_satisfied")
}
