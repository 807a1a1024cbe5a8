package entity

import "slices"

// Actor records which stage produced the most recent state update
type Actor string

const (
	ActorEntry      Actor = "entry"
	ActorSupervisor Actor = "supervisor"
	ActorWriter     Actor = "writer"
	ActorReviewer   Actor = "reviewer"
)

// DefaultMaxReviewCycles is seeded by the entry stage when the caller leaves the budget unset
const DefaultMaxReviewCycles = 2

// SessionState is the single record threaded through one orchestration run.
// It is owned by the orchestration loop; stages read a copy and return a Delta.
type SessionState struct {
	Request         string   `json:"request"`
	TargetFile      string   `json:"target_file,omitempty"`
	TargetFiles     []string `json:"target_files"`
	ContextFiles    []string `json:"context_files,omitempty"`
	CodingStandards []string `json:"coding_standards,omitempty"`

	LastActor       Actor `json:"last_actor,omitempty"`
	ReviewCycles    int   `json:"review_cycles"`
	MaxReviewCycles int   `json:"max_review_cycles"`
	ReviewSatisfied bool  `json:"review_satisfied"`

	ReviewReport             *ReviewReport      `json:"review_report,omitempty"`
	ReviewIssues             []ReviewIssue      `json:"review_issues,omitempty"`
	OpenAIReviewResult       *ModelReviewResult `json:"openai_review_result,omitempty"`
	GeminiReviewResult       *ModelReviewResult `json:"gemini_review_result,omitempty"`
	ConsolidatedReviewResult *ModelReviewResult `json:"consolidated_review_result,omitempty"`

	WrittenFiles []WrittenFile `json:"written_files,omitempty"`
	WriterNotes  string        `json:"writer_notes,omitempty"`
}

// ResolveTargetFiles returns the plural field when populated, otherwise the
// singular field as a one-element list, otherwise an empty list.
func ResolveTargetFiles(s SessionState) []string {
	if len(s.TargetFiles) > 0 {
		return slices.Clone(s.TargetFiles)
	}
	if s.TargetFile != "" {
		return []string{s.TargetFile}
	}
	return []string{}
}

// Clone returns a copy that shares no slices or pointers with s
func (s SessionState) Clone() SessionState {
	out := s
	out.TargetFiles = slices.Clone(s.TargetFiles)
	out.ContextFiles = slices.Clone(s.ContextFiles)
	out.CodingStandards = slices.Clone(s.CodingStandards)
	out.ReviewIssues = slices.Clone(s.ReviewIssues)
	out.WrittenFiles = slices.Clone(s.WrittenFiles)
	if s.ReviewReport != nil {
		report := *s.ReviewReport
		report.Violations = slices.Clone(s.ReviewReport.Violations)
		out.ReviewReport = &report
	}
	out.OpenAIReviewResult = s.OpenAIReviewResult.clone()
	out.GeminiReviewResult = s.GeminiReviewResult.clone()
	out.ConsolidatedReviewResult = s.ConsolidatedReviewResult.clone()
	return out
}

// Delta is the set of fields a stage asks the orchestrator to merge.
// A nil slot means "leave unchanged"; a set slot replaces the whole value.
type Delta struct {
	LastActor       *Actor
	TargetFiles     *[]string
	ReviewCycles    *int
	MaxReviewCycles *int
	ReviewSatisfied *bool

	ReviewReport             *ReviewReport
	ReviewIssues             *[]ReviewIssue
	OpenAIReviewResult       *ModelReviewResult
	GeminiReviewResult       *ModelReviewResult
	ConsolidatedReviewResult *ModelReviewResult

	WrittenFiles *[]WrittenFile
	WriterNotes  *string
}

// Ptr is a small helper for filling Delta slots
func Ptr[T any](v T) *T {
	return &v
}

// Apply merges d into s field by field. Last write wins per field.
func (s *SessionState) Apply(d Delta) {
	if d.LastActor != nil {
		s.LastActor = *d.LastActor
	}
	if d.TargetFiles != nil {
		s.TargetFiles = slices.Clone(*d.TargetFiles)
	}
	if d.ReviewCycles != nil {
		s.ReviewCycles = *d.ReviewCycles
	}
	if d.MaxReviewCycles != nil {
		s.MaxReviewCycles = *d.MaxReviewCycles
	}
	if d.ReviewSatisfied != nil {
		s.ReviewSatisfied = *d.ReviewSatisfied
	}
	if d.ReviewReport != nil {
		report := *d.ReviewReport
		s.ReviewReport = &report
	}
	if d.ReviewIssues != nil {
		s.ReviewIssues = slices.Clone(*d.ReviewIssues)
	}
	if d.OpenAIReviewResult != nil {
		s.OpenAIReviewResult = d.OpenAIReviewResult.clone()
	}
	if d.GeminiReviewResult != nil {
		s.GeminiReviewResult = d.GeminiReviewResult.clone()
	}
	if d.ConsolidatedReviewResult != nil {
		s.ConsolidatedReviewResult = d.ConsolidatedReviewResult.clone()
	}
	if d.WrittenFiles != nil {
		s.WrittenFiles = slices.Clone(*d.WrittenFiles)
	}
	if d.WriterNotes != nil {
		s.WriterNotes = *d.WriterNotes
	}
}

// Merge layers several deltas, later ones winning per field
func Merge(deltas ...Delta) Delta {
	var out Delta
	for _, d := range deltas {
		if d.LastActor != nil {
			out.LastActor = d.LastActor
		}
		if d.TargetFiles != nil {
			out.TargetFiles = d.TargetFiles
		}
		if d.ReviewCycles != nil {
			out.ReviewCycles = d.ReviewCycles
		}
		if d.MaxReviewCycles != nil {
			out.MaxReviewCycles = d.MaxReviewCycles
		}
		if d.ReviewSatisfied != nil {
			out.ReviewSatisfied = d.ReviewSatisfied
		}
		if d.ReviewReport != nil {
			out.ReviewReport = d.ReviewReport
		}
		if d.ReviewIssues != nil {
			out.ReviewIssues = d.ReviewIssues
		}
		if d.OpenAIReviewResult != nil {
			out.OpenAIReviewResult = d.OpenAIReviewResult
		}
		if d.GeminiReviewResult != nil {
			out.GeminiReviewResult = d.GeminiReviewResult
		}
		if d.ConsolidatedReviewResult != nil {
			out.ConsolidatedReviewResult = d.ConsolidatedReviewResult
		}
		if d.WrittenFiles != nil {
			out.WrittenFiles = d.WrittenFiles
		}
		if d.WriterNotes != nil {
			out.WriterNotes = d.WriterNotes
		}
	}
	return out
}
