package orchestrator

import "ai-codereview-be/internal/entity"

// Stage is what the supervisor hands control to next
type Stage string

const (
	StageWriter   Stage = "writer"
	StageReviewer Stage = "reviewer"
	StageTerminal Stage = "terminal"
)

// Next is the supervisor's decision. A satisfied review always terminates;
// otherwise work the writer just produced goes to the reviewer and
// everything else goes to the writer.
func Next(s entity.SessionState) Stage {
	if s.ReviewSatisfied {
		return StageTerminal
	}
	if s.LastActor == entity.ActorWriter {
		return StageReviewer
	}
	return StageWriter
}

// Enter normalizes a caller-supplied state. The result shares nothing with initial.
func Enter(initial entity.SessionState) entity.SessionState {
	s := initial.Clone()
	s.LastActor = entity.ActorEntry
	s.TargetFiles = entity.ResolveTargetFiles(s)
	if s.MaxReviewCycles <= 0 {
		s.MaxReviewCycles = entity.DefaultMaxReviewCycles
	}
	if s.ReviewCycles < 0 {
		s.ReviewCycles = 0
	}
	return s
}

// budgetSpent reports whether sending s back to the writer would start a
// cycle beyond the budget
func budgetSpent(s entity.SessionState) bool {
	return s.LastActor == entity.ActorReviewer && s.ReviewCycles >= s.MaxReviewCycles
}
