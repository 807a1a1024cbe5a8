package entity

import (
	"fmt"
	"slices"
	"strings"
)

// ReviewIssue is one finding emitted by a reviewing model. All fields are mandatory.
type ReviewIssue struct {
	FilePath     string `json:"file_path" validate:"required" jsonschema:"minLength=1"`
	Issue        string `json:"issue" validate:"required" jsonschema:"minLength=1"`
	Violation    string `json:"violation" validate:"required" jsonschema:"minLength=1"`
	SuggestedFix string `json:"suggested_fix" validate:"required" jsonschema:"minLength=1"`
}

// ModelReviewResult captures one model's review output
type ModelReviewResult struct {
	Model  string        `json:"model"`
	Issues []ReviewIssue `json:"issues"`
}

func (r *ModelReviewResult) clone() *ModelReviewResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Issues = slices.Clone(r.Issues)
	return &out
}

// Severity values for ReviewViolation
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// ConsolidatedRulePrefix prefixes the synthetic rule ids assigned to consolidated issues
const ConsolidatedRulePrefix = "CONS-"

// ReviewViolation is the report-shaped projection of one ReviewIssue
type ReviewViolation struct {
	RuleID     string `json:"rule_id"`
	Standard   string `json:"standard"`
	Severity   string `json:"severity"`
	Location   string `json:"location"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// ReviewReport is derived from the consolidated issue list, never authored directly
type ReviewReport struct {
	Summary     string            `json:"summary"`
	IsCompliant bool              `json:"is_compliant"`
	Violations  []ReviewViolation `json:"violations"`
}

// BuildReviewReport projects a consolidated issue list into a report.
// Issue order is preserved and rule ids are assigned CONS-1..CONS-N in that order.
func BuildReviewReport(issues []ReviewIssue) ReviewReport {
	violations := make([]ReviewViolation, 0, len(issues))
	for i, issue := range issues {
		violations = append(violations, ReviewViolation{
			RuleID:     fmt.Sprintf("%s%d", ConsolidatedRulePrefix, i+1),
			Standard:   issue.Violation,
			Severity:   SeverityMedium,
			Location:   issue.FilePath,
			Message:    issue.Issue,
			Suggestion: issue.SuggestedFix,
		})
	}

	return ReviewReport{
		Summary:     fmt.Sprintf("Consolidated reviewer found %d issue(s) across provided files.", len(issues)),
		IsCompliant: len(issues) == 0,
		Violations:  violations,
	}
}

// File actions recorded by the writer
const (
	ActionCreate = "create"
	ActionModify = "modify"
)

// WrittenFile records one file the writer persisted
type WrittenFile struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
	Action   string `json:"action"`
}

// NormalizeAction maps a model-reported action onto create/modify. Anything but
// a case-insensitive "modify" is treated as a create.
func NormalizeAction(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), ActionModify) {
		return ActionModify
	}
	return ActionCreate
}
