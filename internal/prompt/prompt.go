// Package prompt assembles the role-specific instructions sent to each model.
// Every function is pure.
package prompt

import (
	"ai-codereview-be/internal/entity"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	NoFeedback    = "No review feedback provided."
	newFileNotice = "This is a new file. Create it from scratch.\n\n"
)

// FileContent is a path and its current text
type FileContent struct {
	Path    string
	Content string
}

// Review asks for every rule violation in exactly one file
func Review(rules string, file FileContent) string {
	var sb strings.Builder
	sb.WriteString("You are a strict code reviewer. Review exactly one file and detect all rule violations.\n\n")
	sb.WriteString("Rules file content:\n")
	sb.WriteString(rules)
	sb.WriteString("\n\nTarget file path:\n")
	sb.WriteString(file.Path)
	sb.WriteString("\n\nTarget file content:\n")
	sb.WriteString(file.Content)
	return sb.String()
}

// Adjudication embeds both reviewer results and asks for one de-duplicated list
func Adjudication(rules string, openai, gemini entity.ModelReviewResult) string {
	var sb strings.Builder
	sb.WriteString("You are a senior code review adjudicator. Consolidate and de-duplicate the issue lists ")
	sb.WriteString("from two reviewer models while preserving coverage.\n\n")
	sb.WriteString("Rules file content:\n")
	sb.WriteString(rules)
	sb.WriteString("\n\nOpenAI reviewer result:\n")
	sb.WriteString(indentJSON(openai))
	sb.WriteString("\n\nGemini reviewer result:\n")
	sb.WriteString(indentJSON(gemini))
	return sb.String()
}

// WriterInput carries everything the writer prompt is built from
type WriterInput struct {
	Rules    string
	Task     string
	Target   FileContent // empty Content means the file does not exist yet
	Context  []FileContent
	Feedback string
}

func Writer(in WriterInput) string {
	var sb strings.Builder
	sb.WriteString("You are a strict code writer agent. Write or modify exactly one file following every rule below. ")
	sb.WriteString("Return the COMPLETE file content.\n\n")
	sb.WriteString("Writer rules:\n")
	sb.WriteString(in.Rules)
	sb.WriteString("\n\nTask:\n")
	sb.WriteString(in.Task)
	fmt.Fprintf(&sb, "\n\nTarget file path: %s\n\n", in.Target.Path)

	if in.Target.Content != "" {
		sb.WriteString("Existing file content (modify as needed):\n")
		sb.WriteString(in.Target.Content)
		sb.WriteString("\n\n")
	} else {
		sb.WriteString(newFileNotice)
	}

	if len(in.Context) > 0 {
		parts := make([]string, 0, len(in.Context))
		for _, c := range in.Context {
			parts = append(parts, fmt.Sprintf("Context file: %s\nContent:\n%s\n", c.Path, c.Content))
		}
		sb.WriteString("Reference context files:\n\n")
		sb.WriteString(strings.Join(parts, "\n---\n"))
		sb.WriteString("\n\n")
	}

	feedback := in.Feedback
	if feedback == "" {
		feedback = NoFeedback
	}
	sb.WriteString("Review feedback from prior cycles:\n")
	sb.WriteString(feedback)
	return sb.String()
}

// FormatReviewFeedback renders the latest consolidated issues for the writer
func FormatReviewFeedback(issues []entity.ReviewIssue) string {
	if len(issues) == 0 {
		return NoFeedback
	}
	return indentJSON(issues)
}

// indentJSON keeps <, > and & readable since the payload is source code
func indentJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
