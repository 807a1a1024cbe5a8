package structured

import "ai-codereview-be/internal/entity"

// IssueList is the reviewer and adjudicator answer shape
type IssueList struct {
	Issues []entity.ReviewIssue `json:"issues" validate:"required,dive"`
}

// WriterOutput is the writer answer shape
type WriterOutput struct {
	FilePath    string `json:"file_path" validate:"required" jsonschema:"minLength=1"`
	Content     string `json:"content" validate:"required" jsonschema:"minLength=1"`
	Action      string `json:"action" validate:"required" jsonschema:"enum=create,enum=modify"`
	Explanation string `json:"explanation" validate:"required" jsonschema:"minLength=1"`
}
