// Package apperror defines the failures that abort an orchestration run.
//
// Every type carries enough context (route, model, path) to diagnose a failure
// without re-running, matches a sentinel through errors.Is, and exposes a
// remediation hint for the caller.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCredential   = errors.New("missing credential")
	ErrNoStructuredPayload = errors.New("no structured payload")
	ErrStorageAccess       = errors.New("storage access failure")
	ErrTransport           = errors.New("transport failure")
	ErrCycleBudgetExceeded = errors.New("review cycle budget exceeded")
	ErrNotFound            = errors.New("not found")
)

// Hinter is implemented by errors that know how to tell a user what to do next
type Hinter interface {
	Hint() string
}

// Hint returns the first remediation hint found in err's chain, or "".
func Hint(err error) string {
	var h Hinter
	if errors.As(err, &h) {
		return h.Hint()
	}
	return ""
}

// MissingCredentialError is raised before any network attempt when a route has no API key
type MissingCredentialError struct {
	Role   string
	Model  string
	EnvKey string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing API key for route '%s' using model '%s'", e.Role, e.Model)
}

func (e *MissingCredentialError) Is(target error) bool { return target == ErrMissingCredential }

func (e *MissingCredentialError) Hint() string {
	if e.EnvKey == "" {
		return fmt.Sprintf("set the API key for route '%s' in .env or the shell environment and retry", e.Role)
	}
	return fmt.Sprintf("set %s (or OPENROUTER_API_KEY) in .env or the shell environment and retry", e.EnvKey)
}

// NoStructuredPayloadError means the model answered but not with data matching the schema
type NoStructuredPayloadError struct {
	Role   string
	Model  string
	Reason string
	Err    error
}

func (e *NoStructuredPayloadError) Error() string {
	msg := fmt.Sprintf("model returned no structured payload for route '%s' and model '%s'", e.Role, e.Model)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NoStructuredPayloadError) Unwrap() error { return e.Err }

func (e *NoStructuredPayloadError) Is(target error) bool { return target == ErrNoStructuredPayload }

func (e *NoStructuredPayloadError) Hint() string {
	return fmt.Sprintf("verify that model '%s' supports structured output and retry", e.Model)
}

// StorageAccessError wraps a failed read or write of rules, targets or context files
type StorageAccessError struct {
	Op   string // "read" or "write"
	Path string
	Err  error
}

func (e *StorageAccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageAccessError) Unwrap() error { return e.Err }

func (e *StorageAccessError) Is(target error) bool { return target == ErrStorageAccess }

func (e *StorageAccessError) Hint() string {
	if e.Op == "write" {
		return fmt.Sprintf("check that %s is writable", e.Path)
	}
	return fmt.Sprintf("check that %s exists and is readable", e.Path)
}

// TransportError is returned once every retry of a model call has failed
type TransportError struct {
	Role     string
	Model    string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model call for route '%s' and model '%s' failed after %d attempt(s): %v", e.Role, e.Model, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Hint() string {
	return "check network access to the model endpoint, or raise LLM_MAX_ATTEMPTS / LLM_CALL_TIMEOUT"
}

// CycleBudgetExceededError stops a run whose reviewer is still unsatisfied
// after max_review_cycles passes.
type CycleBudgetExceededError struct {
	Cycles     int
	MaxCycles  int
	OpenIssues int
}

func (e *CycleBudgetExceededError) Error() string {
	return fmt.Sprintf("review not satisfied after %d of %d cycle(s), %d issue(s) open", e.Cycles, e.MaxCycles, e.OpenIssues)
}

func (e *CycleBudgetExceededError) Is(target error) bool { return target == ErrCycleBudgetExceeded }

func (e *CycleBudgetExceededError) Hint() string {
	return "raise max_review_cycles (MAX_REVIEW_CYCLES) or set REVIEW_BUDGET_POLICY=advisory"
}
