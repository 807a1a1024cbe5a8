package apperror

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"missing credential", &MissingCredentialError{Role: "writer"}, ErrMissingCredential},
		{"no payload", &NoStructuredPayloadError{Role: "openai-reviewer"}, ErrNoStructuredPayload},
		{"storage", &StorageAccessError{Op: "read", Path: "a.go", Err: fs.ErrNotExist}, ErrStorageAccess},
		{"transport", &TransportError{Role: "writer", Err: errors.New("boom")}, ErrTransport},
		{"budget", &CycleBudgetExceededError{Cycles: 2, MaxCycles: 2}, ErrCycleBudgetExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("reviewer stage: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.NotEmpty(t, Hint(wrapped))
		})
	}
}

func TestStorageAccessErrorUnwrapsCause(t *testing.T) {
	err := &StorageAccessError{Op: "read", Path: "missing.py", Err: fs.ErrNotExist}
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "missing.py")
}

func TestMissingCredentialMessageNamesRole(t *testing.T) {
	err := &MissingCredentialError{Role: "gemini-reviewer", Model: "google/gemini", EnvKey: "GEMINI_API_KEY"}
	assert.Contains(t, err.Error(), "gemini-reviewer")
	assert.Contains(t, err.Error(), "google/gemini")
	assert.Contains(t, err.Hint(), "GEMINI_API_KEY")
}

func TestHintEmptyForPlainErrors(t *testing.T) {
	assert.Empty(t, Hint(errors.New("plain")))
	assert.Empty(t, Hint(nil))
}
