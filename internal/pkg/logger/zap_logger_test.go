package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerRoundTripsThroughGetLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l := NewIsolatedLogger(path)

	l.Info("Reviewer", "first", map[string]interface{}{"route": "openai-reviewer"})
	l.Warn("Reviewer", "second", nil)
	l.Error("Writer", "third", map[string]interface{}{"error": "boom"})
	require.NoError(t, l.Sync())

	all, err := l.GetLogs(LogFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Message, "newest first")
	assert.Equal(t, "Writer", all[0].Module)

	warns, err := l.GetLogs(LogFilter{Level: "WARN", Limit: 10})
	require.NoError(t, err)
	require.Len(t, warns, 1)
	assert.Equal(t, "second", warns[0].Message)

	found, err := l.GetLogById(all[1].Id)
	require.NoError(t, err)
	assert.Equal(t, "second", found.Message)

	_, err = l.GetLogById("missing")
	assert.ErrorIs(t, err, ErrLogNotFound)
}

func TestGetLogsPagination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l := NewIsolatedLogger(path)
	for _, msg := range []string{"a", "b", "c", "d"} {
		l.Info("Test", msg, nil)
	}
	require.NoError(t, l.Sync())

	page, err := l.GetLogs(LogFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].Message)
	assert.Equal(t, "b", page[1].Message)

	empty, err := l.GetLogs(LogFilter{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetLogsByModuleAndRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	l := NewIsolatedLogger(path)
	l.Info("Consumer", "Attempting run", map[string]interface{}{"run_id": "r1"})
	l.Info("Consumer", "Attempting run", map[string]interface{}{"run_id": "r2"})
	l.Info("Reviewer", "Attempting multi-model review", map[string]interface{}{"files": 2})
	require.NoError(t, l.Sync())

	consumer, err := l.GetLogs(LogFilter{Module: "Consumer"})
	require.NoError(t, err)
	assert.Len(t, consumer, 2)

	r1, err := l.GetLogs(LogFilter{RunID: "r1"})
	require.NoError(t, err)
	require.Len(t, r1, 1)
	assert.Equal(t, "r1", r1[0].Details["run_id"])
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Info("Test", "ignored", nil)
	logs, err := l.GetLogs(LogFilter{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, logs)
}
