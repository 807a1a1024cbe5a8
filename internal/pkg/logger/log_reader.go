package logger

import (
	"bufio"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
)

var ErrLogNotFound = errors.New("log entry not found")

// LogEntry is one parsed line of the JSON log file, served by /api/logs
type LogEntry struct {
	Id        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Module    string                 `json:"module,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// LogFilter narrows GetLogs. Zero fields match everything; Limit <= 0 means no limit.
type LogFilter struct {
	Level  string
	Module string
	RunID  string
	Limit  int
	Offset int
}

func (f LogFilter) match(e LogEntry) bool {
	if f.Level != "" && e.Level != f.Level {
		return false
	}
	if f.Module != "" && e.Module != f.Module {
		return false
	}
	if f.RunID != "" {
		id, _ := e.Details["run_id"].(string)
		return id == f.RunID
	}
	return true
}

// GetLogs returns matching entries newest first. Only the active file is
// scanned; rotation keeps it bounded.
func (l *ZapLogger) GetLogs(filter LogFilter) ([]LogEntry, error) {
	entries, err := l.readEntries(filter)
	if err != nil {
		return nil, err
	}
	slices.Reverse(entries)

	offset := max(filter.Offset, 0)
	if offset >= len(entries) {
		return []LogEntry{}, nil
	}
	end := len(entries)
	if filter.Limit > 0 {
		end = min(offset+filter.Limit, end)
	}
	return entries[offset:end], nil
}

func (l *ZapLogger) GetLogById(id string) (*LogEntry, error) {
	entries, err := l.readEntries(LogFilter{})
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(entries, func(e LogEntry) bool { return e.Id == id })
	if idx < 0 {
		return nil, fmt.Errorf("log %s: %w", id, ErrLogNotFound)
	}
	return &entries[idx], nil
}

// readEntries parses the log file oldest first. Lines that are not JSON are skipped.
func (l *ZapLogger) readEntries(filter LogFilter) ([]LogEntry, error) {
	if l.filePath == "" {
		return []LogEntry{}, nil
	}
	file, err := os.Open(l.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return []LogEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	entries := []LogEntry{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		var entry LogEntry
		if json.Unmarshal(line, &entry) != nil {
			continue
		}
		if entry.Id == "" {
			entry.Id = fmt.Sprintf("%x", md5.Sum(line))
		}
		if filter.match(entry) {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log file: %w", err)
	}
	return entries, nil
}
