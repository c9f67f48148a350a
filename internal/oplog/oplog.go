package oplog

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	DefaultMaxEntries = 2000
	FileName          = "operation_logs.jsonl"
)

// Level is the severity of an entry
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Entry is one line of the operation log
type Entry struct {
	TimestampMs int64  `json:"timestampMs"`
	OperationID string `json:"operationId"`
	Stage       string `json:"stage"`
	Level       Level  `json:"level"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
}

// Time returns the entry timestamp
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.TimestampMs)
}

// Recorder is the append side of the log
type Recorder interface {
	Append(operationID, stage string, level Level, message, details string)
}

// Log is a capped, append-only history persisted as JSON lines.
// Every append rewrites the file so the on-disk copy always matches memory.
type Log struct {
	mu      sync.Mutex
	path    string
	max     int
	entries []Entry
	logger  *slog.Logger
	now     func() time.Time
}

// Open loads an existing log file, skipping lines that do not decode
func Open(path string, maxEntries int, logger *slog.Logger) (*Log, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Log{
		path:   path,
		max:    maxEntries,
		logger: logger,
		now:    time.Now,
	}

	if path == "" {
		return l, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to read operation log: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		l.entries = append(l.entries, e)
	}
	l.entries = takeLast(l.entries, l.max)

	return l, nil
}

// Append records an entry, trims the oldest beyond the cap and persists
func (l *Log) Append(operationID, stage string, level Level, message, details string) {
	e := Entry{
		TimestampMs: l.now().UnixMilli(),
		OperationID: operationID,
		Stage:       stage,
		Level:       level,
		Message:     message,
		Details:     details,
	}

	attrs := []any{"operation_id", operationID, "stage", stage}
	if details != "" {
		attrs = append(attrs, "details", details)
	}
	l.logger.Log(context.Background(), level.slogLevel(), message, attrs...)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = takeLast(append(l.entries, e), l.max)
	if err := l.persist(); err != nil {
		l.logger.Error("failed to persist operation log", "error", err)
	}
}

// Info appends an INFO entry without details
func (l *Log) Info(operationID, stage, message string) {
	l.Append(operationID, stage, LevelInfo, message, "")
}

// Warn appends a WARN entry without details
func (l *Log) Warn(operationID, stage, message string) {
	l.Append(operationID, stage, LevelWarn, message, "")
}

// Entries returns a copy of all entries, oldest first
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// ForOperation returns the entries of one operation
func (l *Log) ForOperation(operationID string) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Entry
	for _, e := range l.entries {
		if e.OperationID == operationID {
			out = append(out, e)
		}
	}
	return out
}

// persist writes the whole log through a temp file and rename. Caller holds mu.
func (l *Log) persist() error {
	if l.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range l.entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write operation log: %w", err)
	}
	return os.Rename(tmp, l.path)
}

func takeLast(entries []Entry, n int) []Entry {
	if len(entries) <= n {
		return entries
	}
	return append([]Entry(nil), entries[len(entries)-n:]...)
}
