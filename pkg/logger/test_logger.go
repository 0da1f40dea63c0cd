package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger is a Logger implementation that records entries in memory.
// It is used by tests that want to assert on logged output without
// touching stdout or the filesystem.
type TestLogger struct {
	mu      sync.Mutex
	entries []TestLogEntry
	fields  map[string]interface{}
	root    *TestLogger
}

// TestLogEntry is a single captured log line.
type TestLogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewTestLogger creates a logger that captures entries instead of writing them.
func NewTestLogger() *TestLogger {
	return &TestLogger{fields: make(map[string]interface{})}
}

// Entries returns a copy of all captured entries, including those logged
// through derived loggers.
func (t *TestLogger) Entries() []TestLogEntry {
	r := t.rootLogger()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TestLogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// EntriesAtLevel returns captured entries with the given level.
func (t *TestLogger) EntriesAtLevel(level string) []TestLogEntry {
	var out []TestLogEntry
	for _, e := range t.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func (t *TestLogger) rootLogger() *TestLogger {
	if t.root != nil {
		return t.root
	}
	return t
}

func (t *TestLogger) record(level, msg string, fields map[string]interface{}) {
	merged := make(map[string]interface{}, len(t.fields)+len(fields))
	for k, v := range t.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	r := t.rootLogger()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, TestLogEntry{Level: level, Message: msg, Fields: merged})
}

func (t *TestLogger) Debug(msg string) { t.record("debug", msg, nil) }
func (t *TestLogger) Info(msg string)  { t.record("info", msg, nil) }
func (t *TestLogger) Warn(msg string)  { t.record("warn", msg, nil) }
func (t *TestLogger) Error(msg string) { t.record("error", msg, nil) }
func (t *TestLogger) Fatal(msg string) { t.record("fatal", msg, nil) }

func (t *TestLogger) WithField(key string, value interface{}) Logger {
	return t.WithFields(map[string]interface{}{key: value})
}

func (t *TestLogger) WithFields(fields map[string]interface{}) Logger {
	child := &TestLogger{
		fields: make(map[string]interface{}, len(t.fields)+len(fields)),
		root:   t.rootLogger(),
	}
	for k, v := range t.fields {
		child.fields[k] = v
	}
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

func (t *TestLogger) WithError(err error) Logger {
	if err == nil {
		return t
	}
	return t.WithField("error", err.Error())
}

func (t *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	t.record("debug", msg, fields)
}

func (t *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	t.record("info", msg, fields)
}

func (t *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	t.record("warn", msg, fields)
}

func (t *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	t.record("error", msg, fields)
}

func (t *TestLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
