package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the log level.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Level     LogLevel          `json:"level"`
	Message   string            `json:"message"`
	Service   string            `json:"service"`
	Module    string            `json:"module,omitempty"`
	Operation string            `json:"operation,omitempty"`
	Error     string            `json:"error,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Logger is a structured JSON-lines logger. Loggers derived with With share
// the parent's writer and lock.
type Logger struct {
	out      *sink
	service  string
	module   string
	minLevel LogLevel
}

type sink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewLogger creates a logger appending to the file at logPath.
// service is the service name (e.g., "saveimages").
func NewLogger(logPath, service string) (*Logger, error) {
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		out:      &sink{w: file, closer: file},
		service:  service,
		minLevel: LogLevelDebug,
	}, nil
}

// NewWriterLogger creates a logger writing to w. Close does not close w.
func NewWriterLogger(w io.Writer, service string) *Logger {
	return &Logger{
		out:      &sink{w: w},
		service:  service,
		minLevel: LogLevelDebug,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return NewWriterLogger(io.Discard, "")
}

// ParseLevel parses a level name such as "debug" or "WARN".
func ParseLevel(name string) (LogLevel, error) {
	level := LogLevel(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := levelRank[level]; !ok {
		return "", fmt.Errorf("invalid log level: %s. Must be one of: debug, info, warn, error", name)
	}
	return level, nil
}

// SetLevel drops entries below level.
func (l *Logger) SetLevel(level LogLevel) {
	l.minLevel = level
}

// With returns a logger that stamps every entry with module.
func (l *Logger) With(module string) *Logger {
	child := *l
	child.module = module
	return &child
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if l.out.closer != nil {
		err := l.out.closer.Close()
		l.out.closer = nil
		return err
	}
	return nil
}

func (l *Logger) log(level LogLevel, message, operation string, err error, fields map[string]string) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Service:   l.service,
		Module:    l.module,
		Operation: operation,
		Fields:    fields,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	jsonData, marshalErr := json.Marshal(entry)

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if marshalErr != nil {
		_, _ = fmt.Fprintf(l.out.w, "{\"timestamp\":\"%s\",\"level\":\"%s\",\"message\":%q,\"service\":\"%s\"}\n",
			time.Now().Format(time.RFC3339), level, message, l.service)
		return
	}
	_, _ = fmt.Fprintln(l.out.w, string(jsonData))
}

// Debugf logs a formatted debug message.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LogLevelDebug, fmt.Sprintf(format, args...), "", nil, nil)
}

// DebugWithOperation logs a debug message with operation context.
func (l *Logger) DebugWithOperation(operation, message string) {
	l.log(LogLevelDebug, message, operation, nil, nil)
}

// Infof logs a formatted info message.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LogLevelInfo, fmt.Sprintf(format, args...), "", nil, nil)
}

// InfoWithOperation logs an info message with operation context.
func (l *Logger) InfoWithOperation(operation, message string) {
	l.log(LogLevelInfo, message, operation, nil, nil)
}

// InfoFields logs an info message with key/value pairs. An odd trailing
// key is logged with an empty value.
func (l *Logger) InfoFields(operation, message string, kv ...string) {
	l.log(LogLevelInfo, message, operation, nil, pairs(kv))
}

// Warnf logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LogLevelWarn, fmt.Sprintf(format, args...), "", nil, nil)
}

// WarnWithOperation logs a warning message with operation context.
func (l *Logger) WarnWithOperation(operation, message string) {
	l.log(LogLevelWarn, message, operation, nil, nil)
}

// ErrorWithOperation logs an error message with operation context.
func (l *Logger) ErrorWithOperation(operation, message string, err error) {
	l.log(LogLevelError, message, operation, err, nil)
}

// ErrorFields logs an error with key/value pairs.
func (l *Logger) ErrorFields(operation, message string, err error, kv ...string) {
	l.log(LogLevelError, message, operation, err, pairs(kv))
}

func pairs(kv []string) map[string]string {
	if len(kv) == 0 {
		return nil
	}
	fields := make(map[string]string, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fields[kv[i]] = kv[i+1]
		} else {
			fields[kv[i]] = ""
		}
	}
	return fields
}
