// Package logging provides structured logging for the InfoVault backend.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents a log level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level name used in log output.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ParseLevel converts a level name to a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN":
		return LevelWarn
	case "ERROR":
		return LevelError
	}
	return LevelInfo
}

// Fields carries structured context for a log entry.
type Fields map[string]interface{}

// Logger provides structured JSON logging.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	minLevel LogLevel
}

var (
	global *Logger
	once   sync.Once
)

// Init initializes the global logger.
func Init(out io.Writer, minLevel LogLevel) {
	once.Do(func() {
		global = New(out, minLevel)
	})
}

// Get returns the global logger instance.
func Get() *Logger {
	if global == nil {
		Init(os.Stdout, LevelInfo)
	}
	return global
}

// New creates a Logger writing JSON lines to out.
func New(out io.Writer, minLevel LogLevel) *Logger {
	return &Logger{out: out, minLevel: minLevel}
}

// entry is the wire shape of one log line.
type entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
	Fields    Fields `json:"fields,omitempty"`
}

func (l *Logger) write(level LogLevel, message string, err error, fields Fields) {
	if level < l.minLevel {
		return
	}

	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
		Fields:    fields,
	}
	if err != nil {
		e.Error = err.Error()
	}

	data, jsonErr := json.Marshal(e)
	if jsonErr != nil {
		log.Printf("failed to marshal log entry: %v", jsonErr)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, string(data))
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields ...Fields) {
	l.write(LevelDebug, message, nil, merge(fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields ...Fields) {
	l.write(LevelInfo, message, nil, merge(fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields ...Fields) {
	l.write(LevelWarn, message, nil, merge(fields))
}

// Error logs an error message with its cause.
func (l *Logger) Error(message string, err error, fields ...Fields) {
	l.write(LevelError, message, err, merge(fields))
}

func merge(fields []Fields) Fields {
	if len(fields) == 0 {
		return nil
	}
	if len(fields) == 1 {
		return fields[0]
	}
	merged := make(Fields)
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	return merged
}

// Convenience functions using the global logger.

func Debug(message string, fields ...Fields) {
	Get().Debug(message, fields...)
}

func Info(message string, fields ...Fields) {
	Get().Info(message, fields...)
}

func Warn(message string, fields ...Fields) {
	Get().Warn(message, fields...)
}

func Error(message string, err error, fields ...Fields) {
	Get().Error(message, err, fields...)
}
