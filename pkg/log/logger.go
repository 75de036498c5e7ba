// Structured logging for motiongen
//
// Provides a small levelled logger with:
// - Log levels (DEBUG, INFO, WARN, ERROR)
// - Structured fields (key-value pairs)
// - Text or JSON output
// - ANSI colors for terminal output
// - Per-component loggers with prefixes
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// DEBUG level for detailed debugging information
	DEBUG LogLevel = iota

	// INFO level for general informational messages
	INFO

	// WARN level for warning messages
	WARN

	// ERROR level for error messages
	ERROR
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

// String returns the string representation of the log level
func (l LogLevel) String() string {
	if l < DEBUG || l > ERROR {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel parses a string into a LogLevel. Unknown strings map to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// OutputFormat specifies the output format for log messages
type OutputFormat int

const (
	// FormatText outputs human-readable text format
	FormatText OutputFormat = iota
	// FormatJSON outputs machine-readable JSON format
	FormatJSON
)

// Fields is a map of structured logging fields
type Fields map[string]interface{}

// Logger writes levelled messages for one component
type Logger struct {
	mu         *sync.Mutex // shared with loggers derived by WithPrefix
	prefix     string
	writer     io.Writer
	level      LogLevel
	timeFormat string
	colorize   bool
	outFormat  OutputFormat
	caller     bool
}

// Entry is a pending log line carrying fields
type Entry struct {
	logger *Logger
	fields Fields
}

// JSONLogEntry is the structure for JSON formatted log entries
type JSONLogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Logger    string                 `json:"logger"`
	Message   string                 `json:"message"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger

	ansiColors = map[LogLevel]string{
		DEBUG: "\x1b[36m", // Cyan
		INFO:  "\x1b[32m", // Green
		WARN:  "\x1b[33m", // Yellow
		ERROR: "\x1b[31m", // Red
	}
	ansiReset = "\x1b[0m"
)

// callerDepth is the runtime.Caller skip from getCaller to user code:
// getCaller <- emit <- public method <- user.
const callerDepth = 3

// New creates a new logger with the given prefix
func New(prefix string) *Logger {
	return &Logger{
		mu:         &sync.Mutex{},
		prefix:     prefix,
		writer:     os.Stderr,
		level:      INFO,
		timeFormat: "2006-01-02 15:04:05.000",
		colorize:   os.Getenv("NO_COLOR") == "",
		outFormat:  FormatText,
	}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Enabled reports whether messages at level would be written
func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.GetLevel()
}

// SetWriter sets the output writer (e.g., for testing)
func (l *Logger) SetWriter(w io.Writer) {
	l.mu.Lock()
	l.writer = w
	l.mu.Unlock()
}

// SetColorize enables or disables colorized output
func (l *Logger) SetColorize(enable bool) {
	l.mu.Lock()
	l.colorize = enable
	l.mu.Unlock()
}

// SetFormat sets the output format (FormatText or FormatJSON)
func (l *Logger) SetFormat(format OutputFormat) {
	l.mu.Lock()
	l.outFormat = format
	l.mu.Unlock()
}

// SetCaller enables or disables caller info in log output
func (l *Logger) SetCaller(enable bool) {
	l.mu.Lock()
	l.caller = enable
	l.mu.Unlock()
}

// WithPrefix returns a logger for another component sharing this logger's
// output and settings at the time of the call.
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	child := *l
	child.prefix = prefix
	return &child
}

// WithField returns an Entry with the given field
func (l *Logger) WithField(key string, value interface{}) *Entry {
	return &Entry{logger: l, fields: Fields{key: value}}
}

// WithFields returns an Entry with the given fields
func (l *Logger) WithFields(fields Fields) *Entry {
	return (&Entry{logger: l}).WithFields(fields)
}

// WithError returns an Entry with the error field set
func (l *Logger) WithError(err error) *Entry {
	return l.WithField("error", err.Error())
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(msg string, args ...interface{}) { l.emit(DEBUG, msg, args, nil) }

// Info logs a message at INFO level
func (l *Logger) Info(msg string, args ...interface{}) { l.emit(INFO, msg, args, nil) }

// Warn logs a message at WARN level
func (l *Logger) Warn(msg string, args ...interface{}) { l.emit(WARN, msg, args, nil) }

// Error logs a message at ERROR level
func (l *Logger) Error(msg string, args ...interface{}) { l.emit(ERROR, msg, args, nil) }

func (l *Logger) emit(level LogLevel, msg string, args []interface{}, fields Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	var caller string
	if l.caller {
		caller = getCaller(callerDepth)
	}

	var line string
	if l.outFormat == FormatJSON {
		line = l.formatJSON(level, msg, caller, fields)
	} else {
		line = l.formatText(level, msg, caller, fields)
	}
	fmt.Fprint(l.writer, line)
}

func getCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

func (l *Logger) formatText(level LogLevel, msg, caller string, fields Fields) string {
	var sb strings.Builder

	sb.WriteString(time.Now().Format(l.timeFormat))
	fmt.Fprintf(&sb, " [%-5s] ", level.String())
	if l.colorize {
		sb.WriteString(ansiColors[level])
		sb.WriteString(l.prefix)
		sb.WriteString(ansiReset)
	} else {
		sb.WriteString(l.prefix)
	}
	sb.WriteString(": ")
	sb.WriteString(msg)

	if caller != "" {
		sb.WriteString(" (")
		sb.WriteString(caller)
		sb.WriteString(")")
	}

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, fields[k])
		}
		sb.WriteString("}")
	}

	sb.WriteString("\n")
	return sb.String()
}

func (l *Logger) formatJSON(level LogLevel, msg, caller string, fields Fields) string {
	entry := JSONLogEntry{
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Level:     level.String(),
		Logger:    l.prefix,
		Message:   msg,
		Caller:    caller,
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal log entry: %v"}`+"\n", err)
	}
	return string(data) + "\n"
}

// Entry methods - log with fields

// WithField adds a field to the entry
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return e.WithFields(Fields{key: value})
}

// WithFields adds multiple fields to the entry
func (e *Entry) WithFields(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{logger: e.logger, fields: merged}
}

// WithError adds an error field to the entry
func (e *Entry) WithError(err error) *Entry {
	return e.WithField("error", err.Error())
}

// Debug logs at DEBUG level with fields
func (e *Entry) Debug(msg string) { e.logger.emit(DEBUG, msg, nil, e.fields) }

// Info logs at INFO level with fields
func (e *Entry) Info(msg string) { e.logger.emit(INFO, msg, nil, e.fields) }

// Warn logs at WARN level with fields
func (e *Entry) Warn(msg string) { e.logger.emit(WARN, msg, nil, e.fields) }

// Error logs at ERROR level with fields
func (e *Entry) Error(msg string) { e.logger.emit(ERROR, msg, nil, e.fields) }

// Infof logs a formatted message at INFO level with fields
func (e *Entry) Infof(format string, args ...interface{}) {
	e.logger.emit(INFO, format, args, e.fields)
}

// Warnf logs a formatted message at WARN level with fields
func (e *Entry) Warnf(format string, args ...interface{}) {
	e.logger.emit(WARN, format, args, e.fields)
}

// Package-level functions using default logger

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
}

// GetLogger returns a logger for a component derived from the default logger
func GetLogger(prefix string) *Logger {
	defaultMu.Lock()
	if defaultLogger == nil {
		defaultLogger = New("motiongen")
	}
	root := defaultLogger
	defaultMu.Unlock()
	if prefix == "" {
		return root
	}
	return root.WithPrefix(prefix)
}

// Info logs at INFO level using default logger
func Info(msg string, args ...interface{}) { GetLogger("").emit(INFO, msg, args, nil) }

// Warn logs at WARN level using default logger
func Warn(msg string, args ...interface{}) { GetLogger("").emit(WARN, msg, args, nil) }

// Error logs at ERROR level using default logger
func Error(msg string, args ...interface{}) { GetLogger("").emit(ERROR, msg, args, nil) }

func init() {
	defaultLogger = New("motiongen")
	ConfigureFromEnv(defaultLogger)
}

// ConfigureFromEnv applies environment-based configuration to the logger.
// Environment variables:
//   - MOTIONGEN_LOG_LEVEL: DEBUG, INFO, WARN, ERROR
//   - MOTIONGEN_LOG_FORMAT: text, json
//   - MOTIONGEN_LOG_CALLER: any non-empty value enables caller info
//   - NO_COLOR: any non-empty value disables colors
func ConfigureFromEnv(l *Logger) {
	if levelStr := os.Getenv("MOTIONGEN_LOG_LEVEL"); levelStr != "" {
		l.SetLevel(ParseLevel(levelStr))
	}
	switch strings.ToLower(os.Getenv("MOTIONGEN_LOG_FORMAT")) {
	case "json":
		l.SetFormat(FormatJSON)
	case "text":
		l.SetFormat(FormatText)
	}
	if os.Getenv("MOTIONGEN_LOG_CALLER") != "" {
		l.SetCaller(true)
	}
	if os.Getenv("NO_COLOR") != "" {
		l.SetColorize(false)
	}
}
