package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity level.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelFatal Level = "FATAL"
)

// severityNumbers maps OTEL severity text to OTEL severity number.
// See https://opentelemetry.io/docs/specs/otel/logs/data-model/#severity-fields
var severityNumbers = map[Level]int{
	LevelDebug: 5,
	LevelInfo:  9,
	LevelWarn:  13,
	LevelError: 17,
	LevelFatal: 21,
}

// SeverityNumber returns the OTEL severity number for a level.
func SeverityNumber(level Level) int {
	return severityNumbers[level]
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// LogHook is called for every emitted log entry, allowing secondary log sinks
// (e.g., OTLP log export) without the logging package importing them.
type LogHook func(level Level, msg string, attrs map[string]interface{})

// Logger provides JSON structured logging in OTEL-compatible format.
type Logger struct {
	mu       sync.Mutex
	output   io.Writer
	minLevel Level
	resource map[string]string
	hook     LogHook
}

// LogEntry represents a single log entry in OTEL-compatible JSON format.
type LogEntry struct {
	Timestamp      string                 `json:"Timestamp"`
	SeverityText   string                 `json:"SeverityText"`
	SeverityNumber int                    `json:"SeverityNumber"`
	Body           string                 `json:"Body"`
	Attributes     map[string]interface{} `json:"Attributes,omitempty"`
	Resource       map[string]string      `json:"Resource,omitempty"`
}

var defaultLogger = &Logger{output: os.Stderr, minLevel: LevelInfo}

// SetOutput sets the output writer for the default logger.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.output = w
}

// SetLevel sets the minimum level the default logger emits.
func SetLevel(level Level) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.minLevel = level
}

// SetResource sets the OTEL resource attributes (service.name, service.version, etc.)
// for the default logger. Should be called once at startup.
func SetResource(resource map[string]string) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.resource = resource
}

// SetHook registers a hook that is called for every log entry.
// Used by the telemetry package to forward logs via OTLP.
func SetHook(hook LogHook) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.hook = hook
}

func (l *Logger) enabled(level Level) bool {
	return severityNumbers[level] >= severityNumbers[l.minLevel]
}

func (l *Logger) log(level Level, msg string, attrs map[string]interface{}) {
	l.mu.Lock()
	if !l.enabled(level) {
		l.mu.Unlock()
		return
	}
	entry := LogEntry{
		Timestamp:      time.Now().UTC().Format(time.RFC3339Nano),
		SeverityText:   string(level),
		SeverityNumber: severityNumbers[level],
		Body:           msg,
		Attributes:     attrs,
		Resource:       l.resource,
	}
	hook := l.hook
	data, _ := json.Marshal(entry)
	_, _ = l.output.Write(append(data, '\n'))
	l.mu.Unlock()

	// Call hook outside the lock to avoid deadlocks
	if hook != nil {
		hook(level, msg, attrs)
	}
}

// Component is a logger bound to a fixed set of attributes, typically the
// name of the subsystem emitting the entry.
type Component struct {
	fields map[string]interface{}
}

// Named returns a component logger that tags every entry with component=name.
func Named(name string) Component {
	return Component{fields: map[string]interface{}{"component": name}}
}

// With returns a copy of c carrying the additional fields.
func (c Component) With(keyvals ...interface{}) Component {
	merged := make(map[string]interface{}, len(c.fields)+len(keyvals)/2)
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range F(keyvals...) {
		merged[k] = v
	}
	return Component{fields: merged}
}

func (c Component) merge(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 || fields[0] == nil {
		return c.fields
	}
	out := make(map[string]interface{}, len(c.fields)+len(fields[0]))
	for k, v := range c.fields {
		out[k] = v
	}
	for k, v := range fields[0] {
		out[k] = v
	}
	return out
}

func (c Component) Debug(msg string, fields ...map[string]interface{}) {
	defaultLogger.log(LevelDebug, msg, c.merge(fields))
}

func (c Component) Info(msg string, fields ...map[string]interface{}) {
	defaultLogger.log(LevelInfo, msg, c.merge(fields))
}

func (c Component) Warn(msg string, fields ...map[string]interface{}) {
	defaultLogger.log(LevelWarn, msg, c.merge(fields))
}

func (c Component) Error(msg string, fields ...map[string]interface{}) {
	defaultLogger.log(LevelError, msg, c.merge(fields))
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs a debug level message.
func Debug(msg string, fields ...map[string]interface{}) {
	defaultLogger.log(LevelDebug, msg, first(fields))
}

// Info logs an info level message.
func Info(msg string, fields ...map[string]interface{}) {
	defaultLogger.log(LevelInfo, msg, first(fields))
}

// Warn logs a warning level message.
func Warn(msg string, fields ...map[string]interface{}) {
	defaultLogger.log(LevelWarn, msg, first(fields))
}

// Error logs an error level message.
func Error(msg string, fields ...map[string]interface{}) {
	defaultLogger.log(LevelError, msg, first(fields))
}

// Fatal logs a fatal level message and exits.
func Fatal(msg string, fields ...map[string]interface{}) {
	defaultLogger.log(LevelFatal, msg, first(fields))
	os.Exit(1)
}

// F is a helper to create fields map.
func F(keyvals ...interface{}) map[string]interface{} {
	fields := make(map[string]interface{})
	for i := 0; i < len(keyvals)-1; i += 2 {
		if key, ok := keyvals[i].(string); ok {
			fields[key] = keyvals[i+1]
		}
	}
	return fields
}
