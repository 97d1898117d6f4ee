// Package logging provides leveled, line-oriented console logging for nexa.
// Each line reads LEVEL TIMESTAMP [component] message key=value ...
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel converts a case-insensitive level name. Unknown names yield INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes structured lines to an io.Writer.
// Derived loggers share the parent's output lock.
type Logger struct {
	mu        *sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	traceID   string
	now       func() time.Time
}

// New creates a Logger writing INFO and above to stdout.
func New() *Logger {
	return &Logger{
		mu:       &sync.Mutex{},
		output:   os.Stdout,
		minLevel: LevelInfo,
		now:      time.Now,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	l := New()
	l.output = io.Discard
	l.minLevel = LevelError
	return l
}

func (l *Logger) clone() *Logger {
	return &Logger{
		mu:        l.mu,
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		traceID:   l.traceID,
		now:       l.now,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	c := l.clone()
	c.component = component
	return c
}

// WithTraceID returns a new logger that tags every line with trace=<id>.
func (l *Logger) WithTraceID(traceID string) *Logger {
	c := l.clone()
	c.traceID = traceID
	return c
}

// TraceID returns the trace ID attached to this logger, if any.
func (l *Logger) TraceID() string {
	return l.traceID
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.minLevel = level
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.output = w
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return levelPriority[level] >= levelPriority[l.minLevel]
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields renders fields as key=value pairs in key order.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := fmt.Sprintf("%v", fields[k])
		if strings.ContainsAny(v, " \t\n\"") {
			v = fmt.Sprintf("%q", v)
		}
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(v)
	}
	return b.String()
}

func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	if !l.Enabled(level) {
		return
	}

	timestamp := l.now().UTC().Format("2006-01-02T15:04:05.000Z")

	merged := make(map[string]interface{})
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	if l.traceID != "" {
		merged["trace"] = l.traceID
	}
	fieldStr := formatFields(merged)

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write([]byte(line))
}

// --- Search pipeline events ---

// ModelAttempt logs the outcome of one model liveness probe.
func (l *Logger) ModelAttempt(model string, err error) {
	if err != nil {
		l.Warn(fmt.Sprintf("✗ Model %s unavailable", model), map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})
		return
	}
	l.Debug("model_probe_ok", map[string]interface{}{"model": model})
}

// ModelSelected logs the model chosen for the lifetime of the process.
func (l *Logger) ModelSelected(model string) {
	l.Info(fmt.Sprintf("✓ Using model: %s", model), map[string]interface{}{
		"model": model,
	})
}

// ToolCall logs a tool invocation.
func (l *Logger) ToolCall(tool, query string) {
	l.Debug("tool_call", map[string]interface{}{
		"tool":  tool,
		"query": query,
	})
}

// ToolResult logs a tool result.
func (l *Logger) ToolResult(tool string, duration time.Duration, err error) {
	fields := map[string]interface{}{
		"tool":     tool,
		"duration": duration.String(),
	}
	if err != nil {
		fields["error"] = err.Error()
		l.Warn("tool_error", fields)
	} else {
		l.Debug("tool_result", fields)
	}
}

// SearchStart logs the beginning of a search.
func (l *Logger) SearchStart(query, mode string, sources []string) {
	l.Info("search_start", map[string]interface{}{
		"query":   query,
		"mode":    mode,
		"sources": strings.Join(sources, ","),
	})
}

// SearchComplete logs the end of a search. code is empty on success.
func (l *Logger) SearchComplete(query string, duration time.Duration, code string) {
	fields := map[string]interface{}{
		"query":    query,
		"duration": duration.String(),
	}
	if code != "" {
		fields["code"] = code
		l.Warn("search_failed", fields)
		return
	}
	l.Info("search_complete", fields)
}

// CacheHit logs a response served from the cache.
func (l *Logger) CacheHit(query, mode string) {
	l.Debug("cache_hit", map[string]interface{}{
		"query": query,
		"mode":  mode,
	})
}

// HTTPRequest logs one served HTTP request.
func (l *Logger) HTTPRequest(method, path string, status int, duration time.Duration) {
	l.Info("http_request", map[string]interface{}{
		"method":   method,
		"path":     path,
		"status":   status,
		"duration": duration.String(),
	})
}
