package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// VerboseChecker reports whether debug and info lines should be written
type VerboseChecker interface {
	IsVerbose() bool
}

// Logger writes component-tagged lines to the console and, optionally,
// mirrors every line to an activity sink in logfmt.
type Logger struct {
	component      string
	verboseChecker VerboseChecker
	console        *consoleSink
	activity       *activitySink
}

// Field is a key-value pair attached to a log line
type Field struct {
	Key   string
	Value interface{}
}

// consoleSink is shared by a logger and everything derived from it
type consoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

type activitySink struct {
	mu sync.Mutex
	w  io.Writer
}

// New creates a logger for a component
func New(component string, verboseChecker VerboseChecker) *Logger {
	return &Logger{
		component:      component,
		verboseChecker: verboseChecker,
		console:        &consoleSink{w: os.Stderr},
	}
}

// NewWithCallback creates a logger whose verbosity is decided by a callback
func NewWithCallback(component string, verboseCheck func() bool) *Logger {
	return New(component, &callbackChecker{callback: verboseCheck})
}

// Discard returns a logger that writes nowhere. Useful in tests.
func Discard() *Logger {
	return &Logger{component: "test", console: &consoleSink{w: io.Discard}}
}

// WithComponent returns a logger sharing output and sinks under another component name
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		component:      component,
		verboseChecker: l.verboseChecker,
		console:        l.console,
		activity:       l.activity,
	}
}

// SetOutput replaces the console writer of l and of every logger derived
// from it. Passing nil silences the console.
func (l *Logger) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	l.console.mu.Lock()
	l.console.w = w
	l.console.mu.Unlock()
}

// SetActivityOutput mirrors every line, regardless of verbosity, to w in logfmt.
// Passing nil disables the sink.
func (l *Logger) SetActivityOutput(w io.Writer) {
	if w == nil {
		l.activity = nil
		return
	}
	l.activity = &activitySink{w: w}
}

type callbackChecker struct {
	callback func() bool
}

func (c *callbackChecker) IsVerbose() bool {
	if c.callback == nil {
		return false
	}
	return c.callback()
}

func (l *Logger) verbose() bool {
	return l.verboseChecker != nil && l.verboseChecker.IsVerbose()
}

// Debug logs when verbose
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.emit("DEBUG", l.verbose(), msg, nil, args...)
}

// Info logs when verbose
func (l *Logger) Info(msg string, args ...interface{}) {
	l.emit("INFO", l.verbose(), msg, nil, args...)
}

// Warn always logs
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.emit("WARN", true, msg, nil, args...)
}

// Error always logs
func (l *Logger) Error(msg string, args ...interface{}) {
	l.emit("ERROR", true, msg, nil, args...)
}

// DebugWithFields logs a debug line with structured fields
func (l *Logger) DebugWithFields(msg string, fields []Field, args ...interface{}) {
	l.emit("DEBUG", l.verbose(), msg, fields, args...)
}

// InfoWithFields logs an info line with structured fields
func (l *Logger) InfoWithFields(msg string, fields []Field, args ...interface{}) {
	l.emit("INFO", l.verbose(), msg, fields, args...)
}

// WarnWithFields logs a warning with structured fields
func (l *Logger) WarnWithFields(msg string, fields []Field, args ...interface{}) {
	l.emit("WARN", true, msg, fields, args...)
}

func (l *Logger) emit(level string, console bool, msg string, fields []Field, args ...interface{}) {
	if !console && l.activity == nil {
		return
	}

	now := time.Now()
	component := l.component
	if component == "" {
		component = "main"
	}
	formattedMsg := msg
	if len(args) > 0 {
		formattedMsg = fmt.Sprintf(msg, args...)
	}

	if console {
		var fieldsStr string
		if len(fields) > 0 {
			parts := make([]string, 0, len(fields))
			for _, field := range fields {
				parts = append(parts, fmt.Sprintf("%s=%v", field.Key, field.Value))
			}
			fieldsStr = fmt.Sprintf(" [%s]", strings.Join(parts, " "))
		}
		line := fmt.Sprintf("[%s] %s [%s] %s%s\n", now.Format("15:04:05.000"), level, component, formattedMsg, fieldsStr)
		l.console.mu.Lock()
		_, _ = io.WriteString(l.console.w, line)
		l.console.mu.Unlock()
	}

	if l.activity != nil {
		l.activity.write(now, level, component, formattedMsg, fields)
	}
}

func (s *activitySink) write(ts time.Time, level, component, msg string, fields []Field) {
	var b strings.Builder
	fmt.Fprintf(&b, "time=%s level=%s component=%s msg=%s",
		ts.UTC().Format(time.RFC3339Nano), strings.ToLower(level), component, quoteLogfmt(msg))

	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	for _, f := range sorted {
		fmt.Fprintf(&b, " %s=%s", f.Key, quoteLogfmt(fmt.Sprint(f.Value)))
	}
	b.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, b.String())
}

// go-logparser reads quoted values verbatim, so they carry no escapes
// or line breaks
var logfmtReplacer = strings.NewReplacer(`"`, "'", "\n", " ", "\r", " ", "\t", " ")

func quoteLogfmt(v string) string {
	if v == "" || strings.ContainsAny(v, " \t\r\n\"=") {
		return `"` + strings.TrimRight(logfmtReplacer.Replace(v), `\`) + `"`
	}
	return v
}

// Helper functions for common field types
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func Count(value int) Field {
	return Field{Key: "count", Value: value}
}

func Duration(d time.Duration) Field {
	return Field{Key: "duration", Value: d}
}

func Error(err error) Field {
	return Field{Key: "error", Value: err}
}

// Status is the HTTP status of a completed request
func Status(code int) Field {
	return Field{Key: "status", Value: code}
}

// Path is the API path a request targeted
func Path(p string) Field {
	return Field{Key: "path", Value: p}
}
