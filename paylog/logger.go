// Package paylog is PayMCP's structured logging layer: every flow
// transition, state-store write, and provider call logs through here
// at a level appropriate to its severity.
//
// Named paylog rather than log to avoid shadowing the standard
// library package when both are imported side by side, which happens
// throughout this module.
package paylog

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

var levelOrder = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
	LevelFatal: 4,
}

// Entry is a single structured log record.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component"`
	Function  string         `json:"function"`
	SessionID string         `json:"session_id,omitempty"`
	PaymentID string         `json:"payment_id,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Provider  string         `json:"provider,omitempty"`
	Error     string         `json:"error,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	Service   string         `json:"service"`
}

// LogContext carries the tags a flow attaches to its log lines:
// which session, which payment, which tool, and which provider it
// concerns.
type LogContext struct {
	SessionID string
	PaymentID string
	Tool      string
	Provider  string
	Fields    map[string]any
}

// Sink receives log entries for out-of-process delivery (e.g. an
// OpenSearch-backed sink). Console output is always written directly
// by Logger and does not go through a Sink.
type Sink interface {
	Write(entry Entry) error
}

// Config configures a Logger.
type Config struct {
	EnableConsole bool
	MinLevel      Level
	Service       string
	Sink          Sink
}

// Logger is PayMCP's structured logger, grounded on the teacher's
// SystemLogger: console output plus an optional asynchronous sink.
type Logger struct {
	sink     Sink
	console  bool
	minLevel Level
	service  string
}

// New creates a Logger from cfg.
func New(cfg Config) *Logger {
	if cfg.Service == "" {
		cfg.Service = "paymcp"
	}
	if cfg.MinLevel == "" {
		cfg.MinLevel = LevelInfo
	}
	return &Logger{
		sink:     cfg.Sink,
		console:  cfg.EnableConsole,
		minLevel: cfg.MinLevel,
		service:  cfg.Service,
	}
}

func (l *Logger) Debug(message string, ctx ...LogContext) { l.log(LevelDebug, message, ctx...) }
func (l *Logger) Info(message string, ctx ...LogContext)  { l.log(LevelInfo, message, ctx...) }
func (l *Logger) Warn(message string, ctx ...LogContext)  { l.log(LevelWarn, message, ctx...) }

func (l *Logger) Error(message string, ctx ...LogContext) {
	l.log(LevelError, message, ctx...)
}

// Fatal logs at LevelFatal and exits the process; reserved for
// unrecoverable startup failures (e.g. an unknown provider name).
func (l *Logger) Fatal(message string, ctx ...LogContext) {
	l.log(LevelFatal, message, ctx...)
	os.Exit(1)
}

func (l *Logger) shouldLog(level Level) bool {
	return levelOrder[level] >= levelOrder[l.minLevel]
}

func (l *Logger) log(level Level, message string, ctxs ...LogContext) {
	if !l.shouldLog(level) {
		return
	}

	pc, _, _, ok := runtime.Caller(2)
	function := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			function = fn.Name()
			if idx := strings.LastIndex(function, "."); idx != -1 {
				function = function[idx+1:]
			}
		}
	}

	entry := Entry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Function:  function,
		Service:   l.service,
	}

	if len(ctxs) > 0 {
		c := ctxs[0]
		entry.SessionID = c.SessionID
		entry.PaymentID = c.PaymentID
		entry.Tool = c.Tool
		entry.Provider = c.Provider
		entry.Fields = c.Fields
		entry.Component = c.Provider
		if errMsg, ok := c.Fields["error"]; ok {
			entry.Error = fmt.Sprint(errMsg)
		}
	}

	if l.console {
		l.logToConsole(entry)
	}
	if l.sink != nil {
		go func() {
			_ = l.sink.Write(entry)
		}()
	}
}

func (l *Logger) logToConsole(entry Entry) {
	colors := map[Level]string{
		LevelDebug: "\033[36m",
		LevelInfo:  "\033[32m",
		LevelWarn:  "\033[33m",
		LevelError: "\033[31m",
		LevelFatal: "\033[35m",
	}
	const reset = "\033[0m"

	timestamp := entry.Timestamp.Format("2006-01-02 15:04:05")

	var parts []string
	if entry.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", entry.SessionID))
	}
	if entry.PaymentID != "" {
		parts = append(parts, fmt.Sprintf("payment=%s", entry.PaymentID))
	}
	if entry.Tool != "" {
		parts = append(parts, fmt.Sprintf("tool=%s", entry.Tool))
	}
	if entry.Provider != "" {
		parts = append(parts, fmt.Sprintf("provider=%s", entry.Provider))
	}
	context := ""
	if len(parts) > 0 {
		context = fmt.Sprintf("[%s] ", strings.Join(parts, " "))
	}

	errSuffix := ""
	if entry.Error != "" {
		errSuffix = fmt.Sprintf(" - error: %s", entry.Error)
	}

	color := colors[entry.Level]
	fmt.Printf("%s [%s%s%s] %s%s%s\n",
		timestamp, color, strings.ToUpper(string(entry.Level)), reset, context, entry.Message, errSuffix)
}

// WithContext returns a ContextLogger bound to ctx, for callers (like
// a flow) that log several lines under the same session/payment/tool
// tags without repeating them.
func (l *Logger) WithContext(ctx LogContext) *ContextLogger {
	return &ContextLogger{logger: l, context: ctx}
}

// ContextLogger wraps Logger with a fixed LogContext.
type ContextLogger struct {
	logger  *Logger
	context LogContext
}

func (c *ContextLogger) Debug(message string) { c.logger.Debug(message, c.context) }
func (c *ContextLogger) Info(message string)  { c.logger.Info(message, c.context) }
func (c *ContextLogger) Warn(message string)  { c.logger.Warn(message, c.context) }
func (c *ContextLogger) Error(message string) { c.logger.Error(message, c.context) }

// WithField returns a copy of the context logger with an extra field set.
func (c *ContextLogger) WithField(key string, value any) *ContextLogger {
	fields := make(map[string]any, len(c.context.Fields)+1)
	for k, v := range c.context.Fields {
		fields[k] = v
	}
	fields[key] = value
	ctx := c.context
	ctx.Fields = fields
	return &ContextLogger{logger: c.logger, context: ctx}
}
