package paylog

import "sync"

var (
	globalLogger *Logger
	once         sync.Once
)

// InitGlobalLogger initializes the process-wide logger. Calling it
// more than once has no effect after the first call, mirroring the
// teacher's sync.Once-guarded global logger.
func InitGlobalLogger(cfg Config) {
	once.Do(func() {
		globalLogger = New(cfg)
	})
}

// GetGlobalLogger returns the global logger, lazily falling back to a
// console-only logger at LevelInfo if InitGlobalLogger was never
// called (e.g. in package tests that exercise flows directly).
func GetGlobalLogger() *Logger {
	if globalLogger == nil {
		globalLogger = New(Config{EnableConsole: true, MinLevel: LevelInfo, Service: "paymcp"})
	}
	return globalLogger
}

func Debug(message string, ctx ...LogContext) { GetGlobalLogger().Debug(message, ctx...) }
func Info(message string, ctx ...LogContext)  { GetGlobalLogger().Info(message, ctx...) }
func Warn(message string, ctx ...LogContext)  { GetGlobalLogger().Warn(message, ctx...) }
func Error(message string, ctx ...LogContext) { GetGlobalLogger().Error(message, ctx...) }

// WithContext creates a ContextLogger from the global logger.
func WithContext(ctx LogContext) *ContextLogger { return GetGlobalLogger().WithContext(ctx) }
