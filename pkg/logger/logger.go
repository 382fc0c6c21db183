// Package logger provides structured logging for the chat server. Every
// subsystem logs through a component-named child of a single root logger,
// so log lines carry their origin under the "logger" key.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper around zap.Logger.
type Logger struct {
	*zap.Logger
}

// New creates the root logger writing JSON to stdout at the given level.
func New(level string) (*Logger, error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.Lock(os.Stdout),
		zap.NewAtomicLevelAt(parseLevel(level)),
	)

	return &Logger{Logger: zap.New(core,
		zap.AddCaller(),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	)}, nil
}

// NewNop creates a logger that discards everything. Useful in tests.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// With creates a child logger with additional fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithComponent creates a named child logger for a subsystem. Nested
// components join with dots ("gateway.session").
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Global logger, a no-op until the composition root installs the real one.
var global = NewNop()

// Global returns the process-wide logger.
func Global() *Logger {
	return global
}

// SetGlobal installs the process-wide logger.
func SetGlobal(l *Logger) {
	global = l
}
