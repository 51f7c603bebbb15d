package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with the component conventions used across the service
type Logger struct {
	*zap.Logger
}

// New creates a logger at the given level ("debug", "info", "warn", "error").
// Unknown levels fall back to info.
func New(level string, development bool) *Logger {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))

	logger, err := cfg.Build()
	if err != nil {
		return NewNop()
	}
	return &Logger{Logger: logger}
}

// NewDefault creates a production JSON logger at info level
func NewDefault() *Logger {
	return New("info", false)
}

// NewDevelopment creates a colored console logger at debug level
func NewDevelopment() *Logger {
	return New("debug", true)
}

// NewNop creates a logger that discards everything
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Wrap adopts an existing zap logger
func Wrap(logger *zap.Logger) *Logger {
	if logger == nil {
		return NewNop()
	}
	return &Logger{Logger: logger}
}

// Named returns a child logger scoped to a component
func (l *Logger) Named(component string) *Logger {
	return &Logger{Logger: l.Logger.Named(component)}
}

// With returns a child logger with additional fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Security logs a security-relevant event at warn level
func (l *Logger) Security(event string, fields ...zap.Field) {
	l.Logger.Warn("security event", append([]zap.Field{zap.String("event", event)}, fields...)...)
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
