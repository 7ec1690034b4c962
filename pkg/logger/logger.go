// Package logger builds the logr.Logger used across formblocks, backed by
// zap through zapr, and carries it on contexts.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerContextKey struct{}

const (
	TimeStampKey = "timestamp"
	MessageKey   = "message"
	VersionKey   = "version"
)

// Config selects level, encoding and destination.
type Config struct {
	// Level is a zap level name: debug, info, warn, error. Defaults to info.
	Level string
	// Format is "json" (default) or "console".
	Format string
	// Version is attached to every entry when set.
	Version string
	// Output defaults to stderr.
	Output io.Writer
}

// Logger pairs the logr front-end with the zap core so callers can flush.
type Logger struct {
	logr.Logger
	zap *zap.Logger
}

// New builds a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if strings.TrimSpace(cfg.Level) != "" {
		if err := level.Set(strings.ToLower(strings.TrimSpace(cfg.Level))); err != nil {
			return nil, fmt.Errorf("logger: invalid level %q: %w", cfg.Level, err)
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.TimeKey = TimeStampKey
	encoderCfg.MessageKey = MessageKey

	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	case "console":
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), zap.NewAtomicLevelAt(level))
	if cfg.Version != "" {
		core = core.With([]zapcore.Field{zap.String(VersionKey, cfg.Version)})
	}

	zl := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	return &Logger{Logger: zapr.NewLogger(zl), zap: zl}, nil
}

// Sync flushes buffered entries, ignoring the errors terminals report.
func (l *Logger) Sync() {
	if l == nil || l.zap == nil {
		return
	}
	if err := l.zap.Sync(); err != nil && !isIgnorableSyncError(err) {
		fmt.Fprintf(os.Stderr, "WARNING: failed to sync zap logger: %v\n", err)
	}
}

// WithLogger attaches log to ctx.
func WithLogger(ctx context.Context, log logr.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, log)
}

// FromContext returns the logger attached to ctx, or a discard logger.
func FromContext(ctx context.Context) logr.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(loggerContextKey{}).(logr.Logger); ok {
			return log
		}
	}
	return logr.Discard()
}

func isIgnorableSyncError(err error) bool {
	return errors.Is(err, syscall.ENOTTY) || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.EBADF)
}
