package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

var base = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Init replaces the package logger. Development gets colored tint output,
// everything else JSON.
func Init(environment, level string) *slog.Logger {
	base = New(os.Stdout, environment, level)
	slog.SetDefault(base)
	return base
}

func New(w io.Writer, environment, level string) *slog.Logger {
	lvl := ParseLevel(level)
	if environment == "development" || environment == "local" {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.RFC3339,
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: true,
	}))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func With(args ...any) *slog.Logger {
	return base.With(args...)
}

func Info(msg string, args ...any) {
	base.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	base.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	base.Error(msg, args...)
}

func Debug(msg string, args ...any) {
	base.Debug(msg, args...)
}

// Security records auth-relevant events (rejected handshakes, unknown users)
// under a fixed category so they can be filtered out of the stream.
func Security(event string, args ...any) {
	base.LogAttrs(context.Background(), slog.LevelWarn, event, append([]slog.Attr{slog.String("category", "security")}, argsToAttrs(args)...)...)
}

func argsToAttrs(args []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, slog.Any(key, args[i+1]))
	}
	return attrs
}
